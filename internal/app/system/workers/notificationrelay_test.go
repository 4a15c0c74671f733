package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeOutbox struct {
	mu        sync.Mutex
	pending   []models.Notification
	delivered []primitive.ObjectID
	attempts  map[primitive.ObjectID]int
	parked    []primitive.ObjectID
	purged    int
}

func newFakeOutbox(n int) *fakeOutbox {
	f := &fakeOutbox{attempts: map[primitive.ObjectID]int{}}
	for i := 0; i < n; i++ {
		f.pending = append(f.pending, models.Notification{
			ID:      primitive.NewObjectID(),
			EventID: primitive.NewObjectID().Hex(),
			Type:    models.NotificationMemberAdded,
		})
	}
	return f
}

func (f *fakeOutbox) Claim(_ context.Context, _ time.Time, _ time.Duration, limit int) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	out := append([]models.Notification(nil), f.pending[:limit]...)
	return out, nil
}

func (f *fakeOutbox) remove(id primitive.ObjectID) {
	for i, n := range f.pending {
		if n.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

func (f *fakeOutbox) MarkDelivered(_ context.Context, id primitive.ObjectID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, id)
	f.remove(id)
	return nil
}

func (f *fakeOutbox) MarkAttemptFailed(_ context.Context, id primitive.ObjectID, _ string, max int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[id]++
	if f.attempts[id] >= max {
		f.parked = append(f.parked, id)
		f.remove(id)
		return true, nil
	}
	return false, nil
}

func (f *fakeOutbox) PurgeDelivered(context.Context, time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged++
	return int64(len(f.delivered)), nil
}

type publisherFunc func(models.Notification) error

func (p publisherFunc) Publish(_ context.Context, n models.Notification) error { return p(n) }

func TestRelay_DeliversBatch(t *testing.T) {
	outbox := newFakeOutbox(5)
	var got []string
	pub := publisherFunc(func(n models.Notification) error {
		got = append(got, n.EventID)
		return nil
	})
	w := NewNotificationRelay(outbox, pub, zap.NewNop(), RelayConfig{BatchSize: 3})

	if n := w.drain(); n != 3 {
		t.Errorf("first drain delivered %d, want 3", n)
	}
	if n := w.drain(); n != 2 {
		t.Errorf("second drain delivered %d, want 2", n)
	}
	if len(got) != 5 || len(outbox.pending) != 0 {
		t.Errorf("published %d, pending %d", len(got), len(outbox.pending))
	}
}

func TestRelay_ParksAfterMaxAttempts(t *testing.T) {
	outbox := newFakeOutbox(1)
	pub := publisherFunc(func(models.Notification) error { return errors.New("connection refused") })
	w := NewNotificationRelay(outbox, pub, zap.NewNop(), RelayConfig{MaxAttempts: 3})

	for i := 0; i < 3; i++ {
		if n := w.drain(); n != 0 {
			t.Fatalf("drain %d delivered %d", i, n)
		}
	}
	if len(outbox.parked) != 1 || len(outbox.pending) != 0 {
		t.Errorf("parked %d, pending %d", len(outbox.parked), len(outbox.pending))
	}
	if len(outbox.delivered) != 0 {
		t.Errorf("nothing should be delivered, got %d", len(outbox.delivered))
	}
}

func TestRelay_StartStop(t *testing.T) {
	outbox := newFakeOutbox(2)
	done := make(chan struct{}, 2)
	pub := publisherFunc(func(models.Notification) error {
		done <- struct{}{}
		return nil
	})
	w := NewNotificationRelay(outbox, pub, zap.NewNop(), RelayConfig{Interval: 10 * time.Millisecond})
	w.Start()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("relay did not publish in time")
		}
	}
	w.Stop()

	outbox.mu.Lock()
	defer outbox.mu.Unlock()
	if len(outbox.delivered) != 2 {
		t.Errorf("delivered %d, want 2", len(outbox.delivered))
	}
	if outbox.purged == 0 {
		t.Error("expected a purge pass")
	}
}

func TestRelayConfigDefaults(t *testing.T) {
	c := RelayConfig{}.withDefaults()
	if c.Interval != 2*time.Second || c.BatchSize != 100 || c.MaxAttempts != 5 || c.Lease != 30*time.Second || c.Retention != 24*time.Hour {
		t.Errorf("defaults: %+v", c)
	}
}
