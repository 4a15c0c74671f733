package outboxstore_test

import (
	"testing"
	"time"

	outboxstore "github.com/dalemusser/groupchat/internal/app/store/notifications"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"github.com/dalemusser/groupchat/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func event(offset int) models.Notification {
	return models.Notification{
		EventID:   primitive.NewObjectID().Hex(),
		Type:      models.NotificationMemberAdded,
		GroupID:   primitive.NewObjectID(),
		UserID:    "u2",
		ActorID:   "u1",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, offset, 0, time.UTC),
	}
}

func TestStore_ClaimLeasesOldestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := outboxstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, off := range []int{3, 1, 2} {
		if _, err := store.Enqueue(ctx, event(off)); err != nil {
			t.Fatal(err)
		}
	}

	now := time.Now().UTC()
	first, err := store.Claim(ctx, now, time.Minute, 2)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("claimed %d, want 2", len(first))
	}
	if first[0].CreatedAt.Second() != 1 || first[1].CreatedAt.Second() != 2 {
		t.Errorf("order: %v, %v", first[0].CreatedAt, first[1].CreatedAt)
	}

	// Leased records are not handed out again until the lease expires.
	second, _ := store.Claim(ctx, now, time.Minute, 10)
	if len(second) != 1 {
		t.Fatalf("second claim got %d, want 1", len(second))
	}
	later, _ := store.Claim(ctx, now.Add(2*time.Minute), time.Minute, 10)
	if len(later) != 3 {
		t.Errorf("after lease expiry got %d, want 3", len(later))
	}
}

func TestStore_DeliveryBookkeeping(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := outboxstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, _ := store.Enqueue(ctx, event(1))
	b, _ := store.Enqueue(ctx, event(2))
	now := time.Now().UTC()

	if err := store.MarkDelivered(ctx, a.ID, now); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}

	parked, err := store.MarkAttemptFailed(ctx, b.ID, "redis down", 2)
	if err != nil || parked {
		t.Fatalf("first failure: parked=%v err=%v", parked, err)
	}
	parked, err = store.MarkAttemptFailed(ctx, b.ID, "redis down", 2)
	if err != nil || !parked {
		t.Fatalf("second failure: parked=%v err=%v", parked, err)
	}

	counts := map[models.OutboxStatus]int64{
		models.OutboxPending:   0,
		models.OutboxDelivered: 1,
		models.OutboxFailed:    1,
	}
	for status, want := range counts {
		got, err := store.CountByStatus(ctx, status)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s: got %d, want %d", status, got, want)
		}
	}

	n, err := store.PurgeDelivered(ctx, now.Add(time.Second))
	if err != nil || n != 1 {
		t.Errorf("PurgeDelivered: n=%d err=%v", n, err)
	}
}
