// internal/app/system/workers/notificationrelay.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/groupchat/internal/app/system/notify"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Outbox is the slice of the outbox store the relay needs.
type Outbox interface {
	Claim(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]models.Notification, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID, now time.Time) error
	MarkAttemptFailed(ctx context.Context, id primitive.ObjectID, cause string, maxAttempts int) (bool, error)
	PurgeDelivered(ctx context.Context, before time.Time) (int64, error)
}

// RelayConfig tunes the notification relay. Zero values take defaults.
type RelayConfig struct {
	Interval    time.Duration // poll interval (default 2s)
	BatchSize   int           // records claimed per poll (default 100)
	MaxAttempts int           // publishes before a record is parked (default 5)
	Lease       time.Duration // claim lease (default 30s)
	Retention   time.Duration // how long delivered records are kept (default 24h)
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.Interval <= 0 {
		c.Interval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Lease <= 0 {
		c.Lease = 30 * time.Second
	}
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	return c
}

// NotificationRelay is a background worker that drains the notification
// outbox into a Publisher.
type NotificationRelay struct {
	outbox    Outbox
	publisher notify.Publisher
	log       *zap.Logger
	cfg       RelayConfig
	now       func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewNotificationRelay(outbox Outbox, publisher notify.Publisher, logger *zap.Logger, cfg RelayConfig) *NotificationRelay {
	return &NotificationRelay{
		outbox:    outbox,
		publisher: publisher,
		log:       logger,
		cfg:       cfg.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background relay loop.
func (w *NotificationRelay) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("notification relay started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Int("max_attempts", w.cfg.MaxAttempts))
}

// Stop signals the worker to stop and waits for the current batch to finish.
func (w *NotificationRelay) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("notification relay stopped")
}

func (w *NotificationRelay) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	purgeEvery := time.Hour
	lastPurge := time.Time{}

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.drain()
			if w.now().Sub(lastPurge) >= purgeEvery {
				w.purge()
				lastPurge = w.now()
			}
		}
	}
}

// drain publishes one batch and returns the number delivered.
func (w *NotificationRelay) drain() int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batch, err := w.outbox.Claim(ctx, w.now(), w.cfg.Lease, w.cfg.BatchSize)
	if err != nil {
		w.log.Error("failed to claim notifications", zap.Error(err))
		if len(batch) == 0 {
			return 0
		}
	}

	delivered := 0
	for _, n := range batch {
		if err := w.publisher.Publish(ctx, n); err != nil {
			parked, markErr := w.outbox.MarkAttemptFailed(ctx, n.ID, err.Error(), w.cfg.MaxAttempts)
			if markErr != nil {
				w.log.Error("failed to record notification failure",
					zap.String("event_id", n.EventID), zap.Error(markErr))
				continue
			}
			if parked {
				w.log.Error("notification parked after repeated failures",
					zap.String("event_id", n.EventID),
					zap.String("type", string(n.Type)),
					zap.Error(err))
			} else {
				w.log.Warn("notification publish failed",
					zap.String("event_id", n.EventID), zap.Error(err))
			}
			continue
		}
		if err := w.outbox.MarkDelivered(ctx, n.ID, w.now()); err != nil {
			w.log.Error("failed to mark notification delivered",
				zap.String("event_id", n.EventID), zap.Error(err))
			continue
		}
		delivered++
	}

	if delivered > 0 {
		w.log.Debug("relayed notifications", zap.Int("count", delivered))
	}
	return delivered
}

func (w *NotificationRelay) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.outbox.PurgeDelivered(ctx, w.now().Add(-w.cfg.Retention))
	if err != nil {
		w.log.Error("failed to purge delivered notifications", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("purged delivered notifications", zap.Int64("count", count))
	}
}
