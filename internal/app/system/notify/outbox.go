package notify

import (
	"context"

	"github.com/dalemusser/groupchat/internal/app/system/timeouts"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.uber.org/zap"
)

// Enqueuer stores an event for later delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, n models.Notification) (models.Notification, error)
}

// OutboxDispatcher writes events to the outbox collection; the relay worker
// publishes them.
type OutboxDispatcher struct {
	outbox Enqueuer
	log    *zap.Logger
}

func NewOutboxDispatcher(outbox Enqueuer, logger *zap.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{outbox: outbox, log: logger}
}

func (d *OutboxDispatcher) Dispatch(ctx context.Context, n models.Notification) {
	// Detach from the request so a cancelled caller still records the event,
	// but bound the write on its own deadline.
	ctx, cancel := timeouts.WithTimeout(context.WithoutCancel(ctx), timeouts.Short(), d.log, "notify.enqueue")
	defer cancel()
	if _, err := d.outbox.Enqueue(ctx, n); err != nil {
		d.log.Error("notification enqueue failed",
			zap.String("event_id", n.EventID),
			zap.String("type", string(n.Type)),
			zap.String("group_id", n.GroupID.Hex()),
			zap.Error(err))
	}
}
