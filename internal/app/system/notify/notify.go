// Package notify carries membership and moderation events out of the group
// service. Dispatch is fire-and-forget: a failure is logged and never
// reaches the operation that triggered the event.
package notify

import (
	"context"
	"time"

	"github.com/dalemusser/groupchat/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Dispatcher accepts events after the triggering mutation has been persisted.
type Dispatcher interface {
	Dispatch(ctx context.Context, n models.Notification)
}

// MemberAdded builds the event for userID joining groupID.
func MemberAdded(groupID primitive.ObjectID, userID, addedBy string, now time.Time) models.Notification {
	return newEvent(models.NotificationMemberAdded, groupID, userID, addedBy, now)
}

// MemberRemoved builds the event for userID leaving or being removed from groupID.
func MemberRemoved(groupID primitive.ObjectID, userID, removedBy string, now time.Time) models.Notification {
	return newEvent(models.NotificationMemberRemoved, groupID, userID, removedBy, now)
}

// MessageRejected builds the event telling the sender of m that it was rejected.
func MessageRejected(m models.GroupMessage, rejectedBy, note string, now time.Time) models.Notification {
	n := newEvent(models.NotificationMessageRejected, m.GroupID, m.SenderID, rejectedBy, now)
	id := m.ID
	n.MessageID = &id
	n.Note = note
	return n
}

func newEvent(typ models.NotificationType, groupID primitive.ObjectID, userID, actorID string, now time.Time) models.Notification {
	return models.Notification{
		EventID:   uuid.NewString(),
		Type:      typ,
		GroupID:   groupID,
		UserID:    userID,
		ActorID:   actorID,
		CreatedAt: now,
	}
}
