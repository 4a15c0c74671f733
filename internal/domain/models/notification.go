// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType names a membership or moderation event.
type NotificationType string

const (
	NotificationMemberAdded     NotificationType = "member_added"
	NotificationMemberRemoved   NotificationType = "member_removed"
	NotificationMessageRejected NotificationType = "message_rejected"
)

// OutboxStatus is an outbox record's delivery state.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxDelivered OutboxStatus = "delivered"
	OutboxFailed    OutboxStatus = "failed"
)

// Notification is one event emitted after a successful mutation.
//
// UserID is the user the event is about: the member added or removed, or the
// sender of a rejected message. ActorID is who caused it.
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id" json:"-"`
	EventID   string              `bson:"event_id" json:"event_id"`
	Type      NotificationType    `bson:"type" json:"type"`
	GroupID   primitive.ObjectID  `bson:"group_id" json:"group_id"`
	UserID    string              `bson:"user_id" json:"user_id"`
	ActorID   string              `bson:"actor_id" json:"actor_id"`
	MessageID *primitive.ObjectID `bson:"message_id,omitempty" json:"message_id,omitempty"`
	Note      string              `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`

	// Outbox delivery bookkeeping; not part of the published payload.
	Status       OutboxStatus `bson:"status" json:"-"`
	Attempts     int          `bson:"attempts" json:"-"`
	LastError    string       `bson:"last_error,omitempty" json:"-"`
	ClaimedUntil *time.Time   `bson:"claimed_until,omitempty" json:"-"`
	DeliveredAt  *time.Time   `bson:"delivered_at,omitempty" json:"-"`
}
