// internal/domain/models/groupmessage.go
package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageType is the kind of payload a group message carries.
type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeImage  MessageType = "IMAGE"
	MessageTypeVideo  MessageType = "VIDEO"
	MessageTypeAudio  MessageType = "AUDIO"
	MessageTypeFile   MessageType = "FILE"
	MessageTypeSystem MessageType = "SYSTEM"
)

// ParseMessageType returns the MessageType for s. An empty string means TEXT.
func ParseMessageType(s string) (MessageType, bool) {
	if s == "" {
		return MessageTypeText, true
	}
	switch t := MessageType(s); t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeFile, MessageTypeSystem:
		return t, true
	}
	return "", false
}

// MessageStatus is a message's position in the moderation lifecycle.
//
//	PENDING  -> APPROVED | REJECTED | DELETED
//	APPROVED -> DELETED
//	REJECTED -> DELETED
//	DELETED is terminal.
type MessageStatus string

const (
	StatusPending  MessageStatus = "PENDING"
	StatusApproved MessageStatus = "APPROVED"
	StatusRejected MessageStatus = "REJECTED"
	StatusDeleted  MessageStatus = "DELETED"
)

// ErrInvalidTransition is returned when a status change is not allowed from
// the message's current status.
var ErrInvalidTransition = errors.New("invalid message status transition")

// GroupMessage is one message posted to a group conversation.
type GroupMessage struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_conversation_id"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	Content     string             `bson:"content" json:"content"`
	MessageType MessageType        `bson:"message_type" json:"message_type"`
	Status      MessageStatus      `bson:"status" json:"status"`

	ApprovedBy   string     `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	ApprovalNote string     `bson:"approval_note,omitempty" json:"approval_note,omitempty"`

	ReplyToMessageID *primitive.ObjectID `bson:"reply_to_message_id,omitempty" json:"reply_to_message_id,omitempty"`
	IsEdited         bool                `bson:"is_edited" json:"is_edited"`
	EditedAt         *time.Time          `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
	SentAt           time.Time           `bson:"sent_at" json:"sent_at"`

	// Tombstone fields, set once by Delete.
	DeletedFrom MessageStatus `bson:"deleted_from,omitempty" json:"deleted_from,omitempty"`
	DeletedBy   string        `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`
	DeletedAt   *time.Time    `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`

	Version int64 `bson:"version" json:"version"`
}

// Resolve applies a moderation decision to a PENDING message.
//
// A decision that matches the current APPROVED/REJECTED status is a no-op and
// reports changed=false. Any other decision on a non-PENDING message returns
// ErrInvalidTransition.
func (m *GroupMessage) Resolve(approve bool, approverID, note string, now time.Time) (changed bool, err error) {
	target := StatusRejected
	if approve {
		target = StatusApproved
	}

	switch m.Status {
	case StatusPending:
		t := now
		m.Status = target
		m.ApprovedBy = approverID
		m.ApprovedAt = &t
		if !approve {
			m.ApprovalNote = note
		}
		return true, nil
	case StatusApproved, StatusRejected:
		if m.Status == target {
			return false, nil
		}
		return false, ErrInvalidTransition
	case StatusDeleted:
		return false, ErrInvalidTransition
	}
	return false, ErrInvalidTransition
}

// Delete turns the message into a tombstone. Content and the approval note
// are scrubbed; the prior status is kept in DeletedFrom.
func (m *GroupMessage) Delete(deletedBy string, now time.Time) error {
	switch m.Status {
	case StatusPending, StatusApproved, StatusRejected:
	case StatusDeleted:
		return ErrInvalidTransition
	default:
		return ErrInvalidTransition
	}
	t := now
	m.DeletedFrom = m.Status
	m.Status = StatusDeleted
	m.DeletedBy = deletedBy
	m.DeletedAt = &t
	m.Content = ""
	m.ApprovalNote = ""
	return nil
}

// Edit replaces the content of a PENDING or APPROVED message. Editing
// never changes Status. When locked is true an APPROVED message may not be
// edited, since its new content would skip moderation.
func (m *GroupMessage) Edit(content string, locked bool, now time.Time) error {
	switch m.Status {
	case StatusPending:
	case StatusApproved:
		if locked {
			return ErrInvalidTransition
		}
	case StatusRejected, StatusDeleted:
		return ErrInvalidTransition
	default:
		return ErrInvalidTransition
	}
	t := now
	m.Content = content
	m.IsEdited = true
	m.EditedAt = &t
	return nil
}

// VisibleTo reports whether viewerID may see this message. Moderators see
// everything. Other members see approved messages and their own pending or
// rejected ones; a tombstone follows the visibility of its prior status.
func (m GroupMessage) VisibleTo(viewerID string, moderator bool) bool {
	if moderator {
		return true
	}
	status := m.Status
	if status == StatusDeleted {
		status = m.DeletedFrom
	}
	switch status {
	case StatusApproved:
		return true
	case StatusPending, StatusRejected:
		return m.SenderID == viewerID
	case StatusDeleted:
		return false
	}
	return false
}
