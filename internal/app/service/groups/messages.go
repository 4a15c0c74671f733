package groupservice

import (
	"context"
	"errors"

	"github.com/dalemusser/groupchat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/app/system/inputval"
	"github.com/dalemusser/groupchat/internal/app/system/notify"
	"github.com/dalemusser/groupchat/internal/app/system/paging"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SendMessageInput is a message as submitted by a member.
type SendMessageInput struct {
	GroupID     primitive.ObjectID
	SenderID    string
	Content     string
	MessageType string // "" means TEXT
	ReplyToID   *primitive.ObjectID
}

// SendMessage posts a message. Members allowed to post under the group's
// approval policy publish immediately; everyone else, muted members
// included, lands in PENDING. Under NONE every member publishes. Only
// non-members are refused.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (models.GroupMessage, error) {
	if err := validateUsers(in.SenderID); err != nil {
		return models.GroupMessage{}, err
	}
	typ, ok := models.ParseMessageType(in.MessageType)
	if !ok {
		return models.GroupMessage{}, apperr.Validation("unknown message type %q", in.MessageType)
	}
	content, err := inputval.Content(in.Content, typ, s.cfg.MaxContentLength)
	if err != nil {
		return models.GroupMessage{}, err
	}

	g, err := s.groups.GetByID(ctx, in.GroupID)
	if err != nil {
		return models.GroupMessage{}, err
	}
	if _, ok := g.Member(in.SenderID); !ok {
		return models.GroupMessage{}, s.deny("sendMessage", in.SenderID, in.GroupID, "not a member of this group")
	}

	if in.ReplyToID != nil {
		parent, err := s.messages.GetByID(ctx, *in.ReplyToID)
		if errors.Is(err, apperr.ErrNotFound) {
			return models.GroupMessage{}, apperr.Validation("reply target does not exist")
		}
		if err != nil {
			return models.GroupMessage{}, err
		}
		if parent.GroupID != in.GroupID || parent.Status == models.StatusDeleted {
			return models.GroupMessage{}, apperr.Validation("reply target is not a message of this group")
		}
	}

	status := models.StatusApproved
	if g.ApprovalType != models.ApprovalNone && !grouppolicy.CanSendMessage(g, in.SenderID) {
		status = models.StatusPending
	}

	now := s.now()
	m := models.GroupMessage{
		GroupID:          in.GroupID,
		SenderID:         in.SenderID,
		Content:          content,
		MessageType:      typ,
		Status:           status,
		ReplyToMessageID: in.ReplyToID,
		SentAt:           now,
	}
	created, err := s.messages.Create(ctx, m)
	if err != nil {
		return models.GroupMessage{}, err
	}

	// lastMessageAt only moves forward; the store applies the bump atomically.
	if err := s.groups.TouchActivity(ctx, in.GroupID, now); err != nil {
		s.log.Error("failed to update group activity",
			zap.String("group_id", in.GroupID.Hex()),
			zap.String("message_id", created.ID.Hex()),
			zap.Error(err))
		return models.GroupMessage{}, err
	}

	s.log.Info("message sent",
		zap.String("group_id", in.GroupID.Hex()),
		zap.String("message_id", created.ID.Hex()),
		zap.String("sender_id", in.SenderID),
		zap.String("status", string(status)))
	return created, nil
}

// ApproveMessage approves or rejects a PENDING message. Repeating the
// decision already recorded succeeds without a write; reversing it, or
// deciding on a deleted message, is InvalidState.
func (s *Service) ApproveMessage(ctx context.Context, messageID primitive.ObjectID, approverID string, approve bool, note string) (models.GroupMessage, error) {
	if err := validateUsers(approverID); err != nil {
		return models.GroupMessage{}, err
	}
	note, err := inputval.Note(note)
	if err != nil {
		return models.GroupMessage{}, err
	}

	now := s.now()
	m, changed, err := s.mutateMessage(ctx, messageID, func(m *models.GroupMessage, g models.GroupConversation) (bool, error) {
		if !grouppolicy.CanApproveMessages(g, approverID) {
			return false, s.deny("approveMessage", approverID, m.GroupID, "not allowed to moderate messages")
		}
		changed, err := m.Resolve(approve, approverID, note, now)
		if err != nil {
			return false, apperr.InvalidState("message is %s", m.Status)
		}
		return changed, nil
	})
	if err != nil {
		return models.GroupMessage{}, err
	}
	if !changed {
		return m, nil
	}

	s.log.Info("message moderated",
		zap.String("message_id", messageID.Hex()),
		zap.String("group_id", m.GroupID.Hex()),
		zap.String("status", string(m.Status)),
		zap.String("by", approverID))
	if !approve {
		s.notifier.Dispatch(ctx, notify.MessageRejected(m, approverID, note, now))
	}
	return m, nil
}

// EditMessage replaces the content of the caller's own PENDING or APPROVED
// message without changing its status. An APPROVED message whose sender
// may no longer post freely is InvalidState.
func (s *Service) EditMessage(ctx context.Context, messageID primitive.ObjectID, userID, content string) (models.GroupMessage, error) {
	if err := validateUsers(userID); err != nil {
		return models.GroupMessage{}, err
	}
	if _, err := inputval.Content(content, models.MessageTypeText, s.cfg.MaxContentLength); err != nil {
		return models.GroupMessage{}, err
	}

	now := s.now()
	m, _, err := s.mutateMessage(ctx, messageID, func(m *models.GroupMessage, g models.GroupConversation) (bool, error) {
		if m.SenderID != userID {
			return false, s.deny("editMessage", userID, m.GroupID, "only the sender may edit a message")
		}
		if _, ok := g.Member(userID); !ok {
			return false, s.deny("editMessage", userID, m.GroupID, "not a member of this group")
		}
		clean, err := inputval.Content(content, m.MessageType, s.cfg.MaxContentLength)
		if err != nil {
			return false, err
		}
		locked := g.ApprovalType != models.ApprovalNone && !grouppolicy.CanSendMessage(g, userID)
		if err := m.Edit(clean, locked, now); err != nil {
			return false, apperr.InvalidState("message is %s", m.Status)
		}
		return true, nil
	})
	if err != nil {
		return models.GroupMessage{}, err
	}
	s.log.Info("message edited",
		zap.String("message_id", messageID.Hex()),
		zap.String("group_id", m.GroupID.Hex()),
		zap.String("status", string(m.Status)))
	return m, nil
}

// DeleteMessage turns a message into a tombstone. The sender may always
// delete; others need admin rights. Deleting a tombstone succeeds without a
// write.
func (s *Service) DeleteMessage(ctx context.Context, messageID primitive.ObjectID, userID string) (models.GroupMessage, error) {
	if err := validateUsers(userID); err != nil {
		return models.GroupMessage{}, err
	}
	now := s.now()
	m, changed, err := s.mutateMessage(ctx, messageID, func(m *models.GroupMessage, g models.GroupConversation) (bool, error) {
		if !grouppolicy.CanDeleteMessage(g, userID, m.SenderID) {
			return false, s.deny("deleteMessage", userID, m.GroupID, "not allowed to delete this message")
		}
		if m.Status == models.StatusDeleted {
			return false, nil
		}
		if err := m.Delete(userID, now); err != nil {
			return false, domainErr(err)
		}
		return true, nil
	})
	if err != nil {
		return models.GroupMessage{}, err
	}
	if changed {
		s.log.Info("message deleted",
			zap.String("message_id", messageID.Hex()),
			zap.String("group_id", m.GroupID.Hex()),
			zap.String("by", userID))
	}
	return m, nil
}

// GetMessages returns one page (zero-based) of the messages userID may see,
// newest first. size <= 0 means the default page size; sizes above the
// maximum are clamped.
func (s *Service) GetMessages(ctx context.Context, groupID primitive.ObjectID, userID string, page, size int) ([]models.GroupMessage, error) {
	if err := validateUsers(userID); err != nil {
		return nil, err
	}
	if page < 0 {
		return nil, apperr.Validation("page must not be negative")
	}
	size = paging.Clamp(size, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)

	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !g.IsMember(userID) {
		return nil, s.deny("getMessages", userID, groupID, "not a member of this group")
	}
	return s.messages.ListVisible(ctx, groupID, userID, grouppolicy.CanApproveMessages(g, userID), page, size)
}

// GetPendingMessages returns the moderation queue. Moderators only.
func (s *Service) GetPendingMessages(ctx context.Context, groupID primitive.ObjectID, userID string) ([]models.GroupMessage, error) {
	if err := validateUsers(userID); err != nil {
		return nil, err
	}
	ok, err := s.perms.CanApproveMessages(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.deny("getPendingMessages", userID, groupID, "not allowed to moderate messages")
	}
	return s.messages.ListPending(ctx, groupID)
}
