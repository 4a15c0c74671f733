// internal/app/policy/grouppolicy/grouppolicy.go
package grouppolicy

import (
	"context"
	"errors"

	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// The functions below evaluate one rule against an already-loaded group
// snapshot. Role and policy decisions are delegated to the aggregate.

// CanSendMessage reports whether userID may publish without moderation.
func CanSendMessage(g models.GroupConversation, userID string) bool {
	return g.CanUserSendMessage(userID)
}

// CanApproveMessages reports whether userID may approve or reject messages.
func CanApproveMessages(g models.GroupConversation, userID string) bool {
	return g.CanUserApproveMessages(userID)
}

// IsAdmin reports whether userID is an OWNER or ADMIN of g.
func IsAdmin(g models.GroupConversation, userID string) bool {
	return g.IsUserAdmin(userID)
}

// CanManageGroup reports whether userID may manage members (same as IsAdmin).
func CanManageGroup(g models.GroupConversation, userID string) bool {
	return IsAdmin(g, userID)
}

// CanEditGroupSettings is owner-only, stricter than IsAdmin.
func CanEditGroupSettings(g models.GroupConversation, userID string) bool {
	return g.IsOwner(userID)
}

// CanInviteMembers: admins of a private group, any member of a public one.
func CanInviteMembers(g models.GroupConversation, userID string) bool {
	if g.IsPrivate {
		return IsAdmin(g, userID)
	}
	return g.IsMember(userID)
}

// CanRemoveMember: admins may remove anyone but themselves.
func CanRemoveMember(g models.GroupConversation, userID, targetID string) bool {
	if userID == targetID {
		return false
	}
	return IsAdmin(g, userID)
}

// CanChangeMemberRole: only the owner, and never for themselves.
func CanChangeMemberRole(g models.GroupConversation, userID, targetID string) bool {
	if userID == targetID {
		return false
	}
	return g.IsOwner(userID)
}

// CanDeleteMessage: the sender always may; otherwise admins only.
func CanDeleteMessage(g models.GroupConversation, userID, senderID string) bool {
	if userID == senderID {
		return true
	}
	return IsAdmin(g, userID)
}

// Permissions is the per-user permission summary exposed to clients.
type Permissions struct {
	CanSendMessages    bool `json:"can_send_messages"`
	CanApproveMessages bool `json:"can_approve_messages"`
	CanManageGroup     bool `json:"can_manage_group"`
	CanEditSettings    bool `json:"can_edit_settings"`
	CanInviteMembers   bool `json:"can_invite_members"`
	IsAdmin            bool `json:"is_admin"`
}

// For evaluates every summary rule for userID against g.
func For(g models.GroupConversation, userID string) Permissions {
	return Permissions{
		CanSendMessages:    CanSendMessage(g, userID),
		CanApproveMessages: CanApproveMessages(g, userID),
		CanManageGroup:     CanManageGroup(g, userID),
		CanEditSettings:    CanEditGroupSettings(g, userID),
		CanInviteMembers:   CanInviteMembers(g, userID),
		IsAdmin:            IsAdmin(g, userID),
	}
}

// GroupLoader loads one group snapshot.
type GroupLoader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupConversation, error)
}

// Checker answers permission questions by loading a fresh group snapshot on
// every call. A missing group answers false with a nil error. Other load
// failures return (false, err) so callers can tell "not authorized" from
// "database error".
type Checker struct {
	groups GroupLoader
	log    *zap.Logger
}

// NewChecker constructs a Checker.
func NewChecker(groups GroupLoader, logger *zap.Logger) *Checker {
	return &Checker{groups: groups, log: logger}
}

func (c *Checker) load(ctx context.Context, groupID primitive.ObjectID) (models.GroupConversation, bool, error) {
	g, err := c.groups.GetByID(ctx, groupID)
	if errors.Is(err, apperr.ErrNotFound) {
		c.log.Warn("permission check on missing group", zap.String("group_id", groupID.Hex()))
		return models.GroupConversation{}, false, nil
	}
	if err != nil {
		return models.GroupConversation{}, false, err
	}
	return g, true, nil
}

func (c *Checker) check(ctx context.Context, groupID primitive.ObjectID, rule func(models.GroupConversation) bool) (bool, error) {
	g, ok, err := c.load(ctx, groupID)
	if err != nil || !ok {
		return false, err
	}
	return rule(g), nil
}

// CanSendMessage reports whether userID may post in groupID without review.
func (c *Checker) CanSendMessage(ctx context.Context, userID string, groupID primitive.ObjectID) (bool, error) {
	return c.check(ctx, groupID, func(g models.GroupConversation) bool { return CanSendMessage(g, userID) })
}

// CanApproveMessages reports whether userID may moderate groupID's messages.
func (c *Checker) CanApproveMessages(ctx context.Context, userID string, groupID primitive.ObjectID) (bool, error) {
	return c.check(ctx, groupID, func(g models.GroupConversation) bool { return CanApproveMessages(g, userID) })
}

// IsAdmin reports whether userID is an OWNER or ADMIN of groupID.
func (c *Checker) IsAdmin(ctx context.Context, userID string, groupID primitive.ObjectID) (bool, error) {
	return c.check(ctx, groupID, func(g models.GroupConversation) bool { return IsAdmin(g, userID) })
}

// CanManageGroup reports whether userID may manage groupID's members.
func (c *Checker) CanManageGroup(ctx context.Context, userID string, groupID primitive.ObjectID) (bool, error) {
	return c.check(ctx, groupID, func(g models.GroupConversation) bool { return CanManageGroup(g, userID) })
}

// CanEditGroupSettings reports whether userID may change groupID's settings.
func (c *Checker) CanEditGroupSettings(ctx context.Context, userID string, groupID primitive.ObjectID) (bool, error) {
	return c.check(ctx, groupID, func(g models.GroupConversation) bool { return CanEditGroupSettings(g, userID) })
}

// CanInviteMembers reports whether userID may add members to groupID.
func (c *Checker) CanInviteMembers(ctx context.Context, userID string, groupID primitive.ObjectID) (bool, error) {
	return c.check(ctx, groupID, func(g models.GroupConversation) bool { return CanInviteMembers(g, userID) })
}

// CanRemoveMember reports whether userID may remove targetID. Nobody
// removes themselves through this check; leaving is separate.
func (c *Checker) CanRemoveMember(ctx context.Context, userID string, groupID primitive.ObjectID, targetID string) (bool, error) {
	if userID == targetID {
		return false, nil
	}
	return c.check(ctx, groupID, func(g models.GroupConversation) bool { return CanRemoveMember(g, userID, targetID) })
}

// CanChangeMemberRole reports whether userID may change targetID's role.
func (c *Checker) CanChangeMemberRole(ctx context.Context, userID string, groupID primitive.ObjectID, targetID string) (bool, error) {
	if userID == targetID {
		return false, nil
	}
	return c.check(ctx, groupID, func(g models.GroupConversation) bool { return CanChangeMemberRole(g, userID, targetID) })
}

// CanDeleteMessage reports whether userID may delete a message sent by
// senderID. It short-circuits for the sender without loading the group.
func (c *Checker) CanDeleteMessage(ctx context.Context, userID string, groupID primitive.ObjectID, senderID string) (bool, error) {
	if userID == senderID {
		return true, nil
	}
	return c.check(ctx, groupID, func(g models.GroupConversation) bool { return IsAdmin(g, userID) })
}

// Permissions returns the full summary for userID; a missing group yields
// the zero value.
func (c *Checker) Permissions(ctx context.Context, userID string, groupID primitive.ObjectID) (Permissions, error) {
	g, ok, err := c.load(ctx, groupID)
	if err != nil || !ok {
		return Permissions{}, err
	}
	return For(g, userID), nil
}
