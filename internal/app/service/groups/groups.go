package groupservice

import (
	"context"
	"strings"

	"github.com/dalemusser/groupchat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/app/system/inputval"
	"github.com/dalemusser/groupchat/internal/app/system/notify"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreateGroupInput describes a new group.
type CreateGroupInput struct {
	Name           string
	Description    string
	AvatarURL      string
	CreatedBy      string
	InitialMembers []string
	IsPrivate      bool
	ApprovalType   string // "" means NONE
}

// CreateGroup creates a group owned by in.CreatedBy. Initial members other
// than the creator join as MEMBER; duplicates are ignored.
func (s *Service) CreateGroup(ctx context.Context, in CreateGroupInput) (models.GroupConversation, error) {
	if err := validateUsers(in.CreatedBy); err != nil {
		return models.GroupConversation{}, err
	}
	if err := validateUsers(in.InitialMembers...); err != nil {
		return models.GroupConversation{}, err
	}
	name, err := inputval.GroupName(in.Name)
	if err != nil {
		return models.GroupConversation{}, err
	}
	desc, err := inputval.Description(in.Description)
	if err != nil {
		return models.GroupConversation{}, err
	}
	avatar, err := inputval.AvatarURL(in.AvatarURL)
	if err != nil {
		return models.GroupConversation{}, err
	}
	approval := models.ApprovalNone
	if in.ApprovalType != "" {
		a, ok := models.ParseApprovalType(in.ApprovalType)
		if !ok {
			return models.GroupConversation{}, apperr.Validation("unknown message approval type %q", in.ApprovalType)
		}
		approval = a
	}

	now := s.now()
	g := models.NewGroupConversation(name, desc, in.CreatedBy, now)
	g.AvatarURL = avatar
	g.IsPrivate = in.IsPrivate
	g.ApprovalType = approval

	var added []string
	for _, id := range in.InitialMembers {
		ok, err := g.AddMember(id, models.RoleMember, now)
		if err != nil {
			return models.GroupConversation{}, domainErr(err)
		}
		if ok {
			added = append(added, id)
		}
	}

	created, err := s.groups.Create(ctx, g)
	if err != nil {
		return models.GroupConversation{}, err
	}
	s.log.Info("group created",
		zap.String("group_id", created.ID.Hex()),
		zap.String("created_by", in.CreatedBy),
		zap.Int("members", len(created.Members)))

	for _, id := range added {
		s.notifier.Dispatch(ctx, notify.MemberAdded(created.ID, id, in.CreatedBy, now))
	}
	return created, nil
}

// ListUserGroups returns the groups userID belongs to, most recently active first.
func (s *Service) ListUserGroups(ctx context.Context, userID string) ([]models.GroupConversation, error) {
	if err := validateUsers(userID); err != nil {
		return nil, err
	}
	return s.groups.ListByMember(ctx, userID, s.cfg.ListLimit)
}

// ListPublicGroups returns public groups whose name contains query.
func (s *Service) ListPublicGroups(ctx context.Context, query string) ([]models.GroupConversation, error) {
	query = strings.TrimSpace(query)
	if len(query) > inputval.MaxGroupNameLen {
		return nil, apperr.Validation("search query too long")
	}
	return s.groups.ListPublic(ctx, query, s.cfg.ListLimit)
}

// GetGroup returns the group. Members may read any group they belong to;
// others may read public groups only.
func (s *Service) GetGroup(ctx context.Context, groupID primitive.ObjectID, userID string) (models.GroupConversation, error) {
	if err := validateUsers(userID); err != nil {
		return models.GroupConversation{}, err
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return models.GroupConversation{}, err
	}
	if g.IsPrivate && !g.IsMember(userID) {
		return models.GroupConversation{}, s.deny("getGroup", userID, groupID, "group is private")
	}
	return g, nil
}

// GetPermissions returns userID's permission summary. A missing group
// yields all-false.
func (s *Service) GetPermissions(ctx context.Context, groupID primitive.ObjectID, userID string) (grouppolicy.Permissions, error) {
	if err := validateUsers(userID); err != nil {
		return grouppolicy.Permissions{}, err
	}
	return s.perms.Permissions(ctx, userID, groupID)
}

// AddMember adds userID as MEMBER. Adding an existing member succeeds
// without a write.
func (s *Service) AddMember(ctx context.Context, groupID primitive.ObjectID, userID, addedBy string) (models.GroupConversation, error) {
	if err := validateUsers(userID, addedBy); err != nil {
		return models.GroupConversation{}, err
	}
	now := s.now()
	g, changed, err := s.mutateGroup(ctx, groupID, func(g *models.GroupConversation) (bool, error) {
		if !grouppolicy.CanInviteMembers(*g, addedBy) {
			return false, s.deny("addMember", addedBy, groupID, "not allowed to invite members")
		}
		added, err := g.AddMember(userID, models.RoleMember, now)
		if err != nil {
			return false, domainErr(err)
		}
		if added {
			g.Touch(now)
		}
		return added, nil
	})
	if err != nil {
		return models.GroupConversation{}, err
	}
	if changed {
		s.log.Info("member added",
			zap.String("group_id", groupID.Hex()),
			zap.String("user_id", userID),
			zap.String("added_by", addedBy))
		s.notifier.Dispatch(ctx, notify.MemberAdded(groupID, userID, addedBy, now))
	}
	return g, nil
}

// RemoveMember removes userID. Removing a non-member succeeds without a
// write. The owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, groupID primitive.ObjectID, userID, removedBy string) (models.GroupConversation, error) {
	if err := validateUsers(userID, removedBy); err != nil {
		return models.GroupConversation{}, err
	}
	now := s.now()
	g, changed, err := s.mutateGroup(ctx, groupID, func(g *models.GroupConversation) (bool, error) {
		if !grouppolicy.CanRemoveMember(*g, removedBy, userID) {
			return false, s.deny("removeMember", removedBy, groupID, "not allowed to remove this member")
		}
		removed, err := g.RemoveMember(userID)
		if err != nil {
			return false, domainErr(err)
		}
		if removed {
			g.Touch(now)
		}
		return removed, nil
	})
	if err != nil {
		return models.GroupConversation{}, err
	}
	if changed {
		s.log.Info("member removed",
			zap.String("group_id", groupID.Hex()),
			zap.String("user_id", userID),
			zap.String("removed_by", removedBy))
		s.notifier.Dispatch(ctx, notify.MemberRemoved(groupID, userID, removedBy, now))
	}
	return g, nil
}

// LeaveGroup removes userID from the group at their own request. The owner
// cannot leave.
func (s *Service) LeaveGroup(ctx context.Context, groupID primitive.ObjectID, userID string) error {
	if err := validateUsers(userID); err != nil {
		return err
	}
	now := s.now()
	_, changed, err := s.mutateGroup(ctx, groupID, func(g *models.GroupConversation) (bool, error) {
		removed, err := g.RemoveMember(userID)
		if err != nil {
			return false, domainErr(err)
		}
		if removed {
			g.Touch(now)
		}
		return removed, nil
	})
	if err != nil {
		return err
	}
	if changed {
		s.log.Info("member left", zap.String("group_id", groupID.Hex()), zap.String("user_id", userID))
		s.notifier.Dispatch(ctx, notify.MemberRemoved(groupID, userID, userID, now))
	}
	return nil
}

// ChangeMemberRole sets targetID's role. Only the owner may change roles and
// OWNER cannot be granted.
func (s *Service) ChangeMemberRole(ctx context.Context, groupID primitive.ObjectID, targetID, role, changedBy string) (models.GroupConversation, error) {
	if err := validateUsers(targetID, changedBy); err != nil {
		return models.GroupConversation{}, err
	}
	r, ok := models.ParseRole(role)
	if !ok {
		return models.GroupConversation{}, apperr.Validation("unknown role %q", role)
	}
	if r == models.RoleOwner {
		return models.GroupConversation{}, apperr.Validation("the owner role cannot be granted")
	}
	now := s.now()
	g, changed, err := s.mutateGroup(ctx, groupID, func(g *models.GroupConversation) (bool, error) {
		if !grouppolicy.CanChangeMemberRole(*g, changedBy, targetID) {
			return false, s.deny("changeMemberRole", changedBy, groupID, "only the owner may change roles")
		}
		m, ok := g.Member(targetID)
		if !ok {
			return false, apperr.NotFound("group member")
		}
		if m.Role == r {
			return false, nil
		}
		if err := g.SetMemberRole(targetID, r); err != nil {
			return false, domainErr(err)
		}
		g.Touch(now)
		return true, nil
	})
	if err != nil {
		return models.GroupConversation{}, err
	}
	if changed {
		s.log.Info("member role changed",
			zap.String("group_id", groupID.Hex()),
			zap.String("user_id", targetID),
			zap.String("role", string(r)),
			zap.String("changed_by", changedBy))
	}
	return g, nil
}

// SetMemberMuted toggles targetID's ability to send messages.
func (s *Service) SetMemberMuted(ctx context.Context, groupID primitive.ObjectID, targetID string, muted bool, by string) (models.GroupConversation, error) {
	if err := validateUsers(targetID, by); err != nil {
		return models.GroupConversation{}, err
	}
	now := s.now()
	g, changed, err := s.mutateGroup(ctx, groupID, func(g *models.GroupConversation) (bool, error) {
		if targetID == by || !grouppolicy.CanManageGroup(*g, by) {
			return false, s.deny("setMemberMuted", by, groupID, "not allowed to mute this member")
		}
		m, ok := g.Member(targetID)
		if !ok {
			return false, apperr.NotFound("group member")
		}
		if m.CanSendMessages == !muted {
			return false, nil
		}
		if err := g.SetMemberCanSend(targetID, !muted); err != nil {
			return false, domainErr(err)
		}
		g.Touch(now)
		return true, nil
	})
	if err != nil {
		return models.GroupConversation{}, err
	}
	if changed {
		s.log.Info("member mute changed",
			zap.String("group_id", groupID.Hex()),
			zap.String("user_id", targetID),
			zap.Bool("muted", muted),
			zap.String("by", by))
	}
	return g, nil
}

// UpdateSettingsInput carries the editable group settings.
type UpdateSettingsInput struct {
	Name         string
	Description  string
	ApprovalType string
	IsPrivate    bool
}

// UpdateGroupSettings replaces the group's settings. Owner only.
func (s *Service) UpdateGroupSettings(ctx context.Context, groupID primitive.ObjectID, userID string, in UpdateSettingsInput) (models.GroupConversation, error) {
	if err := validateUsers(userID); err != nil {
		return models.GroupConversation{}, err
	}
	name, err := inputval.GroupName(in.Name)
	if err != nil {
		return models.GroupConversation{}, err
	}
	desc, err := inputval.Description(in.Description)
	if err != nil {
		return models.GroupConversation{}, err
	}
	approval, ok := models.ParseApprovalType(in.ApprovalType)
	if !ok {
		return models.GroupConversation{}, apperr.Validation("unknown message approval type %q", in.ApprovalType)
	}

	now := s.now()
	g, _, err := s.mutateGroup(ctx, groupID, func(g *models.GroupConversation) (bool, error) {
		if !grouppolicy.CanEditGroupSettings(*g, userID) {
			return false, s.deny("updateGroupSettings", userID, groupID, "only the owner may edit settings")
		}
		g.UpdateSettings(name, desc, approval, in.IsPrivate)
		g.Touch(now)
		return true, nil
	})
	if err != nil {
		return models.GroupConversation{}, err
	}
	s.log.Info("group settings updated",
		zap.String("group_id", groupID.Hex()),
		zap.String("by", userID),
		zap.String("approval_type", string(approval)),
		zap.Bool("is_private", in.IsPrivate))
	return g, nil
}
