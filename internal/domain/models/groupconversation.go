// internal/domain/models/groupconversation.go
package models

import (
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a member's role inside one group conversation.
type Role string

const (
	RoleOwner     Role = "OWNER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleMember    Role = "MEMBER"
)

// ParseRole returns the Role for s, or false if s names no role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleOwner, RoleAdmin, RoleModerator, RoleMember:
		return r, true
	}
	return "", false
}

// IsAdmin reports whether the role may manage the group (OWNER or ADMIN).
func (r Role) IsAdmin() bool {
	switch r {
	case RoleOwner, RoleAdmin:
		return true
	case RoleModerator, RoleMember:
		return false
	}
	return false
}

// CanModerate reports whether the role may approve or reject messages.
func (r Role) CanModerate() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleModerator:
		return true
	case RoleMember:
		return false
	}
	return false
}

// ApprovalType is the group-level posting policy.
type ApprovalType string

const (
	// ApprovalNone lets every member post immediately.
	ApprovalNone ApprovalType = "NONE"
	// ApprovalModerator lets OWNER, ADMIN and MODERATOR post; everyone else is moderated.
	ApprovalModerator ApprovalType = "MODERATOR"
	// ApprovalAdminOnly lets OWNER and ADMIN post; everyone else is moderated.
	ApprovalAdminOnly ApprovalType = "ADMIN_ONLY"
)

// ParseApprovalType returns the ApprovalType for s, or false if s is unknown.
func ParseApprovalType(s string) (ApprovalType, bool) {
	switch a := ApprovalType(s); a {
	case ApprovalNone, ApprovalModerator, ApprovalAdminOnly:
		return a, true
	}
	return "", false
}

// AllowsPosting reports whether a member holding role may publish without
// moderation under this policy. Unknown policies deny.
func (a ApprovalType) AllowsPosting(role Role) bool {
	switch a {
	case ApprovalNone:
		return true
	case ApprovalModerator:
		return role.CanModerate()
	case ApprovalAdminOnly:
		return role.IsAdmin()
	}
	return false
}

var (
	// ErrOwnerRole is returned when a second OWNER would be created.
	ErrOwnerRole = errors.New("the owner role belongs to the group creator only")
	// ErrOwnerImmutable is returned when the owner's membership would be removed or changed.
	ErrOwnerImmutable = errors.New("the group owner cannot be removed, muted, or re-roled")
	// ErrNotMember is returned when a member-level mutation targets a non-member.
	ErrNotMember = errors.New("user is not a member of this group")
)

// GroupMember is one user's membership record inside a GroupConversation.
type GroupMember struct {
	UserID          string    `bson:"user_id" json:"user_id"`
	Role            Role      `bson:"role" json:"role"`
	IsApproved      bool      `bson:"is_approved" json:"is_approved"`
	CanSendMessages bool      `bson:"can_send_messages" json:"can_send_messages"`
	JoinedAt        time.Time `bson:"joined_at" json:"joined_at"`
}

// GroupConversation is the membership/settings aggregate of a group chat.
//
// Members is keyed by user id, so one user has at most one membership.
// MemberIDs mirrors the map keys for indexed lookups and is rebuilt by
// SyncMemberIDs before every write.
type GroupConversation struct {
	ID           primitive.ObjectID     `bson:"_id" json:"id"`
	Name         string                 `bson:"name" json:"name"`
	NameCI       string                 `bson:"name_ci" json:"-"`
	Description  string                 `bson:"description" json:"description"`
	AvatarURL    string                 `bson:"avatar_url" json:"avatar_url"`
	CreatedBy    string                 `bson:"created_by" json:"created_by"`
	Members      map[string]GroupMember `bson:"members" json:"members"`
	MemberIDs    []string               `bson:"member_ids" json:"-"`
	IsPrivate    bool                   `bson:"is_private" json:"is_private"`
	ApprovalType ApprovalType           `bson:"message_approval_type" json:"message_approval_type"`

	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
	LastMessageAt *time.Time `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`

	Version int64 `bson:"version" json:"version"`
}

// NewGroupConversation builds a group whose creator holds the OWNER role.
// The caller assigns ID (stores do this on insert).
func NewGroupConversation(name, description, createdBy string, now time.Time) GroupConversation {
	g := GroupConversation{
		Name:         name,
		Description:  description,
		CreatedBy:    createdBy,
		Members:      make(map[string]GroupMember),
		ApprovalType: ApprovalNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	g.Members[createdBy] = GroupMember{
		UserID:          createdBy,
		Role:            RoleOwner,
		IsApproved:      true,
		CanSendMessages: true,
		JoinedAt:        now,
	}
	g.SyncMemberIDs()
	return g
}

// Clone returns a deep copy so a loaded snapshot never aliases another one.
func (g GroupConversation) Clone() GroupConversation {
	c := g
	c.Members = make(map[string]GroupMember, len(g.Members))
	for k, v := range g.Members {
		c.Members[k] = v
	}
	c.MemberIDs = append([]string(nil), g.MemberIDs...)
	if g.LastMessageAt != nil {
		t := *g.LastMessageAt
		c.LastMessageAt = &t
	}
	return c
}

// SyncMemberIDs rebuilds MemberIDs from Members in sorted order.
func (g *GroupConversation) SyncMemberIDs() {
	ids := make([]string, 0, len(g.Members))
	for id := range g.Members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	g.MemberIDs = ids
}

// Member returns the membership record for userID.
func (g GroupConversation) Member(userID string) (GroupMember, bool) {
	m, ok := g.Members[userID]
	return m, ok
}

// IsMember reports whether userID belongs to the group.
func (g GroupConversation) IsMember(userID string) bool {
	_, ok := g.Members[userID]
	return ok
}

// IsOwner reports whether userID is the group creator.
func (g GroupConversation) IsOwner(userID string) bool {
	return userID != "" && userID == g.CreatedBy
}

// AddMember inserts userID with role. Adding an existing member is a no-op
// that reports added=false. Only the creator may hold RoleOwner.
func (g *GroupConversation) AddMember(userID string, role Role, now time.Time) (added bool, err error) {
	if g.IsMember(userID) {
		return false, nil
	}
	if role == RoleOwner && userID != g.CreatedBy {
		return false, ErrOwnerRole
	}
	if g.Members == nil {
		g.Members = make(map[string]GroupMember)
	}
	g.Members[userID] = GroupMember{
		UserID:          userID,
		Role:            role,
		IsApproved:      true,
		CanSendMessages: true,
		JoinedAt:        now,
	}
	g.SyncMemberIDs()
	return true, nil
}

// RemoveMember deletes userID's membership. Removing a non-member is a no-op
// that reports removed=false. The owner cannot be removed.
func (g *GroupConversation) RemoveMember(userID string) (removed bool, err error) {
	if !g.IsMember(userID) {
		return false, nil
	}
	if g.IsOwner(userID) {
		return false, ErrOwnerImmutable
	}
	delete(g.Members, userID)
	g.SyncMemberIDs()
	return true, nil
}

// SetMemberRole changes a non-owner member's role. RoleOwner cannot be granted.
func (g *GroupConversation) SetMemberRole(userID string, role Role) error {
	if role == RoleOwner {
		return ErrOwnerRole
	}
	m, ok := g.Members[userID]
	if !ok {
		return ErrNotMember
	}
	if g.IsOwner(userID) {
		return ErrOwnerImmutable
	}
	m.Role = role
	g.Members[userID] = m
	return nil
}

// SetMemberCanSend sets the per-member mute flag.
func (g *GroupConversation) SetMemberCanSend(userID string, canSend bool) error {
	m, ok := g.Members[userID]
	if !ok {
		return ErrNotMember
	}
	if g.IsOwner(userID) {
		return ErrOwnerImmutable
	}
	m.CanSendMessages = canSend
	g.Members[userID] = m
	return nil
}

// CanUserSendMessage reports whether userID may publish without moderation:
// the user must be a member, not muted, and allowed by the approval policy.
func (g GroupConversation) CanUserSendMessage(userID string) bool {
	m, ok := g.Members[userID]
	if !ok || !m.CanSendMessages {
		return false
	}
	return g.ApprovalType.AllowsPosting(m.Role)
}

// CanUserApproveMessages reports whether userID is an OWNER, ADMIN or MODERATOR.
func (g GroupConversation) CanUserApproveMessages(userID string) bool {
	m, ok := g.Members[userID]
	return ok && m.Role.CanModerate()
}

// IsUserAdmin reports whether userID is an OWNER or ADMIN.
func (g GroupConversation) IsUserAdmin(userID string) bool {
	m, ok := g.Members[userID]
	return ok && m.Role.IsAdmin()
}

// OwnerCount returns the number of members holding RoleOwner.
func (g GroupConversation) OwnerCount() int {
	n := 0
	for _, m := range g.Members {
		if m.Role == RoleOwner {
			n++
		}
	}
	return n
}

// UpdateSettings replaces the editable settings.
func (g *GroupConversation) UpdateSettings(name, description string, approval ApprovalType, isPrivate bool) {
	g.Name = name
	g.Description = description
	g.ApprovalType = approval
	g.IsPrivate = isPrivate
}

// Touch bumps UpdatedAt.
func (g *GroupConversation) Touch(now time.Time) {
	g.UpdatedAt = now
}

// MarkMessage records that a message was posted at now.
func (g *GroupConversation) MarkMessage(now time.Time) {
	t := now
	g.LastMessageAt = &t
	g.UpdatedAt = now
}
