package grouppolicy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/groupchat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubLoader struct {
	groups map[primitive.ObjectID]models.GroupConversation
	err    error
	calls  int
}

func (s *stubLoader) GetByID(_ context.Context, id primitive.ObjectID) (models.GroupConversation, error) {
	s.calls++
	if s.err != nil {
		return models.GroupConversation{}, s.err
	}
	g, ok := s.groups[id]
	if !ok {
		return models.GroupConversation{}, apperr.NotFound("group")
	}
	return g.Clone(), nil
}

func fixture(t *testing.T, private bool) models.GroupConversation {
	t.Helper()
	now := time.Now().UTC()
	g := models.NewGroupConversation("Crew", "", "owner", now)
	g.ID = primitive.NewObjectID()
	g.IsPrivate = private
	for id, role := range map[string]models.Role{"admin": models.RoleAdmin, "mod": models.RoleModerator, "member": models.RoleMember} {
		if _, err := g.AddMember(id, role, now); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestSnapshotRules(t *testing.T) {
	pub := fixture(t, false)
	priv := fixture(t, true)

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"owner edits settings", grouppolicy.CanEditGroupSettings(pub, "owner"), true},
		{"admin cannot edit settings", grouppolicy.CanEditGroupSettings(pub, "admin"), false},
		{"member invites to public", grouppolicy.CanInviteMembers(pub, "member"), true},
		{"stranger cannot invite to public", grouppolicy.CanInviteMembers(pub, "stranger"), false},
		{"member cannot invite to private", grouppolicy.CanInviteMembers(priv, "member"), false},
		{"moderator cannot invite to private", grouppolicy.CanInviteMembers(priv, "mod"), false},
		{"admin invites to private", grouppolicy.CanInviteMembers(priv, "admin"), true},
		{"admin removes member", grouppolicy.CanRemoveMember(pub, "admin", "member"), true},
		{"admin cannot remove self", grouppolicy.CanRemoveMember(pub, "admin", "admin"), false},
		{"moderator cannot remove", grouppolicy.CanRemoveMember(pub, "mod", "member"), false},
		{"owner changes role", grouppolicy.CanChangeMemberRole(pub, "owner", "member"), true},
		{"owner cannot change own role", grouppolicy.CanChangeMemberRole(pub, "owner", "owner"), false},
		{"admin cannot change role", grouppolicy.CanChangeMemberRole(pub, "admin", "member"), false},
		{"sender deletes own", grouppolicy.CanDeleteMessage(pub, "member", "member"), true},
		{"admin deletes others", grouppolicy.CanDeleteMessage(pub, "admin", "member"), true},
		{"moderator cannot delete others", grouppolicy.CanDeleteMessage(pub, "mod", "member"), false},
		{"manage equals admin (admin)", grouppolicy.CanManageGroup(pub, "admin"), true},
		{"manage equals admin (mod)", grouppolicy.CanManageGroup(pub, "mod"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestChecker_ReloadsEveryCall(t *testing.T) {
	g := fixture(t, false)
	loader := &stubLoader{groups: map[primitive.ObjectID]models.GroupConversation{g.ID: g}}
	c := grouppolicy.NewChecker(loader, zap.NewNop())
	ctx := context.Background()

	ok, err := c.CanApproveMessages(ctx, "mod", g.ID)
	if err != nil || !ok {
		t.Fatalf("moderator approve: ok=%v err=%v", ok, err)
	}

	// Demote the moderator in the store; the next call must see it.
	demoted := g.Clone()
	if err := demoted.SetMemberRole("mod", models.RoleMember); err != nil {
		t.Fatal(err)
	}
	loader.groups[g.ID] = demoted

	ok, err = c.CanApproveMessages(ctx, "mod", g.ID)
	if err != nil || ok {
		t.Errorf("after demotion: ok=%v err=%v", ok, err)
	}
	if loader.calls != 2 {
		t.Errorf("expected 2 loads, got %d", loader.calls)
	}
}

func TestChecker_MissingGroupFailsClosed(t *testing.T) {
	c := grouppolicy.NewChecker(&stubLoader{}, zap.NewNop())
	ctx := context.Background()
	missing := primitive.NewObjectID()

	checks := map[string]func() (bool, error){
		"send":    func() (bool, error) { return c.CanSendMessage(ctx, "u", missing) },
		"approve": func() (bool, error) { return c.CanApproveMessages(ctx, "u", missing) },
		"admin":   func() (bool, error) { return c.IsAdmin(ctx, "u", missing) },
		"manage":  func() (bool, error) { return c.CanManageGroup(ctx, "u", missing) },
		"edit":    func() (bool, error) { return c.CanEditGroupSettings(ctx, "u", missing) },
		"invite":  func() (bool, error) { return c.CanInviteMembers(ctx, "u", missing) },
		"remove":  func() (bool, error) { return c.CanRemoveMember(ctx, "u", missing, "v") },
		"role":    func() (bool, error) { return c.CanChangeMemberRole(ctx, "u", missing, "v") },
	}
	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			ok, err := check()
			if err != nil {
				t.Errorf("missing group should not error, got %v", err)
			}
			if ok {
				t.Error("missing group must deny")
			}
		})
	}

	perms, err := c.Permissions(ctx, "u", missing)
	if err != nil || perms != (grouppolicy.Permissions{}) {
		t.Errorf("Permissions on missing group: %+v, %v", perms, err)
	}
}

func TestChecker_LoadErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	c := grouppolicy.NewChecker(&stubLoader{err: boom}, zap.NewNop())

	ok, err := c.IsAdmin(context.Background(), "u", primitive.NewObjectID())
	if ok {
		t.Error("load error must deny")
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected load error, got %v", err)
	}
}

func TestChecker_DeleteOwnMessageSkipsLoad(t *testing.T) {
	loader := &stubLoader{}
	c := grouppolicy.NewChecker(loader, zap.NewNop())

	ok, err := c.CanDeleteMessage(context.Background(), "u", primitive.NewObjectID(), "u")
	if err != nil || !ok {
		t.Errorf("own message: ok=%v err=%v", ok, err)
	}
	if loader.calls != 0 {
		t.Errorf("expected no load, got %d", loader.calls)
	}
}

func TestPermissionsSummary(t *testing.T) {
	g := fixture(t, true)
	g.ApprovalType = models.ApprovalAdminOnly

	got := grouppolicy.For(g, "mod")
	want := grouppolicy.Permissions{
		CanSendMessages:    false,
		CanApproveMessages: true,
		CanManageGroup:     false,
		CanEditSettings:    false,
		CanInviteMembers:   false,
		IsAdmin:            false,
	}
	if got != want {
		t.Errorf("For(mod) = %+v, want %+v", got, want)
	}

	owner := grouppolicy.For(g, "owner")
	if !owner.CanSendMessages || !owner.CanEditSettings || !owner.IsAdmin || !owner.CanInviteMembers {
		t.Errorf("For(owner) = %+v", owner)
	}
}
