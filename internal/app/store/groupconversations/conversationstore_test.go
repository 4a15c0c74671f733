package conversationstore_test

import (
	"errors"
	"testing"
	"time"

	conversationstore "github.com/dalemusser/groupchat/internal/app/store/groupconversations"
	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"github.com/dalemusser/groupchat/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newGroup(name, owner string, members ...string) models.GroupConversation {
	now := time.Now().UTC().Truncate(time.Millisecond)
	g := models.NewGroupConversation(name, "desc", owner, now)
	for _, m := range members {
		_, _ = g.AddMember(m, models.RoleMember, now)
	}
	return g
}

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newGroup("Night Shift", "u1", "u2"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Version != 1 {
		t.Errorf("Version: got %d, want 1", created.Version)
	}
	if created.NameCI == "" {
		t.Error("expected NameCI to be set")
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Members) != 2 {
		t.Fatalf("members: got %d, want 2", len(got.Members))
	}
	if got.Members["u1"].Role != models.RoleOwner || got.Members["u2"].Role != models.RoleMember {
		t.Errorf("roles: %+v", got.Members)
	}
	if len(got.MemberIDs) != 2 {
		t.Errorf("member_ids: %v", got.MemberIDs)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Save_VersionGuard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newGroup("Crew", "u1"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Two writers load the same version.
	a, _ := store.GetByID(ctx, created.ID)
	b, _ := store.GetByID(ctx, created.ID)

	if _, err := a.AddMember("u2", models.RoleMember, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	saved, err := store.Save(ctx, a)
	if err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if saved.Version != 2 {
		t.Errorf("Version: got %d, want 2", saved.Version)
	}

	if _, err := b.AddMember("u3", models.RoleMember, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(ctx, b); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale Save: expected ErrConflict, got %v", err)
	}

	got, _ := store.GetByID(ctx, created.ID)
	if !got.IsMember("u2") || got.IsMember("u3") {
		t.Errorf("members after conflict: %v", got.MemberIDs)
	}
}

func TestStore_Save_Missing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := newGroup("Ghost", "u1")
	g.ID = primitive.NewObjectID()
	g.Version = 1
	if _, err := store.Save(ctx, g); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListByMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	older, _ := store.Create(ctx, newGroup("Older", "u1", "u2"))
	newer, _ := store.Create(ctx, newGroup("Newer", "u3", "u2"))
	if _, err := store.Create(ctx, newGroup("Other", "u3")); err != nil {
		t.Fatal(err)
	}

	newer.MarkMessage(time.Now().UTC())
	if _, err := store.Save(ctx, newer); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListByMember(ctx, "u2", 0)
	if err != nil {
		t.Fatalf("ListByMember failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d groups, want 2", len(got))
	}
	if got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Errorf("order: got %s, %s", got[0].Name, got[1].Name)
	}
}

func TestStore_ListPublic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, _ = store.Create(ctx, newGroup("Chess Club", "u1"))
	_, _ = store.Create(ctx, newGroup("Chess (Advanced)", "u1"))
	private := newGroup("Chess Staff", "u1")
	private.IsPrivate = true
	_, _ = store.Create(ctx, private)
	_, _ = store.Create(ctx, newGroup("Running", "u1"))

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"chess", 2},
		{"CHESS", 2},
		{"club", 1},
		{"staff", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := store.ListPublic(ctx, tt.query, 0)
			if err != nil {
				t.Fatalf("ListPublic failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListPublic(%q): got %d, want %d", tt.query, len(got), tt.want)
			}
		})
	}
}

func TestStore_TouchActivity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newGroup("Lobby", "u1"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	later := created.CreatedAt.Add(time.Minute)
	if err := store.TouchActivity(ctx, created.ID, later); err != nil {
		t.Fatalf("TouchActivity failed: %v", err)
	}
	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.LastMessageAt == nil || !got.LastMessageAt.Equal(later) || got.Version != created.Version+1 {
		t.Fatalf("after touch: lastMessageAt=%v version=%d", got.LastMessageAt, got.Version)
	}

	// An older timestamp never rewinds the marker.
	if err := store.TouchActivity(ctx, created.ID, created.CreatedAt); err != nil {
		t.Fatalf("stale TouchActivity failed: %v", err)
	}
	again, _ := store.GetByID(ctx, created.ID)
	if !again.LastMessageAt.Equal(later) || again.Version != got.Version {
		t.Errorf("stale touch changed the group: lastMessageAt=%v version=%d", again.LastMessageAt, again.Version)
	}

	err = store.TouchActivity(ctx, primitive.NewObjectID(), later)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing group: expected ErrNotFound, got %v", err)
	}
}
