package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/groupchat/internal/app/system/validators"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"github.com/dalemusser/groupchat/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"group_conversations", "group_messages", "notification_outbox"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestValidators_AcceptFixtureDocuments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	fx := testutil.NewFixtures(t, db)
	g := fx.CreateGroup(ctx, "Book Club", "owner", "m1", "m2")
	fx.CreateMessage(ctx, g.ID, "m1", "hello", models.StatusPending)
	fx.CreateMessage(ctx, g.ID, "owner", "", models.StatusDeleted)
}

func TestValidators_RejectBadDocuments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	now := time.Now()
	tests := []struct {
		name string
		coll string
		doc  bson.M
	}{
		{"group without members", "group_conversations", bson.M{
			"name": "x", "name_ci": "x", "created_by": "u1", "member_ids": bson.A{},
			"is_private": false, "message_approval_type": "NONE", "version": int64(1),
		}},
		{"group with blank name", "group_conversations", bson.M{
			"name": "  ", "name_ci": "x", "created_by": "u1", "members": bson.M{}, "member_ids": bson.A{},
			"is_private": false, "message_approval_type": "NONE", "version": int64(1),
		}},
		{"group with unknown approval", "group_conversations", bson.M{
			"name": "x", "name_ci": "x", "created_by": "u1", "members": bson.M{}, "member_ids": bson.A{},
			"is_private": false, "message_approval_type": "SOMETIMES", "version": int64(1),
		}},
		{"message with unknown status", "group_messages", bson.M{
			"group_id": primitive.NewObjectID(), "sender_id": "u1", "message_type": "TEXT",
			"status": "ARCHIVED", "sent_at": now, "version": int64(1),
		}},
		{"message without sender", "group_messages", bson.M{
			"group_id": primitive.NewObjectID(), "message_type": "TEXT",
			"status": "APPROVED", "sent_at": now, "version": int64(1),
		}},
		{"message with zero version", "group_messages", bson.M{
			"group_id": primitive.NewObjectID(), "sender_id": "u1", "message_type": "TEXT",
			"status": "APPROVED", "sent_at": now, "version": int64(0),
		}},
		{"outbox with unknown type", "notification_outbox", bson.M{
			"event_id": "e1", "type": "member_promoted", "group_id": primitive.NewObjectID(),
			"user_id": "u1", "status": "pending", "created_at": now,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc); err == nil {
				t.Errorf("expected validation error inserting into %s", tt.coll)
			}
		})
	}
}
