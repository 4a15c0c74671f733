package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/groupchat/internal/app/system/indexes"
	"github.com/dalemusser/groupchat/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func indexNames(t *testing.T, ctx context.Context, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string][]string{
		"group_conversations": {"idx_gc_member_activity", "idx_gc_private_nameci__id"},
		"group_messages":      {"idx_gm_group_sentat__id", "idx_gm_group_status_sentat"},
		"notification_outbox": {"uniq_outbox_event", "idx_outbox_status_created__id", "idx_outbox_status_delivered"},
	}
	for coll, names := range want {
		got := indexNames(t, ctx, db, coll)
		for _, name := range names {
			if !got[name] {
				t.Errorf("expected index %q on %s", name, coll)
			}
		}
	}
}

func TestEnsureAll_RenamesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Same keys as idx_gm_group_sentat__id under an old name.
	_, err := db.Collection("group_messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "group_id", Value: 1},
			{Key: "sent_at", Value: -1},
			{Key: "_id", Value: -1},
		},
		Options: options.Index().SetName("legacy_messages"),
	})
	if err != nil {
		t.Fatalf("seed index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, ctx, db, "group_messages")
	if got["legacy_messages"] || !got["idx_gm_group_sentat__id"] {
		t.Errorf("indexes after reconcile: %v", got)
	}
}

func TestEnsureAll_DuplicateEventIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coll := db.Collection("notification_outbox")
	for i := 0; i < 2; i++ {
		if _, err := coll.InsertOne(ctx, bson.M{"event_id": "same", "status": "pending"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err == nil {
		t.Fatal("expected EnsureAll to report duplicate event ids")
	}
}
