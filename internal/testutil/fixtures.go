package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/groupchat/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures inserts test documents directly, bypassing the stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateGroup inserts a group owned by owner with the given MEMBER users.
func (f *Fixtures) CreateGroup(ctx context.Context, name, owner string, members ...string) models.GroupConversation {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	g := models.NewGroupConversation(name, "", owner, now)
	for _, m := range members {
		if _, err := g.AddMember(m, models.RoleMember, now); err != nil {
			f.t.Fatalf("fixture member %s: %v", m, err)
		}
	}
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(name)
	g.Version = 1

	if _, err := f.db.Collection("group_conversations").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateMessage inserts a message with the given status.
func (f *Fixtures) CreateMessage(ctx context.Context, groupID primitive.ObjectID, sender, content string, status models.MessageStatus) models.GroupMessage {
	f.t.Helper()

	m := models.GroupMessage{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		SenderID:    sender,
		Content:     content,
		MessageType: models.MessageTypeText,
		Status:      status,
		SentAt:      time.Now().UTC().Truncate(time.Millisecond),
		Version:     1,
	}
	if _, err := f.db.Collection("group_messages").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return m
}
