// internal/app/store/groupconversations/conversationstore.go
package conversationstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the group conversations collection.
const Collection = "group_conversations"

// Store persists GroupConversation aggregates. Every write is conditional on
// the document's version so concurrent read-modify-write cycles cannot lose
// updates.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// GetByID returns the group or an apperr.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupConversation, error) {
	var g models.GroupConversation
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.GroupConversation{}, apperr.NotFound("group conversation")
	}
	if err != nil {
		return models.GroupConversation{}, err
	}
	normalize(&g)
	return g, nil
}

// Create inserts g with a fresh id at version 1.
func (s *Store) Create(ctx context.Context, g models.GroupConversation) (models.GroupConversation, error) {
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	g.Version = 1
	g.SyncMemberIDs()
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.GroupConversation{}, err
	}
	return g, nil
}

// Save replaces the stored group if its version still equals g.Version and
// returns g at the next version. A stale version yields apperr.ErrConflict;
// a vanished document yields apperr.ErrNotFound.
func (s *Store) Save(ctx context.Context, g models.GroupConversation) (models.GroupConversation, error) {
	expected := g.Version
	g.Version = expected + 1
	g.NameCI = text.Fold(g.Name)
	g.SyncMemberIDs()

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": g.ID, "version": expected}, g)
	if err != nil {
		return models.GroupConversation{}, err
	}
	if res.MatchedCount == 0 {
		return models.GroupConversation{}, s.missOrConflict(ctx, g.ID)
	}
	return g, nil
}

// TouchActivity moves last_message_at forward to at and bumps the version.
// It is a single atomic update, so it never conflicts; an older at is a
// no-op.
func (s *Store) TouchActivity(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"last_message_at": nil},
			bson.M{"last_message_at": bson.M{"$lt": at}},
		},
	}
	update := bson.M{
		"$set": bson.M{"last_message_at": at},
		"$max": bson.M{"updated_at": at},
		"$inc": bson.M{"version": 1},
	}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("group conversation")
		}
	}
	return nil
}

func (s *Store) missOrConflict(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("group conversation")
	}
	return fmt.Errorf("%w: group conversation %s was modified concurrently", apperr.ErrConflict, id.Hex())
}

// ListByMember returns the groups userID belongs to, most recently active
// first. limit <= 0 means no limit.
func (s *Store) ListByMember(ctx context.Context, userID string, limit int64) ([]models.GroupConversation, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "last_message_at", Value: -1},
		{Key: "updated_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{"member_ids": userID}, opts)
}

// ListPublic returns non-private groups whose folded name contains query,
// ordered by name. An empty query matches every public group.
func (s *Store) ListPublic(ctx context.Context, query string, limit int64) ([]models.GroupConversation, error) {
	filter := bson.M{"is_private": false}
	if q := text.Fold(query); q != "" {
		filter["name_ci"] = bson.M{"$regex": regexp.QuoteMeta(q)}
	}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, filter, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.GroupConversation, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.GroupConversation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		normalize(&out[i])
	}
	return out, nil
}

// normalize makes a decoded document safe to mutate.
func normalize(g *models.GroupConversation) {
	if g.Members == nil {
		g.Members = make(map[string]models.GroupMember)
	}
}
