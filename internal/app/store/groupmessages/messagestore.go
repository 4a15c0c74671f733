// internal/app/store/groupmessages/messagestore.go
package messagestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/app/system/paging"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the group messages collection.
const Collection = "group_messages"

// newestFirst is the one ordering every message listing uses. _id breaks
// ties between messages sent in the same millisecond.
var newestFirst = bson.D{{Key: "sent_at", Value: -1}, {Key: "_id", Value: -1}}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// GetByID returns the message or an apperr.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupMessage, error) {
	var m models.GroupMessage
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.GroupMessage{}, apperr.NotFound("group message")
	}
	if err != nil {
		return models.GroupMessage{}, err
	}
	return m, nil
}

// Create inserts m with a fresh id at version 1.
func (s *Store) Create(ctx context.Context, m models.GroupMessage) (models.GroupMessage, error) {
	m.ID = primitive.NewObjectID()
	m.Version = 1
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.GroupMessage{}, err
	}
	return m, nil
}

// Save replaces the stored message if its version still equals m.Version and
// returns m at the next version.
func (s *Store) Save(ctx context.Context, m models.GroupMessage) (models.GroupMessage, error) {
	expected := m.Version
	m.Version = expected + 1

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": m.ID, "version": expected}, m)
	if err != nil {
		return models.GroupMessage{}, err
	}
	if res.MatchedCount == 0 {
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": m.ID}, options.Count().SetLimit(1))
		if err != nil {
			return models.GroupMessage{}, err
		}
		if n == 0 {
			return models.GroupMessage{}, apperr.NotFound("group message")
		}
		return models.GroupMessage{}, fmt.Errorf("%w: group message %s was modified concurrently", apperr.ErrConflict, m.ID.Hex())
	}
	return m, nil
}

// VisibilityFilter returns the query clause matching the messages of
// groupID that viewerID may see. It mirrors models.GroupMessage.VisibleTo:
// moderators see everything; other viewers see approved messages, tombstones
// of approved messages, and anything they sent themselves.
func VisibilityFilter(groupID primitive.ObjectID, viewerID string, moderator bool) bson.M {
	if moderator {
		return bson.M{"group_id": groupID}
	}
	return bson.M{
		"group_id": groupID,
		"$or": bson.A{
			bson.M{"status": models.StatusApproved},
			bson.M{"status": models.StatusDeleted, "deleted_from": models.StatusApproved},
			bson.M{"sender_id": viewerID},
		},
	}
}

// ListVisible returns one page of the messages viewerID may see in groupID,
// newest first. page is zero-based.
func (s *Store) ListVisible(ctx context.Context, groupID primitive.ObjectID, viewerID string, moderator bool, page, size int) ([]models.GroupMessage, error) {
	if size <= 0 {
		return []models.GroupMessage{}, nil
	}
	if page < 0 {
		page = 0
	}
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(paging.Request{Page: page, Size: size}.Skip()).
		SetLimit(int64(size))
	return s.find(ctx, VisibilityFilter(groupID, viewerID, moderator), opts)
}

// ListPending returns every PENDING message of groupID, newest first.
func (s *Store) ListPending(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMessage, error) {
	filter := bson.M{"group_id": groupID, "status": models.StatusPending}
	return s.find(ctx, filter, options.Find().SetSort(newestFirst))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.GroupMessage, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.GroupMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
