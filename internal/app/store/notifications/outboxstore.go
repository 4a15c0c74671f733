// internal/app/store/notifications/outboxstore.go
package outboxstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the notification outbox collection.
const Collection = "notification_outbox"

// Store is the notification outbox. Records are written once by the
// dispatcher and drained by the relay worker.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Enqueue stores n as a pending record.
func (s *Store) Enqueue(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.ID = primitive.NewObjectID()
	n.Status = models.OutboxPending
	n.Attempts = 0
	n.ClaimedUntil = nil
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// Claim leases up to limit pending records, oldest first, until now+lease.
// A record whose lease expired (relay crashed mid-publish) can be claimed
// again.
func (s *Store) Claim(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]models.Notification, error) {
	filter := bson.M{
		"status": models.OutboxPending,
		"$or": bson.A{
			bson.M{"claimed_until": bson.M{"$exists": false}},
			bson.M{"claimed_until": nil},
			bson.M{"claimed_until": bson.M{"$lte": now}},
		},
	}
	update := bson.M{"$set": bson.M{"claimed_until": now.Add(lease)}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetReturnDocument(options.After)

	var out []models.Notification
	for len(out) < limit {
		var n models.Notification
		err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&n)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkDelivered records a successful publish.
func (s *Store) MarkDelivered(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"status": models.OutboxDelivered, "delivered_at": now},
		"$unset": bson.M{"claimed_until": ""},
	})
	return err
}

// MarkAttemptFailed records a failed publish and releases the lease. Once
// attempts reach maxAttempts the record is parked as failed. It reports
// whether the record was parked.
func (s *Store) MarkAttemptFailed(ctx context.Context, id primitive.ObjectID, cause string, maxAttempts int) (parked bool, err error) {
	var n models.Notification
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc":   bson.M{"attempts": 1},
			"$set":   bson.M{"last_error": cause},
			"$unset": bson.M{"claimed_until": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err != nil {
		return false, err
	}
	if n.Attempts < maxAttempts {
		return false, nil
	}
	_, err = s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": models.OutboxFailed}})
	return err == nil, err
}

// CountByStatus returns the number of records in status.
func (s *Store) CountByStatus(ctx context.Context, status models.OutboxStatus) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": status})
}

// PurgeDelivered deletes delivered records older than before.
func (s *Store) PurgeDelivered(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"status":       models.OutboxDelivered,
		"delivered_at": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
