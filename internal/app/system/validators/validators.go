// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/groupchat/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll, log); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema, log); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				log.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("group_conversations", groupConversationsSchema())
	ensure("group_messages", groupMessagesSchema())
	ensure("notification_outbox", outboxSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection reports created==true only if it actually created name.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, log *zap.Logger) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		log.Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			log.Debug("collection exists", zap.String("collection", name))
			return false, nil
		}
		log.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	log.Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *zap.Logger) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	log.Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 115 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func groupConversationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "created_by", "members", "member_ids", "is_private", "message_approval_type", "version"},
			"properties": bson.M{
				"name":       nonBlank,
				"name_ci":    nonBlank,
				"created_by": nonBlank,
				"members":    bson.M{"bsonType": "object"},
				"member_ids": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"is_private": bson.M{"bsonType": "bool"},
				"message_approval_type": bson.M{"enum": bson.A{
					string(models.ApprovalNone), string(models.ApprovalModerator), string(models.ApprovalAdminOnly),
				}},
				"version": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
			},
		},
	}
}

func groupMessagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "sender_id", "message_type", "status", "sent_at", "version"},
			"properties": bson.M{
				"group_id":  bson.M{"bsonType": "objectId"},
				"sender_id": nonBlank,
				"content":   bson.M{"bsonType": "string"},
				"message_type": bson.M{"enum": bson.A{
					string(models.MessageTypeText), string(models.MessageTypeImage), string(models.MessageTypeVideo),
					string(models.MessageTypeAudio), string(models.MessageTypeFile), string(models.MessageTypeSystem),
				}},
				"status": bson.M{"enum": bson.A{
					string(models.StatusPending), string(models.StatusApproved),
					string(models.StatusRejected), string(models.StatusDeleted),
				}},
				"sent_at": bson.M{"bsonType": "date"},
				"version": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
			},
		},
	}
}

func outboxSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"event_id", "type", "group_id", "user_id", "status", "created_at"},
			"properties": bson.M{
				"event_id": nonBlank,
				"type": bson.M{"enum": bson.A{
					string(models.NotificationMemberAdded), string(models.NotificationMemberRemoved),
					string(models.NotificationMessageRejected),
				}},
				"group_id": bson.M{"bsonType": "objectId"},
				"user_id":  nonBlank,
				"status": bson.M{"enum": bson.A{
					string(models.OutboxPending), string(models.OutboxDelivered), string(models.OutboxFailed),
				}},
				"attempts":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
