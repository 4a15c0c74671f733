// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	notificationstore "github.com/dalemusser/groupchat/internal/app/store/notifications"
	"github.com/dalemusser/groupchat/internal/app/system/indexes"
	"github.com/dalemusser/groupchat/internal/app/system/notify"
	"github.com/dalemusser/groupchat/internal/app/system/ratelimit"
	"github.com/dalemusser/groupchat/internal/app/system/timeouts"
	"github.com/dalemusser/groupchat/internal/app/system/validators"
	"github.com/dalemusser/groupchat/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client and the optional Redis client, then
// builds the notification relay and send limiter on top of them.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	connCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(connCtx, options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("groupchat").
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize))
	if err != nil {
		logger.Error("MongoDB connect failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Error("MongoDB ping failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}

	var publisher notify.Publisher
	if appCfg.RedisURL != "" {
		rdb, err := notify.NewRedisClient(connCtx, appCfg.RedisURL)
		if err != nil {
			_ = client.Disconnect(context.Background())
			logger.Error("Redis connect failed", zap.Error(err))
			return DBDeps{}, err
		}
		deps.Redis = rdb
		publisher = notify.NewRedisPublisher(rdb, appCfg.NotifyChannel)
		logger.Info("connected to Redis", zap.String("channel", appCfg.NotifyChannel))
	} else {
		publisher = notify.NewLogPublisher(logger)
		logger.Info("redis_url not set; notifications will be logged")
	}

	deps.Outbox = notificationstore.New(deps.MongoDatabase)
	deps.Relay = workers.NewNotificationRelay(deps.Outbox, publisher, logger, workers.RelayConfig{
		Interval:    appCfg.NotifyPollInterval,
		BatchSize:   appCfg.NotifyBatchSize,
		MaxAttempts: appCfg.NotifyMaxAttempts,
	})
	deps.SendLimiter = ratelimit.New(appCfg.SendRateLimit, appCfg.SendRateWindow)

	return deps, nil
}

// EnsureSchema creates collections, validators and indexes. Both passes are
// idempotent, so this runs on every start.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if err := validators.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		logger.Error("schema validators failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return err
	}
	return nil
}
