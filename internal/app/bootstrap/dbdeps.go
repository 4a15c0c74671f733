// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	notificationstore "github.com/dalemusser/groupchat/internal/app/store/notifications"
	"github.com/dalemusser/groupchat/internal/app/system/ratelimit"
	"github.com/dalemusser/groupchat/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when no redis_url is configured.
	Redis *redis.Client

	Outbox *notificationstore.Store
	// Relay is built in ConnectDB, started in Startup and stopped in Shutdown.
	Relay *workers.NotificationRelay

	// SendLimiter is nil when send_rate_limit is 0. Its sweeper is stopped
	// in Shutdown.
	SendLimiter *ratelimit.Limiter
}
