// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/groupchat/internal/app/system/auth"
	"github.com/dalemusser/groupchat/internal/app/system/inputval"
	"github.com/dalemusser/groupchat/internal/app/system/paging"
	"github.com/dalemusser/groupchat/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the group chat service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, redis_url, etc.
//   - Environment variables: GROUPCHAT_MONGO_URI, GROUPCHAT_REDIS_URL, etc.
//   - Command-line flags: --mongo_uri, --redis_url, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "groupchat", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Notification delivery
	{Name: "redis_url", Default: "", Desc: "Redis URL for notification pub/sub (blank logs notifications instead)"},
	{Name: "notify_channel", Default: "groupchat.notifications", Desc: "Redis pub/sub channel for notifications"},
	{Name: "notify_poll_interval", Default: "2s", Desc: "How often the relay drains the notification outbox"},
	{Name: "notify_batch_size", Default: 100, Desc: "Outbox records relayed per poll"},
	{Name: "notify_max_attempts", Default: 5, Desc: "Publish attempts before an outbox record is parked"},

	// Caller identity
	{Name: "user_header", Default: auth.DefaultHeader, Desc: "Request header carrying the authenticated user id"},

	// Service limits
	{Name: "max_content_length", Default: inputval.DefaultMaxContentLen, Desc: "Maximum message length in characters"},
	{Name: "default_page_size", Default: paging.DefaultSize, Desc: "Messages per page when none is requested"},
	{Name: "max_page_size", Default: paging.MaxSize, Desc: "Largest page size a caller may request"},
	{Name: "conflict_retries", Default: 3, Desc: "Retries after a concurrent update conflict"},
	{Name: "send_rate_limit", Default: 30, Desc: "Messages one user may send per window (0 disables)"},
	{Name: "send_rate_window", Default: "1m", Desc: "Window for send_rate_limit"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Timeout for health pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document lookups"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for mutations and listings"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for schema setup and batch work"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// GROUPCHAT_* environment variables and command-line flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GROUPCHAT", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisURL:           strings.TrimSpace(appValues.String("redis_url")),
		NotifyChannel:      appValues.String("notify_channel"),
		NotifyPollInterval: appValues.Duration("notify_poll_interval", 2*time.Second),
		NotifyBatchSize:    appValues.Int("notify_batch_size"),
		NotifyMaxAttempts:  appValues.Int("notify_max_attempts"),

		UserHeader: strings.TrimSpace(appValues.String("user_header")),

		MaxContentLength: appValues.Int("max_content_length"),
		DefaultPageSize:  appValues.Int("default_page_size"),
		MaxPageSize:      appValues.Int("max_page_size"),
		ConflictRetries:  appValues.Int("conflict_retries"),
		SendRateLimit:    appValues.Int("send_rate_limit"),
		SendRateWindow:   appValues.Duration("send_rate_window", time.Minute),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),
	}

	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// It catches malformed connection strings and nonsensical limits before
// anything tries to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}

	if appCfg.RedisURL != "" {
		if _, err := redis.ParseURL(appCfg.RedisURL); err != nil {
			logger.Error("invalid Redis URL", zap.Error(err))
			return fmt.Errorf("invalid Redis URL: %w", err)
		}
		if strings.TrimSpace(appCfg.NotifyChannel) == "" {
			return fmt.Errorf("notify_channel must not be empty when redis_url is set")
		}
	}

	positive := []struct {
		name  string
		value int
	}{
		{"notify_batch_size", appCfg.NotifyBatchSize},
		{"notify_max_attempts", appCfg.NotifyMaxAttempts},
		{"max_content_length", appCfg.MaxContentLength},
		{"default_page_size", appCfg.DefaultPageSize},
		{"max_page_size", appCfg.MaxPageSize},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}
	if appCfg.DefaultPageSize > appCfg.MaxPageSize {
		return fmt.Errorf("default_page_size (%d) exceeds max_page_size (%d)",
			appCfg.DefaultPageSize, appCfg.MaxPageSize)
	}
	if appCfg.ConflictRetries < 0 {
		return fmt.Errorf("conflict_retries must not be negative, got %d", appCfg.ConflictRetries)
	}
	if appCfg.SendRateLimit > 0 && appCfg.SendRateWindow <= 0 {
		return fmt.Errorf("send_rate_window must be positive when send_rate_limit is set")
	}
	if appCfg.NotifyPollInterval <= 0 {
		return fmt.Errorf("notify_poll_interval must be positive, got %s", appCfg.NotifyPollInterval)
	}

	return nil
}
