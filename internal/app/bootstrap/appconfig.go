// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework side (ports, TLS, logging, CORS); everything the group
// conversation service needs lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Notification delivery. A blank RedisURL sends events to the log.
	RedisURL           string        // e.g., redis://localhost:6379/0
	NotifyChannel      string        // Redis pub/sub channel
	NotifyPollInterval time.Duration // how often the relay drains the outbox
	NotifyBatchSize    int
	NotifyMaxAttempts  int

	// Header the gateway uses to pass the authenticated user id.
	UserHeader string

	// Service limits
	MaxContentLength int
	DefaultPageSize  int
	MaxPageSize      int
	ConflictRetries  int

	// Per-caller send limit; SendRateLimit <= 0 disables it.
	SendRateLimit  int
	SendRateWindow time.Duration

	// Operation timeouts
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
