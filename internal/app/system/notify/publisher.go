package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dalemusser/groupchat/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher delivers one event to subscribers.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// NewRedisClient parses url and verifies the server answers a PING.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return cli, nil
}

// RedisPublisher publishes events as JSON on a pub/sub channel.
type RedisPublisher struct {
	cli     redis.UniversalClient
	channel string
}

func NewRedisPublisher(cli redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{cli: cli, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return p.cli.Publish(ctx, p.channel, payload).Err()
}

// LogPublisher writes events to the log. It is used when no Redis URL is
// configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{log: logger}
}

func (p *LogPublisher) Publish(_ context.Context, n models.Notification) error {
	fields := []zap.Field{
		zap.String("event_id", n.EventID),
		zap.String("type", string(n.Type)),
		zap.String("group_id", n.GroupID.Hex()),
		zap.String("user_id", n.UserID),
		zap.String("actor_id", n.ActorID),
	}
	if n.MessageID != nil {
		fields = append(fields, zap.String("message_id", n.MessageID.Hex()))
	}
	if n.Note != "" {
		fields = append(fields, zap.String("note", n.Note))
	}
	p.log.Info("notification", fields...)
	return nil
}
