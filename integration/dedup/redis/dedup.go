package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long event IDs are remembered. Providers redeliver
// webhooks for at most a few days; a week of memory covers them.
const DefaultTTL = 7 * 24 * time.Hour

// keyPrefix namespaces dedup keys in a shared Redis.
const keyPrefix = "espbridge:event:"

// Config holds the Redis connection settings for the deduper.
type Config struct {
	RedisURL string        `env:"REDIS_URL,required"`
	TTL      time.Duration `env:"DEDUP_TTL" envDefault:"168h"`
}

// Deduper implements webhook.Deduper on Redis. Safe for concurrent use;
// all instances sharing the connection see the same event set.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection before returning the
// deduper.
func New(ctx context.Context, cfg Config) (*Deduper, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client. A non-positive ttl uses
// DefaultTTL.
func NewWithClient(client *redis.Client, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Deduper{client: client, ttl: ttl}
}

// Seen atomically records the event ID and reports whether it was already
// present. SetNX returning false means another observer got there first.
func (d *Deduper) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("empty event id")
	}
	stored, err := d.client.SetNX(ctx, keyPrefix+eventID, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !stored, nil
}

// Close releases the underlying connection.
func (d *Deduper) Close() error {
	return d.client.Close()
}
