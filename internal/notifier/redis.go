package notifier

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"auction-engine/internal/models"
)

// RedisConfig holds connection parameters for the Redis publisher
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	TLSEnabled    bool
	ChannelPrefix string
}

// publisher is the slice of *redis.Client the sender needs
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSender publishes events as JSON on "<prefix><auction id>" so that
// notification workers outside this process can format and deliver them.
type RedisSender struct {
	rdb    publisher
	prefix string
}

// NewRedisClient connects to Redis and verifies the connection with a ping
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

func NewRedisSender(rdb publisher, prefix string) *RedisSender {
	if prefix == "" {
		prefix = "auction:events:"
	}
	return &RedisSender{rdb: rdb, prefix: prefix}
}

func (s *RedisSender) Name() string { return "redis" }

func (s *RedisSender) Send(ctx context.Context, evt models.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("redis: encode event %s: %w", evt.ID, err)
	}
	channel := s.prefix + evt.AuctionID
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}
