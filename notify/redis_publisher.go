package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cyberinferno/dglab-ws/logger"
	"github.com/redis/go-redis/v9"
)

// Client is the part of *redis.Client used for publishing.
type Client interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes events as JSON on a pub/sub channel.
type RedisSink struct {
	client  Client
	channel string
}

// NewRedisSink creates a sink publishing on channel.
func NewRedisSink(client Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

// Deliver publishes e as {"symbol","code","channel","shape","at"}.
func (s *RedisSink) Deliver(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", s.channel, err)
	}

	return nil
}

// NewRedisPublisher starts a Publisher delivering to a Redis channel.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	pub := NewRedisPublisher(rdb, "dglab:feedback", log, 64)
//	manager.OnFeedback(pub.PublishFeedback)
func NewRedisPublisher(client Client, channel string, log logger.Logger, buffer int) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}

	log = log.With(logger.Field{Key: "component", Value: "notify"}, logger.Field{Key: "sink", Value: "redis"}, logger.Field{Key: "channel", Value: channel})
	return NewPublisher(NewRedisSink(client, channel), log, buffer)
}
