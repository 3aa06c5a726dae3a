package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/fluffytime/chat-server-go/internal/redis"
)

// Bus is the publish/subscribe transport. Delivery is fire-and-forget,
// at-most-once; durability is the message log's job, not the bus's.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is one attached channel's message feed.
type Subscription interface {
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// RedisBus implements Bus over a Redis connection.
type RedisBus struct {
	client *redisclient.Client
}

func NewRedisBus(client *redisclient.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := b.client.Subscribe(ctx, channel)

	// Confirm the subscription before reporting success; a dead Redis should
	// surface as a join failure, not a silent non-subscription.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	return sub, nil
}
