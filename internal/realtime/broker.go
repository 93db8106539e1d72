package realtime

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Broker carries opaque payloads between instances on named channels.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe delivers payloads until ctx is done or the returned close
	// func is called.
	Subscribe(ctx context.Context, channel string) (<-chan string, func() error)
}

type redisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) Broker {
	return &redisBroker{rdb: rdb}
}

func (r *redisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.rdb.Publish(ctx, channel, payload).Err()
}

func (r *redisBroker) Subscribe(ctx context.Context, channel string) (<-chan string, func() error) {
	pubsub := r.rdb.Subscribe(ctx, channel)
	in := pubsub.Channel()
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range in {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close
}
