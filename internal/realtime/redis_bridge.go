package realtime

import (
	"context"
	"encoding/json"

	"notebook-sync-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/sync/errgroup"
)

const RedisChannel = "notebook_changes"

type bridgeEnvelope struct {
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBridge mirrors the local feed onto a Redis channel so listeners on
// other instances see the same changes.
type RedisBridge struct {
	feed   *Feed
	broker Broker
	logger logger.ILogger
}

func NewRedisBridge(feed *Feed, broker Broker, log logger.ILogger) *RedisBridge {
	return &RedisBridge{feed: feed, broker: broker, logger: log}
}

// Run forwards in both directions until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	meta, err := b.feed.Subscribe(ctx, TopicMetadata)
	if err != nil {
		return err
	}
	rows, err := b.feed.Subscribe(ctx, TopicRows)
	if err != nil {
		return err
	}

	remote, closeRemote := b.broker.Subscribe(ctx, RedisChannel)
	defer closeRemote()

	b.logger.Info("RedisBridge", "Bridge started", map[string]interface{}{"instance_id": b.feed.InstanceID()})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg, ok := <-meta:
				if !ok {
					return nil
				}
				b.forward(gctx, TopicMetadata, msg)
			case msg, ok := <-rows:
				if !ok {
					return nil
				}
				b.forward(gctx, TopicRows, msg)
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg, ok := <-remote:
				if !ok {
					return nil
				}
				b.receive(msg)
			}
		}
	})
	return g.Wait()
}

func (b *RedisBridge) forward(ctx context.Context, topic string, msg *message.Message) {
	defer msg.Ack()

	// Only changes that started here go out; remote ones are already on Redis.
	if msg.Metadata.Get(metadataOrigin) != b.feed.InstanceID() {
		return
	}

	data, err := json.Marshal(bridgeEnvelope{
		Origin:  b.feed.InstanceID(),
		Topic:   topic,
		Payload: json.RawMessage(msg.Payload),
	})
	if err != nil {
		b.logger.Error("RedisBridge", "Encode failed", map[string]interface{}{"error": err})
		return
	}
	if err := b.broker.Publish(ctx, RedisChannel, data); err != nil {
		b.logger.Error("RedisBridge", "Redis publish failed", map[string]interface{}{"topic": topic, "error": err})
	}
}

func (b *RedisBridge) receive(payload string) {
	var env bridgeEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("RedisBridge", "Dropping malformed message", map[string]interface{}{"error": err.Error()})
		return
	}
	if env.Origin == b.feed.InstanceID() {
		return
	}
	if env.Topic != TopicMetadata && env.Topic != TopicRows {
		return
	}
	if err := b.feed.PublishRaw(env.Topic, env.Origin, env.Payload); err != nil {
		b.logger.Error("RedisBridge", "Local republish failed", map[string]interface{}{"error": err})
	}
}
