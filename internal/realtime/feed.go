package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"notebook-sync-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const outputBuffer = 1024

// Feed is the in-process change bus. Publishing does not wait for
// subscribers, so delivery order is not guaranteed; consumers order
// changes by revision.
type Feed struct {
	pubSub     *gochannel.GoChannel
	instanceID string
	logger     logger.ILogger
	metrics    *Metrics

	mu           sync.Mutex
	lastRevision int64
	// Highest revision published per remote origin.
	seen map[string]int64
}

func NewFeed(instanceID string, log logger.ILogger, metrics *Metrics) *Feed {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: outputBuffer},
		watermill.NewStdLogger(false, false),
	)
	return &Feed{
		pubSub:     pubSub,
		instanceID: instanceID,
		logger:     log,
		metrics:    metrics,
		seen:       make(map[string]int64),
	}
}

func (f *Feed) InstanceID() string {
	return f.instanceID
}

// NextRevision returns a strictly increasing revision based on wall time.
func (f *Feed) NextRevision() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	rev := time.Now().UnixNano()
	if rev <= f.lastRevision {
		rev = f.lastRevision + 1
	}
	f.lastRevision = rev
	return rev
}

func (f *Feed) PublishMetadata(change *MetadataChange) error {
	if change.Revision == 0 {
		change.Revision = f.NextRevision()
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode metadata change: %w", err)
	}
	return f.publish(TopicMetadata, f.instanceID, change.Revision, payload)
}

func (f *Feed) PublishRows(change *RowsChange) error {
	if change.Revision == 0 {
		change.Revision = f.NextRevision()
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode rows change: %w", err)
	}
	return f.publish(TopicRows, f.instanceID, change.Revision, payload)
}

// PublishRaw publishes an already encoded change on behalf of origin.
func (f *Feed) PublishRaw(topic, origin string, payload []byte) error {
	var head struct {
		Revision int64 `json:"revision"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return fmt.Errorf("decode %s revision: %w", topic, err)
	}
	return f.publish(topic, origin, head.Revision, payload)
}

// Floors returns, per origin, the highest revision that was stamped or
// published before the call. A change at or below its origin's floor was
// committed before the call returned.
func (f *Feed) Floors() Floors {
	f.mu.Lock()
	defer f.mu.Unlock()

	floors := make(Floors, len(f.seen)+1)
	for origin, rev := range f.seen {
		floors[origin] = rev
	}
	floors[f.instanceID] = f.lastRevision
	return floors
}

func (f *Feed) publish(topic, origin string, revision int64, payload []byte) error {
	if origin != f.instanceID {
		f.mu.Lock()
		if revision > f.seen[origin] {
			f.seen[origin] = revision
		}
		f.mu.Unlock()
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataOrigin, origin)

	if err := f.pubSub.Publish(topic, msg); err != nil {
		f.logger.Error("Feed", "Publish failed", map[string]interface{}{"topic": topic, "error": err})
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	if f.metrics != nil {
		label := "local"
		if origin != f.instanceID {
			label = "remote"
		}
		f.metrics.ChangesPublished.WithLabelValues(topic, label).Inc()
	}
	return nil
}

// Subscribe returns the messages of topic until ctx is done. Every message
// must be acked.
func (f *Feed) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return f.pubSub.Subscribe(ctx, topic)
}

func (f *Feed) Close() error {
	return f.pubSub.Close()
}

func decodeMetadata(msg *message.Message) (*MetadataChange, error) {
	var c MetadataChange
	if err := json.Unmarshal(msg.Payload, &c); err != nil {
		return nil, err
	}
	c.Origin = msg.Metadata.Get(metadataOrigin)
	return &c, nil
}

func decodeRows(msg *message.Message) (*RowsChange, error) {
	var c RowsChange
	if err := json.Unmarshal(msg.Payload, &c); err != nil {
		return nil, err
	}
	c.Origin = msg.Metadata.Get(metadataOrigin)
	return &c, nil
}
