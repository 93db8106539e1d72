package realtime

import (
	"context"
	"fmt"
	"sync"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// SnapshotLoader reads the current state a listener starts from.
type SnapshotLoader interface {
	// LoadNotebook returns nil when the notebook does not exist for userId.
	LoadNotebook(ctx context.Context, userId, notebookId uuid.UUID) (*entity.NotebookSnapshot, error)
	LoadUserNotebooks(ctx context.Context, userId uuid.UUID) ([]*entity.NotebookSnapshot, error)
}

// Unsubscribe stops a listener and waits for its goroutine to exit. It is
// idempotent and must not be called from the listener's own callback.
type Unsubscribe func()

type NotebookCallback func(snapshot *entity.NotebookSnapshot)

type NotebookListCallback func(snapshots []*entity.NotebookSnapshot)

type IListenerService interface {
	ListenToNotebook(ctx context.Context, userId, notebookId uuid.UUID, cb NotebookCallback) (Unsubscribe, error)
	ListenToUserNotebooks(ctx context.Context, userId uuid.UUID, cb NotebookListCallback) (Unsubscribe, error)
}

type listenerService struct {
	feed    *Feed
	loader  SnapshotLoader
	logger  logger.ILogger
	metrics *Metrics
}

func NewListenerService(feed *Feed, loader SnapshotLoader, log logger.ILogger, metrics *Metrics) IListenerService {
	return &listenerService{
		feed:    feed,
		loader:  loader,
		logger:  log,
		metrics: metrics,
	}
}

// subscription is the pair of feed channels owned by one listener.
type subscription struct {
	ctx    context.Context
	cancel context.CancelFunc
	meta   <-chan *message.Message
	rows   <-chan *message.Message
	floors Floors
}

// subscribe opens both streams before any snapshot is read, so no change
// committed after the read can be missed.
func (s *listenerService) subscribe(parent context.Context) (*subscription, error) {
	ctx, cancel := context.WithCancel(parent)

	meta, err := s.feed.Subscribe(ctx, TopicMetadata)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe metadata: %w", err)
	}
	rows, err := s.feed.Subscribe(ctx, TopicRows)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe rows: %w", err)
	}

	return &subscription{ctx: ctx, cancel: cancel, meta: meta, rows: rows, floors: s.feed.Floors()}, nil
}

func (s *listenerService) ListenToNotebook(ctx context.Context, userId, notebookId uuid.UUID, cb NotebookCallback) (Unsubscribe, error) {
	sub, err := s.subscribe(ctx)
	if err != nil {
		return nil, err
	}

	initial, err := s.loader.LoadNotebook(sub.ctx, userId, notebookId)
	if err != nil {
		sub.cancel()
		return nil, fmt.Errorf("load notebook: %w", err)
	}

	merger := NewMerger(sub.floors)
	merger.Seed(initial)

	match := func(uid, nid uuid.UUID) bool { return uid == userId && nid == notebookId }
	emit := func(snapshot *entity.NotebookSnapshot) { cb(snapshot) }

	return s.run(sub, "notebook", func() { cb(merger.Get(notebookId)) }, merger, match, emit), nil
}

func (s *listenerService) ListenToUserNotebooks(ctx context.Context, userId uuid.UUID, cb NotebookListCallback) (Unsubscribe, error) {
	sub, err := s.subscribe(ctx)
	if err != nil {
		return nil, err
	}

	initial, err := s.loader.LoadUserNotebooks(sub.ctx, userId)
	if err != nil {
		sub.cancel()
		return nil, fmt.Errorf("load notebooks: %w", err)
	}

	merger := NewMerger(sub.floors)
	for _, snapshot := range initial {
		merger.Seed(snapshot)
	}

	match := func(uid, _ uuid.UUID) bool { return uid == userId }
	emitAll := func(*entity.NotebookSnapshot) { cb(merger.Snapshots()) }

	return s.run(sub, "notebook_list", func() { cb(merger.Snapshots()) }, merger, match, emitAll), nil
}

// run delivers the initial state and then every merged change on a single
// goroutine, so callbacks never run concurrently.
func (s *listenerService) run(
	sub *subscription,
	kind string,
	initial func(),
	merger *Merger,
	match func(userId, notebookId uuid.UUID) bool,
	emit func(*entity.NotebookSnapshot),
) Unsubscribe {
	done := make(chan struct{})
	if s.metrics != nil {
		s.metrics.ActiveListeners.WithLabelValues(kind).Inc()
	}

	go func() {
		defer close(done)
		defer func() {
			if s.metrics != nil {
				s.metrics.ActiveListeners.WithLabelValues(kind).Dec()
			}
		}()

		initial()

		for {
			select {
			case <-sub.ctx.Done():
				return

			case msg, ok := <-sub.meta:
				if !ok {
					return
				}
				change, err := decodeMetadata(msg)
				msg.Ack()
				if err != nil {
					s.logger.Warn("Listener", "Dropping malformed metadata change", map[string]interface{}{"error": err.Error()})
					continue
				}
				if !match(change.UserId, change.NotebookId) {
					continue
				}
				if snapshot, ok := merger.ApplyMetadata(change); ok {
					emit(snapshot)
				}

			case msg, ok := <-sub.rows:
				if !ok {
					return
				}
				change, err := decodeRows(msg)
				msg.Ack()
				if err != nil {
					s.logger.Warn("Listener", "Dropping malformed rows change", map[string]interface{}{"error": err.Error()})
					continue
				}
				if !match(change.UserId, change.NotebookId) {
					continue
				}
				if snapshot, ok := merger.ApplyRows(change); ok {
					emit(snapshot)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.cancel()
			<-done
		})
	}
}
