package service

import (
	"context"
	"time"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/realtime"
	"notebook-sync-be/pkg/events"

	"github.com/google/uuid"
)

const (
	EventNotebookCreated = "NOTEBOOK_CREATED"
	EventNotebookDeleted = "NOTEBOOK_DELETED"
)

// EventPublisher is the domain event bus (NATS in production).
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// ChangePublisher is the realtime change feed.
type ChangePublisher interface {
	PublishMetadata(change *realtime.MetadataChange) error
	PublishRows(change *realtime.RowsChange) error
}

type IPublisherService interface {
	NotebookChanged(notebook *entity.Notebook)
	NotebookDeleted(userId, notebookId uuid.UUID)
	RowsChanged(userId, notebookId uuid.UUID, rows []*entity.Row)
	Event(ctx context.Context, eventType string, data map[string]interface{})
}

type publisherService struct {
	changes ChangePublisher
	events  EventPublisher
	logger  logger.ILogger
}

// NewPublisherService accepts a nil event publisher; events are then skipped.
func NewPublisherService(changes ChangePublisher, eventPublisher EventPublisher, log logger.ILogger) IPublisherService {
	return &publisherService{
		changes: changes,
		events:  eventPublisher,
		logger:  log,
	}
}

// Changes are published after commit. A publish failure is logged; the
// write has already succeeded.

func (s *publisherService) NotebookChanged(notebook *entity.Notebook) {
	err := s.changes.PublishMetadata(&realtime.MetadataChange{
		UserId:     notebook.UserId,
		NotebookId: notebook.Id,
		Notebook:   notebook,
	})
	if err != nil {
		s.logger.Error("Publisher", "Failed to publish notebook change", map[string]interface{}{"notebook_id": notebook.Id, "error": err})
	}
}

func (s *publisherService) NotebookDeleted(userId, notebookId uuid.UUID) {
	err := s.changes.PublishMetadata(&realtime.MetadataChange{
		UserId:     userId,
		NotebookId: notebookId,
	})
	if err != nil {
		s.logger.Error("Publisher", "Failed to publish notebook deletion", map[string]interface{}{"notebook_id": notebookId, "error": err})
	}
}

func (s *publisherService) RowsChanged(userId, notebookId uuid.UUID, rows []*entity.Row) {
	if rows == nil {
		rows = []*entity.Row{}
	}
	err := s.changes.PublishRows(&realtime.RowsChange{
		UserId:     userId,
		NotebookId: notebookId,
		Rows:       rows,
	})
	if err != nil {
		s.logger.Error("Publisher", "Failed to publish rows change", map[string]interface{}{"notebook_id": notebookId, "error": err})
	}
}

func (s *publisherService) Event(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	event := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Publisher", "Failed to publish event", map[string]interface{}{"type": eventType, "error": err.Error()})
	}
}
