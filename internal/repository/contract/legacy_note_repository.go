package contract

import (
	"context"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/repository/specification"
)

type LegacyNoteRepository interface {
	Create(ctx context.Context, note *entity.LegacyNote) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LegacyNote, error)
	DeleteAll(ctx context.Context) (int64, error)
}
