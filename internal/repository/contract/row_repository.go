package contract

import (
	"context"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/repository/specification"

	"github.com/google/uuid"
)

type RowRepository interface {
	Create(ctx context.Context, row *entity.Row) error
	CreateMany(ctx context.Context, rows []*entity.Row) error
	Update(ctx context.Context, row *entity.Row) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByNotebookId(ctx context.Context, notebookId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Row, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Row, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
