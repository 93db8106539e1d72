package contract

import (
	"context"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// Provider
	SaveUserProvider(ctx context.Context, provider *entity.UserProvider) error // Upsert on provider identity

	// Sessions
	CreateSession(ctx context.Context, session *entity.UserSession) error
	FindSession(ctx context.Context, specs ...specification.Specification) (*entity.UserSession, error)
	RevokeSession(ctx context.Context, id uuid.UUID) error
}
