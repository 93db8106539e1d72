package service

import (
	"context"
	"fmt"
	"time"

	"notebook-sync-be/internal/dto"
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/repository/memory"
	"notebook-sync-be/internal/repository/specification"
	"notebook-sync-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IAuthService interface {
	SignOut(ctx context.Context, userId, sessionId uuid.UUID) error
	CurrentUser(ctx context.Context, userId uuid.UUID) (*dto.UserResponse, error)
	ValidateSession(ctx context.Context, sessionId uuid.UUID) error
}

type authService struct {
	uowFactory unitofwork.RepositoryFactory
	sessions   *memory.SessionCache
	notifier   AuthStateNotifier
	logger     logger.ILogger
	now        func() time.Time
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	sessions *memory.SessionCache,
	notifier AuthStateNotifier,
	log logger.ILogger,
) IAuthService {
	return &authService{
		uowFactory: uowFactory,
		sessions:   sessions,
		notifier:   notifier,
		logger:     log,
		now:        time.Now,
	}
}

// SignOut revokes the session. Revoking twice is a no-op.
func (s *authService) SignOut(ctx context.Context, userId, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.UserRepository().FindSession(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return ErrSessionInvalid
	}

	if session.RevokedAt == nil {
		if err := uow.UserRepository().RevokeSession(ctx, sessionId); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	}
	s.sessions.Delete(sessionId)

	s.logger.Info("Auth", "User signed out", map[string]interface{}{"user_id": userId, "session_id": sessionId})
	if s.notifier != nil {
		s.notifier.AuthStateChanged(sessionId, nil)
	}
	return nil
}

func (s *authService) CurrentUser(ctx context.Context, userId uuid.UUID) (*dto.UserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return toUserResponse(user), nil
}

func (s *authService) ValidateSession(ctx context.Context, sessionId uuid.UUID) error {
	now := s.now()
	if session, ok := s.sessions.Get(sessionId); ok {
		if session.IsActive(now) {
			return nil
		}
		s.sessions.Delete(sessionId)
		return ErrSessionInvalid
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.UserRepository().FindSession(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	if session == nil || !session.IsActive(now) {
		return ErrSessionInvalid
	}

	s.sessions.Save(session)
	return nil
}
