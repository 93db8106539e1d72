package service

import (
	"context"
	"fmt"
	"time"

	"notebook-sync-be/internal/dto"
	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/repository/memory"
	"notebook-sync-be/internal/repository/specification"
	"notebook-sync-be/internal/repository/unitofwork"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthStateNotifier is told whenever a session signs in or out. A nil user
// means signed out.
type AuthStateNotifier interface {
	AuthStateChanged(sessionId uuid.UUID, user *dto.UserResponse)
}

type IOAuthService interface {
	GetLoginURL(provider string) (string, error)
	HandleCallback(ctx context.Context, req *dto.OAuthCallbackRequest) (*dto.LoginResponse, error)
}

type OAuthOptions struct {
	JwtSecret  string
	SessionTTL time.Duration
}

type oauthService struct {
	uowFactory unitofwork.RepositoryFactory
	providers  map[string]IdentityProvider
	states     *memory.OAuthStateStore
	notifier   AuthStateNotifier
	logger     logger.ILogger
	opts       OAuthOptions
	now        func() time.Time
}

func NewOAuthService(
	uowFactory unitofwork.RepositoryFactory,
	providers []IdentityProvider,
	states *memory.OAuthStateStore,
	notifier AuthStateNotifier,
	log logger.ILogger,
	opts OAuthOptions,
) IOAuthService {
	byName := make(map[string]IdentityProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &oauthService{
		uowFactory: uowFactory,
		providers:  byName,
		states:     states,
		notifier:   notifier,
		logger:     log,
		opts:       opts,
		now:        time.Now,
	}
}

func (s *oauthService) GetLoginURL(provider string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnsupportedProvider
	}

	state, err := s.states.Issue(provider)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return p.AuthCodeURL(state), nil
}

func (s *oauthService) HandleCallback(ctx context.Context, req *dto.OAuthCallbackRequest) (*dto.LoginResponse, error) {
	p, ok := s.providers[req.Provider]
	if !ok {
		return nil, ErrUnsupportedProvider
	}
	if req.Code == "" {
		return nil, ErrMissingOAuthCode
	}
	if !s.states.Consume(req.Provider, req.State) {
		return nil, ErrInvalidOAuthState
	}

	profile, err := p.FetchProfile(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("fetch %s profile: %w", req.Provider, err)
	}

	now := s.now()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	user, err := s.upsertUser(ctx, uow, profile, now)
	if err != nil {
		return nil, err
	}

	err = uow.UserRepository().SaveUserProvider(ctx, &entity.UserProvider{
		Id:             uuid.New(),
		UserId:         user.Id,
		ProviderName:   req.Provider,
		ProviderUserId: profile.ProviderUserId,
		AvatarURL:      profile.Picture,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("save provider link: %w", err)
	}

	session := &entity.UserSession{
		Id:        uuid.New(),
		UserId:    user.Id,
		Provider:  req.Provider,
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
		ExpiresAt: now.Add(s.opts.SessionTTL),
		CreatedAt: now,
	}
	if err := uow.UserRepository().CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{
		"user_id": user.Id.String(),
		"sid":     session.Id.String(),
		"exp":     session.ExpiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.opts.JwtSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info("OAuth", "User signed in", map[string]interface{}{
		"user_id":    user.Id,
		"session_id": session.Id,
		"provider":   req.Provider,
	})

	res := toUserResponse(user)
	if s.notifier != nil {
		s.notifier.AuthStateChanged(session.Id, res)
	}

	return &dto.LoginResponse{
		Token: signed,
		User:  res,
	}, nil
}

// upsertUser finds the user by email or creates one, refreshing the name and
// avatar from the provider.
func (s *oauthService) upsertUser(ctx context.Context, uow unitofwork.UnitOfWork, profile *ProviderProfile, now time.Time) (*entity.User, error) {
	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: profile.Email})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	var avatar *string
	if profile.Picture != "" {
		avatar = &profile.Picture
	}

	if user == nil {
		user = &entity.User{
			Id:        uuid.New(),
			Email:     profile.Email,
			FullName:  profile.Name,
			AvatarURL: avatar,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return user, nil
	}

	changed := false
	if profile.Name != "" && profile.Name != user.FullName {
		user.FullName = profile.Name
		changed = true
	}
	if avatar != nil && (user.AvatarURL == nil || *user.AvatarURL != *avatar) {
		user.AvatarURL = avatar
		changed = true
	}
	if changed {
		user.UpdatedAt = now
		if err := uow.UserRepository().Update(ctx, user); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	return user, nil
}

func toUserResponse(user *entity.User) *dto.UserResponse {
	return &dto.UserResponse{
		Uid:         user.Id,
		Email:       user.Email,
		DisplayName: user.FullName,
		PhotoURL:    user.AvatarURL,
	}
}
