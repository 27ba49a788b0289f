package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"boltalka/internal/api"
	"boltalka/internal/content"
	"boltalka/internal/models"
	"boltalka/internal/storage"
)

// Service owns the credential lifecycle: it performs login and registration
// against the server, holds the bearer token in the api client, and persists
// the session so a later run can resume it. The chat core never touches
// credentials; it receives identity and token by injection.
type Service struct {
	api   *api.Client
	store *storage.BboltStorage
	log   *slog.Logger
	now   func() time.Time
}

func NewService(apiClient *api.Client, store *storage.BboltStorage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:   apiClient,
		store: store,
		log:   logger,
		now:   time.Now,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	s.install(resp)
	return resp.User, nil
}

func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	if err := content.ValidateUsername(req.Username); err != nil {
		return models.User{}, err
	}
	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return models.User{}, err
	}
	s.install(resp)
	return resp.User, nil
}

// Resume restores a previously saved session and validates the token against
// the server. A 401 means the token went stale: the saved session is cleared
// and the caller must log in again.
func (s *Service) Resume(ctx context.Context) (models.User, error) {
	record, err := s.store.LoadSession()
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.User{}, models.ErrNotFound
		}
		return models.User{}, fmt.Errorf("failed to load saved session: %w", err)
	}

	s.api.SetToken(record.Token)

	user, err := s.api.Me(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			s.log.Info("saved session expired, clearing credentials", "username", record.Username)
			s.invalidate()
		}
		return models.User{}, err
	}

	return user, nil
}

func (s *Service) Logout() error {
	s.invalidate()
	return nil
}

func (s *Service) Token() string {
	return s.api.Token()
}

func (s *Service) install(resp models.AuthResponse) {
	s.api.SetToken(resp.Token)

	record := storage.SessionRecord{
		UserID:   resp.User.ID,
		Username: resp.User.Username,
		Email:    resp.User.Email,
		FullName: resp.User.FullName,
		Avatar:   resp.User.Avatar,
		Token:    resp.Token,
		SavedAt:  s.now().Unix(),
	}
	if err := s.store.SaveSession(record); err != nil {
		s.log.Warn("failed to persist session", "error", err)
	}
}

func (s *Service) invalidate() {
	s.api.SetToken("")
	if err := s.store.DeleteSession(); err != nil {
		s.log.Warn("failed to delete saved session", "error", err)
	}
}
