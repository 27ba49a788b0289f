package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"boltalka/internal/api"
	"boltalka/internal/models"
	"boltalka/internal/storage"
)

type fixture struct {
	service *Service
	store   *storage.BboltStorage
	expire  *atomic.Bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var expire atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(models.AuthResponse{
			User:  models.User{ID: 7, Username: "alice", Email: req.Email},
			Token: "tok-123",
		})
	})
	mux.HandleFunc("POST /api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(models.AuthResponse{
			User:  models.User{ID: 8, Username: req.Username, Email: req.Email},
			Token: "tok-456",
		})
	})
	mux.HandleFunc("GET /api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		if expire.Load() || r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]models.User{"user": {ID: 7, Username: "alice"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	apiClient, err := api.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewBboltStorage(filepath.Join(t.TempDir(), "auth_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return &fixture{
		service: NewService(apiClient, store, nil),
		store:   store,
		expire:  &expire,
	}
}

func TestLogin_PersistsSession(t *testing.T) {
	f := newFixture(t)

	user, err := f.service.Login(context.Background(), "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != 7 {
		t.Errorf("expected user 7, got %d", user.ID)
	}
	if f.service.Token() != "tok-123" {
		t.Errorf("token not installed, got %q", f.service.Token())
	}

	record, err := f.store.LoadSession()
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if record.Token != "tok-123" || record.Username != "alice" {
		t.Errorf("persisted record wrong: %+v", record)
	}
}

func TestLogin_BadPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Login(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.store.LoadSession(); !errors.Is(err, models.ErrNotFound) {
		t.Error("failed login persisted a session")
	}
}

func TestRegister_ValidatesUsername(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Register(context.Background(), models.RegisterRequest{
		Username: "bad user!",
		Email:    "bob@example.com",
		Password: "secret",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}

	user, err := f.service.Register(context.Background(), models.RegisterRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Username != "bob" {
		t.Errorf("expected bob, got %q", user.Username)
	}
}

func TestResume(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.Resume(context.Background()); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without a saved session, got %v", err)
	}

	if _, err := f.service.Login(context.Background(), "alice@example.com", "secret"); err != nil {
		t.Fatal(err)
	}

	user, err := f.service.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected alice, got %q", user.Username)
	}
}

func TestResume_StaleTokenClearsSession(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.Login(context.Background(), "alice@example.com", "secret"); err != nil {
		t.Fatal(err)
	}

	f.expire.Store(true)

	_, err := f.service.Resume(context.Background())
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// Session invalidation: credentials cleared, token dropped.
	if _, err := f.store.LoadSession(); !errors.Is(err, models.ErrNotFound) {
		t.Error("stale session not cleared")
	}
	if f.service.Token() != "" {
		t.Errorf("token not cleared, got %q", f.service.Token())
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.Login(context.Background(), "alice@example.com", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := f.service.Logout(); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if f.service.Token() != "" {
		t.Error("token survived logout")
	}
	if _, err := f.store.LoadSession(); !errors.Is(err, models.ErrNotFound) {
		t.Error("session survived logout")
	}
}
