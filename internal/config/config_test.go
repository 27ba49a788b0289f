package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("unexpected server URL %q", cfg.ServerURL)
	}
	if cfg.Room != "general" {
		t.Errorf("unexpected room %q", cfg.Room)
	}
	if cfg.HistoryPageSize != 50 {
		t.Errorf("unexpected page size %d", cfg.HistoryPageSize)
	}
	if cfg.TypingInterval != 3*time.Second {
		t.Errorf("unexpected typing interval %v", cfg.TypingInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BOLTALKA_SERVER", "https://chat.example.com")
	t.Setenv("BOLTALKA_ROOM", "random")
	t.Setenv("HISTORY_PAGE_SIZE", "25")
	t.Setenv("TYPING_INTERVAL", "1500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerURL != "https://chat.example.com" {
		t.Errorf("unexpected server URL %q", cfg.ServerURL)
	}
	if cfg.Room != "random" {
		t.Errorf("unexpected room %q", cfg.Room)
	}
	if cfg.HistoryPageSize != 25 {
		t.Errorf("unexpected page size %d", cfg.HistoryPageSize)
	}
	if cfg.TypingInterval != 1500*time.Millisecond {
		t.Errorf("unexpected typing interval %v", cfg.TypingInterval)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad scheme", "BOLTALKA_SERVER", "ftp://example.com"},
		{"no host", "BOLTALKA_SERVER", "http://"},
		{"bad page size", "HISTORY_PAGE_SIZE", "zero"},
		{"negative page size", "HISTORY_PAGE_SIZE", "-1"},
		{"bad interval", "TYPING_INTERVAL", "soon"},
		{"zero interval", "TYPING_INTERVAL", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
