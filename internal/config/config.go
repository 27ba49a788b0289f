package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerURL        string
	DBFile           string
	Room             string
	HistoryPageSize  int
	TypingInterval   time.Duration
	HandshakeTimeout time.Duration
}

func Load() (*Config, error) {
	typingInterval, err := time.ParseDuration(getEnv("TYPING_INTERVAL", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TYPING_INTERVAL: %w", err)
	}

	handshakeTimeout, err := time.ParseDuration(getEnv("HANDSHAKE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HANDSHAKE_TIMEOUT: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnv("HISTORY_PAGE_SIZE", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_PAGE_SIZE: %w", err)
	}

	cfg := &Config{
		ServerURL:        getEnv("BOLTALKA_SERVER", "http://localhost:8080"),
		DBFile:           getEnv("BOLTALKA_DB", "boltalka.db"),
		Room:             getEnv("BOLTALKA_ROOM", "general"),
		HistoryPageSize:  pageSize,
		TypingInterval:   typingInterval,
		HandshakeTimeout: handshakeTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("BOLTALKA_SERVER is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("BOLTALKA_SERVER must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("BOLTALKA_SERVER is missing a host")
	}

	if c.HistoryPageSize <= 0 {
		return fmt.Errorf("HISTORY_PAGE_SIZE must be greater than 0")
	}

	if c.TypingInterval <= 0 {
		return fmt.Errorf("TYPING_INTERVAL must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
