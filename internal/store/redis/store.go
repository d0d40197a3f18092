// Package redis provides a Redis-backed HistoryStore.
package redis

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/store"
)

const defaultPrefix = "novel-audio:"

// Config holds connection settings.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
	// TTL expires idle history lists. Zero keeps them forever.
	TTL time.Duration
}

// Store keeps each user's history list as a JSON string value.
type Store struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ store.HistoryStore = (*Store)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, store.ErrUnavailable.WithCause(fmt.Errorf("redis ping failed: %w", err))
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	if logger != nil {
		logger.Info("Redis history store connected", "addr", cfg.Addr, "db", cfg.DB)
	}

	return &Store{client: client, prefix: prefix, ttl: cfg.TTL, logger: logger}, nil
}

func (s *Store) key(userID string) string {
	return s.prefix + store.HistoryKey(userID)
}

// GetHistory returns the user's records in insertion order, or nil if none.
func (s *Store) GetHistory(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	if err := store.ValidateUserID(userID); err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, store.ErrUnavailable.WithCause(err)
	}

	var records []domain.HistoryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, store.ErrCorrupt.WithCause(err)
	}
	return records, nil
}

// PutHistory replaces the user's records.
func (s *Store) PutHistory(ctx context.Context, userID string, records []domain.HistoryRecord) error {
	if err := store.ValidateUserID(userID); err != nil {
		return err
	}
	if len(records) == 0 {
		return s.DeleteHistory(ctx, userID)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		return store.ErrUnavailable.WithCause(err)
	}
	return nil
}

// DeleteHistory removes the user's records.
func (s *Store) DeleteHistory(ctx context.Context, userID string) error {
	if err := store.ValidateUserID(userID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return store.ErrUnavailable.WithCause(err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
