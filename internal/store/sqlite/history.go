package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/store"
)

// GetHistory returns the user's records in insertion order, or nil if none.
func (s *Store) GetHistory(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	if err := store.ValidateUserID(userID); err != nil {
		return nil, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT records FROM history WHERE user_id = ?`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	var records []domain.HistoryRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history (user_id, records, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			records = excluded.records,
			updated_at = excluded.updated_at`,
		userID, string(data), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	return nil
}

// DeleteHistory removes the user's records.
func (s *Store) DeleteHistory(ctx context.Context, userID string) error {
	if err := store.ValidateUserID(userID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// UpdatedAt returns when the user's list was last written.
func (s *Store) UpdatedAt(ctx context.Context, userID string) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM history WHERE user_id = ?`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query updated_at: %w", err)
	}
	return parseTime(raw)
}
