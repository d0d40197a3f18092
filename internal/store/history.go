package store

import (
	"context"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
)

const historyPrefix = "history:"

// HistoryKey returns the storage key for a user's history list.
func HistoryKey(userID string) string {
	return historyPrefix + userID
}

// ValidateUserID rejects an empty user identity.
func ValidateUserID(userID string) error {
	if userID == "" {
		return ErrInvalidInput.WithMessage("user id is required")
	}
	return nil
}

// GetHistory returns the user's records in insertion order, or nil if none.
func (s *Store) GetHistory(_ context.Context, userID string) ([]domain.HistoryRecord, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}

	var records []domain.HistoryRecord
	err := s.get([]byte(HistoryKey(userID)), &records)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, ErrCorrupt.WithCause(err)
	}
	return records, nil
}

// PutHistory replaces the user's records.
func (s *Store) PutHistory(_ context.Context, userID string, records []domain.HistoryRecord) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if len(records) == 0 {
		return s.delete([]byte(HistoryKey(userID)))
	}
	return s.set([]byte(HistoryKey(userID)), records)
}

// DeleteHistory removes the user's records. Deleting a missing list is not an error.
func (s *Store) DeleteHistory(_ context.Context, userID string) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	return s.delete([]byte(HistoryKey(userID)))
}
