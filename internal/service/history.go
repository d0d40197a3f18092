package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/errors"
	"github.com/trantuankiet11884/novel-audio/internal/sse"
	"github.com/trantuankiet11884/novel-audio/internal/store"
)

// EventEmitter publishes events to connected clients.
type EventEmitter interface {
	Emit(event sse.Event)
}

// HistoryService records listening progress, one record per user and novel.
type HistoryService struct {
	store  store.HistoryStore
	events EventEmitter
	logger *slog.Logger
	limit  int
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewHistoryService creates a history service keeping at most limit records
// per user. A non-positive limit uses domain.DefaultHistoryLimit.
func NewHistoryService(s store.HistoryStore, events EventEmitter, limit int, logger *slog.Logger) *HistoryService {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	return &HistoryService{
		store:  s,
		events: events,
		logger: logger,
		limit:  limit,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockUser serializes read-modify-write cycles on one user's list.
func (s *HistoryService) lockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Record upserts the user's position in novel. An existing record for the
// same novel is replaced where it stands; a new one is appended and the
// oldest records are evicted past the limit.
func (s *HistoryService) Record(ctx context.Context, userID string, novel domain.Novel, progress float64, chapterIndex int) error {
	if err := store.ValidateUserID(userID); err != nil {
		return err
	}
	if novel.ID == "" {
		return errors.Validation("novel id is required")
	}
	if chapterIndex < 0 {
		return errors.Validationf("chapter index %d is negative", chapterIndex)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	records, err := s.store.GetHistory(ctx, userID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	rec := domain.HistoryRecord{
		NovelID:      novel.ID,
		NovelTitle:   novel.Title,
		ChapterIndex: chapterIndex,
		Progress:     domain.ClampProgress(progress),
		Timestamp:    s.now().UTC(),
	}
	records = domain.UpsertHistory(records, rec, s.limit)

	if err := s.store.PutHistory(ctx, userID, records); err != nil {
		return fmt.Errorf("save history: %w", err)
	}

	s.logger.Debug("history recorded",
		"user_id", userID,
		"novel_id", novel.ID,
		"chapter_index", chapterIndex,
		"progress", rec.Progress,
	)
	s.emit(sse.NewHistoryUpdatedEvent(userID, rec))
	return nil
}

// List returns the user's records, most recent first.
func (s *HistoryService) List(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	if err := store.ValidateUserID(userID); err != nil {
		return nil, err
	}
	records, err := s.store.GetHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(records) == 0 {
		return []domain.HistoryRecord{}, nil
	}
	return domain.SortByRecent(records), nil
}

// Clear removes every record for the user.
func (s *HistoryService) Clear(ctx context.Context, userID string) error {
	if err := store.ValidateUserID(userID); err != nil {
		return err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	if err := s.store.DeleteHistory(ctx, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.logger.Info("history cleared", "user_id", userID)
	s.emit(sse.NewHistoryRemovedEvent(userID, ""))
	return nil
}

// RemoveOne deletes the record for novelID. It returns a not found error if
// the user has no record for that novel.
func (s *HistoryService) RemoveOne(ctx context.Context, userID, novelID string) error {
	if err := store.ValidateUserID(userID); err != nil {
		return err
	}
	if novelID == "" {
		return errors.Validation("novel id is required")
	}

	unlock := s.lockUser(userID)
	defer unlock()

	records, err := s.store.GetHistory(ctx, userID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	idx := slices.IndexFunc(records, func(r domain.HistoryRecord) bool {
		return r.NovelID == novelID
	})
	if idx < 0 {
		return errors.NotFoundf("no history for novel %s", novelID)
	}
	records = slices.Delete(records, idx, idx+1)

	if err := s.store.PutHistory(ctx, userID, records); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	s.emit(sse.NewHistoryRemovedEvent(userID, novelID))
	return nil
}

func (s *HistoryService) emit(event sse.Event) {
	if s.events != nil {
		s.events.Emit(event)
	}
}
