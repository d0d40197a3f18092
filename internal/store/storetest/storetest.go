// Package storetest holds behavior tests shared by every HistoryStore backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/store"
)

// Run exercises a HistoryStore. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.HistoryStore) {
	t.Helper()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []domain.HistoryRecord{
		{NovelID: "novel-a", NovelTitle: "A", ChapterIndex: 3, Progress: 0.2, Timestamp: ts},
		{NovelID: "novel-b", ChapterIndex: 0, Progress: 0.9, Timestamp: ts.Add(time.Minute)},
	}

	t.Run("missing user returns empty", func(t *testing.T) {
		s := newStore(t)
		got, err := s.GetHistory(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("put then get keeps order and fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.PutHistory(ctx, "user-1", recs))
		got, err := s.GetHistory(ctx, "user-1")
		require.NoError(t, err)

		require.Len(t, got, 2)
		assert.Equal(t, "novel-a", got[0].NovelID)
		assert.Equal(t, "A", got[0].NovelTitle)
		assert.Equal(t, 3, got[0].ChapterIndex)
		assert.InDelta(t, 0.2, got[0].Progress, 0.0001)
		assert.True(t, ts.Equal(got[0].Timestamp))
		assert.Equal(t, "novel-b", got[1].NovelID)
	})

	t.Run("put replaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.PutHistory(ctx, "user-1", recs))
		require.NoError(t, s.PutHistory(ctx, "user-1", recs[1:]))

		got, err := s.GetHistory(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "novel-b", got[0].NovelID)
	})

	t.Run("users are isolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.PutHistory(ctx, "user-1", recs))
		got, err := s.GetHistory(ctx, "user-2")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.PutHistory(ctx, "user-1", recs))
		require.NoError(t, s.DeleteHistory(ctx, "user-1"))
		require.NoError(t, s.DeleteHistory(ctx, "user-1"), "deleting twice is fine")

		got, err := s.GetHistory(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("put empty clears", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.PutHistory(ctx, "user-1", recs))
		require.NoError(t, s.PutHistory(ctx, "user-1", nil))

		got, err := s.GetHistory(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty user id rejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetHistory(ctx, "")
		assert.ErrorIs(t, err, store.ErrInvalidInput)
		assert.ErrorIs(t, s.PutHistory(ctx, "", recs), store.ErrInvalidInput)
		assert.ErrorIs(t, s.DeleteHistory(ctx, ""), store.ErrInvalidInput)
	})
}
