package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/store"
	"github.com/trantuankiet11884/novel-audio/internal/store/storetest"
)

func TestStore_History(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.HistoryStore {
		s, err := store.NewInMemory(nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := t.Context()

	s, err := store.New(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.PutHistory(ctx, "user-1", []domain.HistoryRecord{{NovelID: "novel-a", ChapterIndex: 7}}))
	require.NoError(t, s.Close())

	s, err = store.New(path, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetHistory(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].ChapterIndex)
}

func TestHistoryKey(t *testing.T) {
	assert.Equal(t, "history:user-1", store.HistoryKey("user-1"))
}
