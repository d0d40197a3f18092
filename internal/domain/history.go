package domain

import (
	"slices"
	"time"
)

// DefaultHistoryLimit caps the number of history records kept per user.
const DefaultHistoryLimit = 100

// HistoryRecord is a user's listening position in one novel.
type HistoryRecord struct {
	NovelID      string    `json:"novel_id"`
	NovelTitle   string    `json:"novel_title,omitempty"`
	ChapterIndex int       `json:"chapter_index"`
	Progress     float64   `json:"progress"` // 0.0 - 1.0 within the chapter
	Timestamp    time.Time `json:"timestamp"`
}

// UpsertHistory replaces the record for rec.NovelID in place, or appends it.
// When the list grows past limit the oldest entries by insertion order are
// dropped from the front. Access recency does not reorder entries.
func UpsertHistory(records []HistoryRecord, rec HistoryRecord, limit int) []HistoryRecord {
	idx := slices.IndexFunc(records, func(r HistoryRecord) bool {
		return r.NovelID == rec.NovelID
	})
	if idx >= 0 {
		records[idx] = rec
	} else {
		records = append(records, rec)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records
}

// SortByRecent returns a copy of records ordered newest first.
func SortByRecent(records []HistoryRecord) []HistoryRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b HistoryRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return sorted
}

// ClampProgress bounds a progress fraction to [0, 1].
func ClampProgress(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
