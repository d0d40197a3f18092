package domain

// Novel identifies the work a player is reading aloud.
type Novel struct {
	ID            string `json:"id"`
	Title         string `json:"title,omitempty"`
	TotalChapters int    `json:"total_chapters"`
}

// HasChapter reports whether index is a valid chapter position.
func (n Novel) HasChapter(index int) bool {
	return index >= 0 && index < n.TotalChapters
}

// IsLastChapter reports whether index is the final chapter.
func (n Novel) IsLastChapter(index int) bool {
	return index == n.TotalChapters-1
}
