package domain

// PlayerStatus is a state of the playback state machine.
type PlayerStatus string

// Player states. Transitions:
//
//	Idle -> Loading -> Ready -> Playing <-> Paused
//	Ready|Playing|Paused -> Loading   (chapter change, re-synthesis)
//	Loading -> Idle                   (fetch failure)
const (
	StatusIdle    PlayerStatus = "idle"
	StatusLoading PlayerStatus = "loading"
	StatusReady   PlayerStatus = "ready"
	StatusPlaying PlayerStatus = "playing"
	StatusPaused  PlayerStatus = "paused"
)

// PlaybackState is the transport-facing state rendered by a UI shell.
type PlaybackState struct {
	ChapterIndex  int     `json:"chapter_index"`
	IsPlaying     bool    `json:"is_playing"`
	CurrentTime   float64 `json:"current_time"` // seconds
	Duration      float64 `json:"duration"`     // seconds, 0 until audio is loaded
	SelectedVoice string  `json:"selected_voice"`
	PlaybackRate  float64 `json:"playback_rate"`
	IsLoading     bool    `json:"is_loading"`
}

// ClampTime bounds t to [0, Duration].
func (s PlaybackState) ClampTime(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > s.Duration {
		return s.Duration
	}
	return t
}

// ResetTransport clears per-chapter transport fields.
func (s *PlaybackState) ResetTransport() {
	s.IsPlaying = false
	s.CurrentTime = 0
	s.Duration = 0
}

// PlayerSnapshot is a point-in-time copy of a player for the API and event stream.
type PlayerSnapshot struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Novel        Novel         `json:"novel"`
	Status       PlayerStatus  `json:"status"`
	State        PlaybackState `json:"state"`
	SegmentIndex int           `json:"segment_index"`
	SegmentCount int           `json:"segment_count"`
	CanPlay      bool          `json:"can_play"`
	LastError    string        `json:"last_error,omitempty"`
}
