package player

import "github.com/trantuankiet11884/novel-audio/internal/domain"

// EventType names a controller notification.
type EventType string

// Controller notifications.
const (
	EventState          EventType = "player.state"
	EventChapterChanged EventType = "player.chapter_changed"
	EventError          EventType = "player.error"
)

// Event is delivered to the controller's listener after its lock is released,
// so listeners may call back into the controller.
type Event struct {
	Type     EventType
	Snapshot domain.PlayerSnapshot
	Err      error
}
