// Package sse streams player and history changes to connected clients.
package sse

import (
	"time"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventPlayerState carries a full player snapshot after any state change.
	EventPlayerState EventType = "player.state"
	// EventPlayerChapterChanged fires when a player starts loading another chapter.
	EventPlayerChapterChanged EventType = "player.chapter_changed"
	// EventPlayerError reports a failed chapter or audio load.
	EventPlayerError EventType = "player.error"
	// EventPlayerClosed fires when a player session is torn down.
	EventPlayerClosed EventType = "player.closed"

	// EventHistoryUpdated fires when a history record is written.
	EventHistoryUpdated EventType = "history.updated"
	// EventHistoryRemoved fires when one or all records are removed.
	EventHistoryRemoved EventType = "history.removed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID limits delivery to one user's clients. Empty means everyone.
	UserID string `json:"-"`
}

// PlayerEventData is the payload for player events.
type PlayerEventData struct {
	Player domain.PlayerSnapshot `json:"player"`
	Error  string                `json:"error,omitempty"`
}

// PlayerClosedEventData is the payload for player.closed.
type PlayerClosedEventData struct {
	PlayerID string `json:"player_id"`
}

// HistoryEventData is the payload for history.updated.
type HistoryEventData struct {
	Record domain.HistoryRecord `json:"record"`
}

// HistoryRemovedEventData is the payload for history.removed. An empty
// NovelID means the whole list was cleared.
type HistoryRemovedEventData struct {
	NovelID string `json:"novel_id,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewPlayerEvent creates a player event of type t addressed to the snapshot's user.
func NewPlayerEvent(t EventType, snap domain.PlayerSnapshot, errMsg string) Event {
	return Event{
		Type:      t,
		Data:      PlayerEventData{Player: snap, Error: errMsg},
		Timestamp: time.Now(),
		UserID:    snap.UserID,
	}
}

// NewPlayerClosedEvent creates a player.closed event.
func NewPlayerClosedEvent(userID, playerID string) Event {
	return Event{
		Type:      EventPlayerClosed,
		Data:      PlayerClosedEventData{PlayerID: playerID},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewHistoryUpdatedEvent creates a history.updated event.
func NewHistoryUpdatedEvent(userID string, rec domain.HistoryRecord) Event {
	return Event{
		Type:      EventHistoryUpdated,
		Data:      HistoryEventData{Record: rec},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewHistoryRemovedEvent creates a history.removed event.
func NewHistoryRemovedEvent(userID, novelID string) Event {
	return Event{
		Type:      EventHistoryRemoved,
		Data:      HistoryRemovedEventData{NovelID: novelID},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
