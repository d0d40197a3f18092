package tui

import "github.com/trantuankiet11884/novel-audio/internal/player"

// PlayerEventMsg wraps a controller notification.
type PlayerEventMsg struct {
	Event player.Event
}

// EventsClosedMsg is sent when the event feed has been closed.
type EventsClosedMsg struct{}

// CommandErrorMsg carries the error of a rejected key command.
type CommandErrorMsg struct {
	Err error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
