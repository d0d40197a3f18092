// Package player drives a single audio transport through a novel's chapters.
//
// A Controller owns its Transport exclusively. Loads run in the background
// and every load carries a generation number; a result whose generation is
// no longer current is dropped, so the most recent request always wins.
package player

import (
	"context"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
)

// Transport is an audio output. Implementations must not call back into the
// controller while a Transport method is running.
type Transport interface {
	// Load replaces the current source with audio, paused at position 0,
	// and returns its duration in seconds.
	Load(audio []byte) (float64, error)
	// Play starts or resumes playback. It may fail with ErrAutoplayRejected.
	Play() error
	Pause()
	Seek(seconds float64)
	SetRate(rate float64)
	// Unload drops the current source.
	Unload()
}

// Events are the transport callbacks a Controller reacts to.
type Events interface {
	OnTimeUpdate(current, duration float64)
	OnEnded()
	OnPlayRejected(err error)
}

// SourceCheck reports whether the source an event was computed for is still
// the transport's loaded source.
type SourceCheck func() bool

func (s SourceCheck) holds() bool {
	return s == nil || s()
}

// CheckedEvents receive callbacks tagged with a SourceCheck. The check runs
// under the receiver's lock, so an event computed for a replaced source is
// dropped even if the replacement happened after the event was computed.
type CheckedEvents interface {
	Events
	OnTimeUpdateFrom(check SourceCheck, current, duration float64)
	OnEndedFrom(check SourceCheck)
}

// Attacher is implemented by transports that push events.
type Attacher interface {
	Attach(Events)
}

// ChapterSource fetches raw chapter markup.
type ChapterSource interface {
	FetchChapter(ctx context.Context, novelID string, chapterIndex int, useGoogleVoice bool) (string, error)
}

// Synthesizer turns a text segment into base64 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (string, error)
}

// ProgressRecorder persists listening progress.
type ProgressRecorder interface {
	Record(ctx context.Context, userID string, novel domain.Novel, progress float64, chapterIndex int) error
}
