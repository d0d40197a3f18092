package player

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/trantuankiet11884/novel-audio/internal/errors"
)

// bytesPerFrame is the size of one decoded stereo 16-bit sample frame.
const bytesPerFrame = 4

// DefaultTick is how often a headless transport reports its position.
const DefaultTick = time.Second

// MP3Duration decodes the MP3 header data in audio and returns its length in seconds.
func MP3Duration(audio []byte) (float64, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	if dec.SampleRate() <= 0 || dec.Length() <= 0 {
		return 0, fmt.Errorf("mp3 has no decodable frames")
	}
	return float64(dec.Length()) / bytesPerFrame / float64(dec.SampleRate()), nil
}

// HeadlessTransport advances a virtual playhead in real time without
// producing sound. The API service gives one to each player session so
// clients can follow progress over the event stream.
type HeadlessTransport struct {
	mu       sync.Mutex
	events   Events
	duration DurationFunc
	tick     time.Duration
	now      func() time.Time

	loaded    bool
	length    float64
	position  float64 // at startedAt
	rate      float64
	playing   bool
	startedAt time.Time
	source    uint64
	stop      chan struct{}
}

// DurationFunc measures a payload. MP3Duration is the default.
type DurationFunc func(audio []byte) (float64, error)

// NewHeadlessTransport creates a transport that reports position every tick.
func NewHeadlessTransport(tick time.Duration, duration DurationFunc) *HeadlessTransport {
	if tick <= 0 {
		tick = DefaultTick
	}
	if duration == nil {
		duration = MP3Duration
	}
	return &HeadlessTransport{
		duration: duration,
		tick:     tick,
		now:      time.Now,
		rate:     1,
	}
}

// Attach sets the receiver of transport events.
func (t *HeadlessTransport) Attach(ev Events) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = ev
}

// Load implements Transport.
func (t *HeadlessTransport) Load(audio []byte) (float64, error) {
	length, err := t.duration(audio)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.haltLocked()
	t.source++
	t.loaded = true
	t.length = length
	t.position = 0
	return length, nil
}

// Play implements Transport.
func (t *HeadlessTransport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.loaded {
		return errors.Wrap(nil, errors.CodeAutoplayRejected, "no source loaded")
	}
	if t.playing {
		return nil
	}
	if t.position >= t.length {
		t.position = 0
	}

	t.playing = true
	t.startedAt = t.now()
	t.stop = make(chan struct{})
	go t.run(t.source, t.stop)
	return nil
}

// Pause implements Transport.
func (t *HeadlessTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.haltLocked()
}

// Seek implements Transport.
func (t *HeadlessTransport) Seek(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.position = min(max(seconds, 0), t.length)
	t.startedAt = t.now()
}

// SetRate implements Transport.
func (t *HeadlessTransport) SetRate(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.position = t.positionLocked()
	t.startedAt = t.now()
	t.rate = rate
}

// Unload implements Transport.
func (t *HeadlessTransport) Unload() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.haltLocked()
	t.source++
	t.loaded = false
	t.length = 0
	t.position = 0
}

// Position returns the current playhead in seconds.
func (t *HeadlessTransport) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

func (t *HeadlessTransport) positionLocked() float64 {
	if !t.playing {
		return t.position
	}
	elapsed := t.now().Sub(t.startedAt).Seconds() * t.rate
	return min(t.position+elapsed, t.length)
}

func (t *HeadlessTransport) haltLocked() {
	if !t.playing {
		return
	}
	t.position = t.positionLocked()
	t.playing = false
	close(t.stop)
}

// sourceCheck reports whether source is still loaded.
func (t *HeadlessTransport) sourceCheck(source uint64) SourceCheck {
	return func() bool {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.loaded && t.source == source
	}
}

// run reports the playhead until paused, unloaded or ended. Events are
// delivered without holding the transport lock.
func (t *HeadlessTransport) run(source uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		t.mu.Lock()
		if t.source != source || !t.playing {
			t.mu.Unlock()
			return
		}
		pos := t.positionLocked()
		length := t.length
		ended := pos >= length
		if ended {
			t.position = length
			t.playing = false
			close(t.stop)
		}
		ev := t.events
		t.mu.Unlock()

		if ev == nil {
			if ended {
				return
			}
			continue
		}
		if ce, ok := ev.(CheckedEvents); ok {
			check := t.sourceCheck(source)
			ce.OnTimeUpdateFrom(check, pos, length)
			if ended {
				ce.OnEndedFrom(check)
				return
			}
			continue
		}
		ev.OnTimeUpdate(pos, length)
		if ended {
			ev.OnEnded()
			return
		}
	}
}
