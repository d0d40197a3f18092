package player

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
)

type fakeTransport struct {
	mu       sync.Mutex
	loaded   []string
	current  string
	playing  bool
	position float64
	rate     float64
	duration float64
	playErr  error
	loadErr  error
}

func (f *fakeTransport) Load(audio []byte) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	f.loaded = append(f.loaded, string(audio))
	f.current = string(audio)
	f.position = 0
	return f.duration, nil
}

func (f *fakeTransport) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}

func (f *fakeTransport) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeTransport) Seek(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = seconds
}

func (f *fakeTransport) SetRate(rate float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = rate
}

func (f *fakeTransport) Unload() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = ""
}

func (f *fakeTransport) snapshot() (current string, loaded []string, playing bool, position float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, append([]string(nil), f.loaded...), f.playing, f.position
}

type fakeChapters struct {
	mu     sync.Mutex
	markup map[int]string
	gates  map[int]chan struct{}
	err    error
	calls  []int
	google []bool
}

func (f *fakeChapters) FetchChapter(ctx context.Context, _ string, chapterIndex int, useGoogleVoice bool) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, chapterIndex)
	f.google = append(f.google, useGoogleVoice)
	gate := f.gates[chapterIndex]
	err := f.err
	markup, ok := f.markup[chapterIndex]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if !ok {
		markup = fmt.Sprintf("<p>Chapter %d.</p>", chapterIndex)
	}
	return markup, nil
}

func (f *fakeChapters) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type speechCall struct {
	text, voice string
}

type fakeSpeech struct {
	mu    sync.Mutex
	calls []speechCall
	gates map[string]chan struct{}
	empty bool
	err   error
}

// gate holds synthesis of text until the returned channel is closed.
func (f *fakeSpeech) gate(text string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gates == nil {
		f.gates = map[string]chan struct{}{}
	}
	ch := make(chan struct{})
	f.gates[text] = ch
	return ch
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, voice string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, speechCall{text: text, voice: voice})
	gate := f.gates[text]
	err, empty := f.err, f.empty
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if empty {
		return "", nil
	}
	return base64.StdEncoding.EncodeToString([]byte("audio:" + text)), nil
}

func (f *fakeSpeech) recorded() []speechCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]speechCall(nil), f.calls...)
}

type recordCall struct {
	userID   string
	novelID  string
	progress float64
	chapter  int
}

type fakeHistory struct {
	mu    sync.Mutex
	calls []recordCall
}

func (f *fakeHistory) Record(_ context.Context, userID string, novel domain.Novel, progress float64, chapterIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordCall{userID: userID, novelID: novel.ID, progress: progress, chapter: chapterIndex})
	return nil
}

func (f *fakeHistory) recorded() []recordCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordCall(nil), f.calls...)
}

type harness struct {
	c         *Controller
	transport *fakeTransport
	chapters  *fakeChapters
	speech    *fakeSpeech
	history   *fakeHistory

	evMu   sync.Mutex
	events []Event
}

func (h *harness) eventTypes() []EventType {
	h.evMu.Lock()
	defer h.evMu.Unlock()
	types := make([]EventType, 0, len(h.events))
	for _, ev := range h.events {
		types = append(types, ev.Type)
	}
	return types
}

func newHarness(t *testing.T, totalChapters int, mutate ...func(*Config)) *harness {
	t.Helper()

	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	h := &harness{
		transport: &fakeTransport{duration: 100, rate: 1},
		chapters:  &fakeChapters{markup: map[int]string{}, gates: map[int]chan struct{}{}},
		speech:    &fakeSpeech{},
		history:   &fakeHistory{},
	}

	c, err := New(Options{
		ID:     "ply-test",
		UserID: "user-1",
		Novel:  domain.Novel{ID: "novel-1", Title: "Test Novel", TotalChapters: totalChapters},
	}, cfg, Deps{
		Transport: h.transport,
		Chapters:  h.chapters,
		Speech:    h.speech,
		History:   h.history,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnEvent: func(ev Event) {
			h.evMu.Lock()
			defer h.evMu.Unlock()
			h.events = append(h.events, ev)
		},
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	h.c = c
	return h
}

// ready selects chapter index and waits for it to load.
func (h *harness) ready(t *testing.T, index int) {
	t.Helper()
	require.NoError(t, h.c.SelectChapter(index))
	h.c.Wait()
	require.Equal(t, domain.StatusReady, h.c.Snapshot().Status)
}

// playing loads chapter index and starts playback.
func (h *harness) playing(t *testing.T, index int) {
	t.Helper()
	h.ready(t, index)
	require.NoError(t, h.c.PlayPause())
	require.Equal(t, domain.StatusPlaying, h.c.Snapshot().Status)
}
