package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trantuankiet11884/novel-audio/internal/player"
	"github.com/trantuankiet11884/novel-audio/internal/sse"
	"github.com/trantuankiet11884/novel-audio/internal/store"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recordingEmitter) last() sse.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type stubTransport struct {
	mu      sync.Mutex
	playing bool
	loaded  bool
}

func (s *stubTransport) Load([]byte) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	return 60, nil
}

func (s *stubTransport) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	return nil
}

func (s *stubTransport) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *stubTransport) Seek(float64)    {}
func (s *stubTransport) SetRate(float64) {}

func (s *stubTransport) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
}

func (s *stubTransport) isPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

type stubChapters struct{}

func (stubChapters) FetchChapter(_ context.Context, _ string, chapterIndex int, _ bool) (string, error) {
	return fmt.Sprintf("<p>Chapter %d begins here. It ends right here.</p>", chapterIndex), nil
}

type stubSpeech struct{}

func (stubSpeech) Synthesize(_ context.Context, text, _ string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(text)), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestHistory(t *testing.T, limit int) (*HistoryService, *recordingEmitter) {
	t.Helper()
	s, err := store.NewInMemory(discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	events := &recordingEmitter{}
	return NewHistoryService(s, events, limit, discardLogger()), events
}

type playerHarness struct {
	svc        *PlayerService
	events     *recordingEmitter
	history    *HistoryService
	transports []*stubTransport
	mu         sync.Mutex
}

func newPlayerHarness(t *testing.T) *playerHarness {
	t.Helper()
	history, events := newTestHistory(t, 0)
	h := &playerHarness{events: events, history: history}
	h.svc = NewPlayerService(player.DefaultConfig(), PlayerServiceDeps{
		Chapters: stubChapters{},
		Speech:   stubSpeech{},
		History:  history,
		Events:   events,
		NewTransport: func() player.Transport {
			tr := &stubTransport{}
			h.mu.Lock()
			h.transports = append(h.transports, tr)
			h.mu.Unlock()
			return tr
		},
		Logger: discardLogger(),
	})
	t.Cleanup(func() { _ = h.svc.Shutdown(context.Background()) })
	return h
}
