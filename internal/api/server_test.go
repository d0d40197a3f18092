package api

import (
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/trantuankiet11884/novel-audio/internal/player"
	"github.com/trantuankiet11884/novel-audio/internal/service"
	"github.com/trantuankiet11884/novel-audio/internal/sse"
	"github.com/trantuankiet11884/novel-audio/internal/store"
)

// testEnvelope decodes the versioned response envelope.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), "body: %s", resp.Body.String())
	return env
}

type stubTransport struct {
	mu      sync.Mutex
	playing bool
}

func (s *stubTransport) Load([]byte) (float64, error) { return 120, nil }

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
func (s *stubTransport) Unload()         {}

type stubChapters struct{}

func (stubChapters) FetchChapter(_ context.Context, _ string, chapterIndex int, _ bool) (string, error) {
	return fmt.Sprintf("<h1>Chapter %d</h1><p>The road was long. Nobody spoke for an hour.</p>", chapterIndex), nil
}

type stubSpeech struct{}

func (stubSpeech) Synthesize(_ context.Context, text, _ string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(text)), nil
}

type testServer struct {
	*Server
	api     humatest.TestAPI
	history *service.HistoryService
	players *service.PlayerService
}

func setupTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	st, err := store.NewInMemory(logger)
	require.NoError(t, err)

	sseManager := sse.NewManager(logger)
	sseHandler := sse.NewHandler(sseManager, logger)

	history := service.NewHistoryService(st, sseManager, 0, logger)
	players := service.NewPlayerService(player.DefaultConfig(), service.PlayerServiceDeps{
		Chapters:     stubChapters{},
		Speech:       stubSpeech{},
		History:      history,
		Events:       sseManager,
		NewTransport: func() player.Transport { return &stubTransport{} },
		Logger:       logger,
	})

	s := NewServer(cfg, &Services{
		Player:  players,
		History: history,
		Store:   st,
	}, sseHandler, sseManager, logger)

	t.Cleanup(func() {
		_ = players.Shutdown(context.Background())
		s.Close()
		_ = st.Close()
	})

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.API()),
		history: history,
		players: players,
	}
}

// waitReady blocks until the player's first chapter load settles.
func (ts *testServer) waitReady(t *testing.T, userID, playerID string) {
	t.Helper()
	ctrl, err := ts.players.Get(context.Background(), userID, playerID)
	require.NoError(t, err)
	ctrl.Wait()
}
