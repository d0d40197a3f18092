package backend

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trantuankiet11884/novel-audio/internal/envelope"
	"github.com/trantuankiet11884/novel-audio/internal/errors"
	"github.com/trantuankiet11884/novel-audio/internal/ratelimit"
)

const testSecret = "backend-client-test-secret"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *envelope.Sealer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sealer, err := envelope.NewSealer(testSecret, time.Minute)
	require.NoError(t, err)

	client := New(Config{
		TextURL:   server.URL + "/text",
		SpeechURL: server.URL + "/speech",
	}, sealer, ratelimit.New(0, 1), slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(client.Close)

	return client, sealer
}

func openRequest(t *testing.T, sealer *envelope.Sealer, r *http.Request, dst any) {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	var req sealedRequest
	require.NoError(t, json.Unmarshal(body, &req))
	require.NoError(t, sealer.Open(req.Data, dst))
}

func TestClient_FetchChapter(t *testing.T) {
	var sealer *envelope.Sealer
	var got struct {
		NovelID        string `json:"novelId"`
		ChapterIndex   int    `json:"chapterIndex"`
		UseGoogleVoice bool   `json:"useGoogleVoice"`
		Timestamp      int64  `json:"timestamp"`
	}

	client, s := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		openRequest(t, sealer, r, &got)
		w.Write([]byte(`{"text": "<p>Chapter one.</p>"}`))
	})
	sealer = s

	text, err := client.FetchChapter(context.Background(), "novel-1", 3, true)

	require.NoError(t, err)
	assert.Equal(t, "<p>Chapter one.</p>", text)
	assert.Equal(t, "novel-1", got.NovelID)
	assert.Equal(t, 3, got.ChapterIndex)
	assert.True(t, got.UseGoogleVoice)
	assert.NotZero(t, got.Timestamp)
}

func TestClient_FetchChapter_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, wantErr: errors.ErrFetchFailure},
		{name: "err field set", status: http.StatusOK, body: `{"text": "", "err": "chapter locked"}`, wantErr: errors.ErrFetchFailure},
		{name: "not json", status: http.StatusOK, body: `<html>oops</html>`, wantErr: errors.ErrMalformedResponse},
		{name: "missing text", status: http.StatusOK, body: `{"results": "x"}`, wantErr: errors.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.FetchChapter(context.Background(), "novel-1", 0, false)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, errors.IsFetchKind(err))
		})
	}
}

func TestClient_Synthesize(t *testing.T) {
	var sealer *envelope.Sealer
	var got struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}

	client, s := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speech", r.URL.Path)
		openRequest(t, sealer, r, &got)
		w.Write([]byte(`{"results": "SUQzBAAAAAAA"}`))
	})
	sealer = s

	payload, err := client.Synthesize(context.Background(), "Hello there.", "vi-VN-HoaiMyNeural")

	require.NoError(t, err)
	assert.Equal(t, "SUQzBAAAAAAA", payload)
	assert.Equal(t, "Hello there.", got.Text)
	assert.Equal(t, "vi-VN-HoaiMyNeural", got.Voice)
}

func TestClient_Synthesize_EmptyPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results": ""}`))
	})

	payload, err := client.Synthesize(context.Background(), "Hello.", "v")

	assert.Empty(t, payload)
	assert.ErrorIs(t, err, errors.ErrEmptySynthesis)
}

func TestClient_TransportError(t *testing.T) {
	client, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
	client.speechURL = "http://127.0.0.1:1/speech"

	_, err := client.Synthesize(context.Background(), "Hello.", "v")

	assert.ErrorIs(t, err, errors.ErrFetchFailure)
}

func TestClient_CanceledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results": "abc"}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Synthesize(ctx, "Hello.", "v")

	assert.ErrorIs(t, err, errors.ErrFetchFailure)
}
