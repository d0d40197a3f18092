// Package backend talks to the chapter-text and speech-synthesis endpoints.
//
// Every request body is a sealed envelope. Failures come back as coded errors
// from internal/errors; nothing here retries.
package backend

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/trantuankiet11884/novel-audio/internal/envelope"
	"github.com/trantuankiet11884/novel-audio/internal/errors"
	"github.com/trantuankiet11884/novel-audio/internal/ratelimit"
)

const (
	defaultTimeout = 30 * time.Second

	// Limiter keys, one bucket per endpoint.
	endpointText   = "text"
	endpointSpeech = "speech"

	maxResponseBytes = 32 << 20
)

// Config holds endpoint locations.
type Config struct {
	TextURL   string
	SpeechURL string
	Timeout   time.Duration
}

// Client is a rate-limited client for both endpoints.
type Client struct {
	http      *http.Client
	textURL   string
	speechURL string
	sealer    *envelope.Sealer
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
}

// New creates a client. The limiter is shared with nothing else and is
// stopped by Close.
func New(cfg Config, sealer *envelope.Sealer, limiter *ratelimit.Limiter, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		textURL:   cfg.TextURL,
		speechURL: cfg.SpeechURL,
		sealer:    sealer,
		limiter:   limiter,
		logger:    logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

type sealedRequest struct {
	Data string `json:"data"`
}

type chapterResponse struct {
	Text *string `json:"text"`
	Err  string  `json:"err,omitempty"`
}

type speechResponse struct {
	Results *string `json:"results"`
}

// FetchChapter returns the raw markup of one chapter.
func (c *Client) FetchChapter(ctx context.Context, novelID string, chapterIndex int, useGoogleVoice bool) (string, error) {
	body, err := c.post(ctx, endpointText, c.textURL, map[string]any{
		"novelId":        novelID,
		"chapterIndex":   chapterIndex,
		"useGoogleVoice": useGoogleVoice,
	})
	if err != nil {
		return "", err
	}

	var resp chapterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.MalformedResponse(err, "decode chapter response")
	}
	if resp.Err != "" {
		return "", errors.FetchFailure(nil, "chapter %d: %s", chapterIndex, resp.Err)
	}
	if resp.Text == nil {
		return "", errors.MalformedResponse(nil, "chapter response has no text field")
	}

	return *resp.Text, nil
}

// Synthesize returns base64 audio for text spoken in voice. An empty result
// yields ErrEmptySynthesis.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (string, error) {
	body, err := c.post(ctx, endpointSpeech, c.speechURL, map[string]any{
		"text":  text,
		"voice": voice,
	})
	if err != nil {
		return "", err
	}

	var resp speechResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.MalformedResponse(err, "decode speech response")
	}
	if resp.Results == nil {
		return "", errors.MalformedResponse(nil, "speech response has no results field")
	}
	if *resp.Results == "" {
		return "", errors.ErrEmptySynthesis
	}

	return *resp.Results, nil
}

// post seals fields, sends them to url and returns the response body.
func (c *Client) post(ctx context.Context, endpoint, url string, fields map[string]any) ([]byte, error) {
	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return nil, errors.FetchFailure(err, "%s: rate limit wait", endpoint)
	}

	sealed, err := c.sealer.Seal(fields)
	if err != nil {
		return nil, fmt.Errorf("seal %s request: %w", endpoint, err)
	}

	payload, err := json.Marshal(sealedRequest{Data: sealed})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("backend request", "endpoint", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.FetchFailure(err, "%s request", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.FetchFailure(err, "read %s response", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.FetchFailure(nil, "%s: unexpected status %d", endpoint, resp.StatusCode)
	}

	return body, nil
}
