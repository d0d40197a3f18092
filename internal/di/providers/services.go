package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/trantuankiet11884/novel-audio/internal/backend"
	"github.com/trantuankiet11884/novel-audio/internal/config"
	"github.com/trantuankiet11884/novel-audio/internal/envelope"
	"github.com/trantuankiet11884/novel-audio/internal/logger"
	"github.com/trantuankiet11884/novel-audio/internal/player"
	"github.com/trantuankiet11884/novel-audio/internal/ratelimit"
	"github.com/trantuankiet11884/novel-audio/internal/service"
	"github.com/trantuankiet11884/novel-audio/internal/validation"
)

// PlayerConfig maps configured budgets onto controller settings.
func PlayerConfig(cfg *config.Config) player.Config {
	pc := player.DefaultConfig()
	pc.MaxSegmentChars = cfg.Player.MaxSegmentChars
	pc.MinSentenceChars = cfg.Player.MinSentenceChars
	pc.SkipSeconds = cfg.Player.SkipSeconds
	pc.ProgressInterval = cfg.Player.ProgressInterval.Seconds()
	pc.DefaultVoice = cfg.Player.DefaultVoice
	pc.DefaultRate = cfg.Player.DefaultRate
	return pc
}

// BackendClientHandle wraps the backend client with Shutdownable.
type BackendClientHandle struct {
	*backend.Client
}

// Shutdown implements do.Shutdownable.
func (h *BackendClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideBackendClient provides the sealed-envelope client for the text and speech endpoints.
func ProvideBackendClient(i do.Injector) (*BackendClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := NewBackendClient(cfg, log)
	if err != nil {
		return nil, err
	}

	log.Info("Backend client ready",
		"requests_per_second", cfg.Backend.RequestsPerSecond,
		"timeout", cfg.Backend.Timeout,
	)

	return &BackendClientHandle{Client: client}, nil
}

// NewBackendClient builds a backend client outside the container. The
// terminal player uses it directly.
func NewBackendClient(cfg *config.Config, log *logger.Logger) (*backend.Client, error) {
	sealer, err := envelope.NewSealer(cfg.Backend.SharedSecret, cfg.Backend.EnvelopeTTL)
	if err != nil {
		return nil, fmt.Errorf("envelope sealer: %w", err)
	}

	limiter := ratelimit.New(cfg.Backend.RequestsPerSecond, cfg.Backend.Burst)

	return backend.New(backend.Config{
		TextURL:   cfg.Backend.TextURL,
		SpeechURL: cfg.Backend.SpeechURL,
		Timeout:   cfg.Backend.Timeout,
	}, sealer, limiter, log.Component("backend")), nil
}

// ProvideHistoryService provides the listening history service.
func ProvideHistoryService(i do.Injector) (*service.HistoryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewHistoryService(
		storeHandle.HistoryStore,
		sseHandle.Manager,
		cfg.Storage.HistoryLimit,
		log.Component("history"),
	), nil
}

// PlayerServiceHandle wraps the player registry with Shutdownable.
type PlayerServiceHandle struct {
	*service.PlayerService
}

// Shutdown implements do.Shutdownable.
func (h *PlayerServiceHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.PlayerService.Shutdown(ctx)
}

// ProvidePlayerService provides the player session registry. Each session
// gets a headless transport that advances in real time.
func ProvidePlayerService(i do.Injector) (*PlayerServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client := do.MustInvoke[*BackendClientHandle](i)
	history := do.MustInvoke[*service.HistoryService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewPlayerService(PlayerConfig(cfg), service.PlayerServiceDeps{
		Chapters:  client.Client,
		Speech:    client.Client,
		History:   history,
		Events:    sseHandle.Manager,
		Validator: validation.New(),
		NewTransport: func() player.Transport {
			return player.NewHeadlessTransport(player.DefaultTick, player.MP3Duration)
		},
		Logger: log.Component("player"),
	})

	return &PlayerServiceHandle{PlayerService: svc}, nil
}
