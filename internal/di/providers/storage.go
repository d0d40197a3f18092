package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/trantuankiet11884/novel-audio/internal/config"
	"github.com/trantuankiet11884/novel-audio/internal/logger"
	"github.com/trantuankiet11884/novel-audio/internal/sse"
	"github.com/trantuankiet11884/novel-audio/internal/store"
	"github.com/trantuankiet11884/novel-audio/internal/store/redis"
	"github.com/trantuankiet11884/novel-audio/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the configured history store with shutdown capability.
type StoreHandle struct {
	store.HistoryStore
	Backend string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the history store selected by configuration.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	s, err := OpenStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	return &StoreHandle{HistoryStore: s, Backend: cfg.Storage.Backend}, nil
}

// OpenStore opens the history store selected by cfg.Storage.Backend.
func OpenStore(cfg *config.Config, log *logger.Logger) (store.HistoryStore, error) {
	storeLog := log.Component("store")

	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return sqlite.Open(filepath.Join(cfg.Storage.Path, "history.db"), storeLog)

	case config.StorageRedis:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout)
		defer cancel()
		return redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		}, storeLog)

	default:
		return store.New(filepath.Join(cfg.Storage.Path, "badger"), storeLog)
	}
}
