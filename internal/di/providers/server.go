package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/trantuankiet11884/novel-audio/internal/api"
	"github.com/trantuankiet11884/novel-audio/internal/config"
	"github.com/trantuankiet11884/novel-audio/internal/logger"
	"github.com/trantuankiet11884/novel-audio/internal/service"
	"github.com/trantuankiet11884/novel-audio/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	playerHandle := do.MustInvoke[*PlayerServiceHandle](i)
	historyService := do.MustInvoke[*service.HistoryService](i)
	log := do.MustInvoke[*logger.Logger](i)

	sseHandler := sse.NewHandler(sseHandle.Manager, log.Component("sse"))

	services := &api.Services{
		Player:  playerHandle.PlayerService,
		History: historyService,
		Store:   storeHandle.HistoryStore,
	}

	handler := api.NewServer(api.Config{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		CommandsPerSecond: cfg.Server.CommandsPerSecond,
		CommandBurst:      cfg.Server.CommandBurst,
	}, services, sseHandler, sseHandle.Manager, log.Component("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
