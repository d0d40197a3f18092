// Package di provides dependency injection configuration for the novel-audio server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/trantuankiet11884/novel-audio/internal/config"
	"github.com/trantuankiet11884/novel-audio/internal/di/providers"
	"github.com/trantuankiet11884/novel-audio/internal/logger"
	"github.com/trantuankiet11884/novel-audio/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage and events
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Backend endpoints
	do.Provide(injector, providers.ProvideBackendClient)

	// Business services
	do.Provide(injector, providers.ProvideHistoryService)
	do.Provide(injector, providers.ProvidePlayerService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// Any provider error, such as an unreachable Redis, aborts startup.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.BackendClientHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*service.HistoryService](injector)
	_ = do.MustInvoke[*providers.PlayerServiceHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
