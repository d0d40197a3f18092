// Package providers contains dependency injection providers for the novel-audio server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/trantuankiet11884/novel-audio/internal/config"
	"github.com/trantuankiet11884/novel-audio/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting novel-audio server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"storage", cfg.Storage.Backend,
		"text_url", cfg.Backend.TextURL,
		"speech_url", cfg.Backend.SpeechURL,
	)

	return log, nil
}
