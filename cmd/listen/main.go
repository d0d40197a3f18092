// Package main runs the terminal player: one local controller against the
// configured chapter-text and speech endpoints.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/trantuankiet11884/novel-audio/internal/config"
	"github.com/trantuankiet11884/novel-audio/internal/di/providers"
	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/id"
	"github.com/trantuankiet11884/novel-audio/internal/logger"
	"github.com/trantuankiet11884/novel-audio/internal/player"
	"github.com/trantuankiet11884/novel-audio/internal/service"
	"github.com/trantuankiet11884/novel-audio/internal/tui"
)

const eventBuffer = 64

type listenFlags struct {
	novelID  string
	title    string
	chapters int
	chapter  int
	userID   string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("listen", flag.ContinueOnError)

	var lf listenFlags
	fs.StringVar(&lf.novelID, "novel", "", "Novel ID (required)")
	fs.StringVar(&lf.title, "title", "", "Novel title shown in the header")
	fs.IntVar(&lf.chapters, "chapters", 0, "Total chapter count (required)")
	fs.IntVar(&lf.chapter, "chapter", 1, "Chapter to start from, 1-based")
	fs.StringVar(&lf.userID, "user", "local", "History owner")

	cfg, err := config.Load(fs, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if lf.novelID == "" || lf.chapters <= 0 {
		return errors.New("-novel and -chapters are required")
	}
	if lf.chapter < 1 || lf.chapter > lf.chapters {
		return fmt.Errorf("-chapter must be between 1 and %d", lf.chapters)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := openLogFile(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer logFile.Close()

	log := logger.New(logger.Config{
		Writer:      logFile,
		Format:      "json",
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})

	historyStore, err := providers.OpenStore(cfg, log)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer historyStore.Close()

	client, err := providers.NewBackendClient(cfg, log)
	if err != nil {
		return err
	}
	defer client.Close()

	history := service.NewHistoryService(historyStore, nil, cfg.Storage.HistoryLimit, log.Component("history"))

	playerID, err := id.Generate(id.PrefixPlayer)
	if err != nil {
		return fmt.Errorf("generate player ID: %w", err)
	}

	events := make(chan player.Event, eventBuffer)
	playerCfg := providers.PlayerConfig(cfg)

	ctrl, err := player.New(player.Options{
		ID:     playerID,
		UserID: lf.userID,
		Novel: domain.Novel{
			ID:            lf.novelID,
			Title:         lf.title,
			TotalChapters: lf.chapters,
		},
	}, playerCfg, player.Deps{
		Transport: player.NewHeadlessTransport(player.DefaultTick, player.MP3Duration),
		Chapters:  client,
		Speech:    client,
		History:   history,
		Logger:    log.WithPlayer(playerID, lf.novelID).Logger,
		OnEvent:   tui.Forward(events),
	})
	if err != nil {
		return err
	}

	model := tui.New(ctrl, events, tui.Options{
		StartChapter: lf.chapter - 1,
		MinRate:      playerCfg.MinRate,
		MaxRate:      playerCfg.MaxRate,
	})

	_, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()

	// Close pauses the transport and waits for in-flight loads before the
	// store is closed by the deferred calls above.
	ctrl.Close()
	log.Info("listen session ended", "player_id", playerID)

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

func openLogFile(dataPath string) (*os.File, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	path := filepath.Join(dataPath, "listen.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
