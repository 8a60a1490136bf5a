package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"dayplan/internal/clock"
	"dayplan/internal/config"
	"dayplan/internal/notify"
	"dayplan/internal/settings"
	"dayplan/internal/storage"
)

// app bundles what every command needs: config, store, settings and the
// shared clock and notification sink.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	store    *storage.Store
	settings *settings.Service
	clk      clock.Clock
	sink     notify.Sink
}

func openApp() (*app, error) {
	path := cfgFile
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.LogLevel)

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		settings: settings.NewService(store, log),
		clk:      clock.System{},
		sink:     notify.NewDesktop(log),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing database", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
