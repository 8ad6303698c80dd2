// Package app wires the tender session together and runs it until the
// process is told to stop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/tenderbot/internal/config"
	"github.com/alanyoungcy/tenderbot/internal/session"
)

// App is the root application object. It owns the configuration, logger and
// the cleanup functions run in reverse order on Close.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires every dependency, runs the session in the configured mode and
// blocks until ctx is cancelled and in-flight unwinds have drained.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)

	mode, err := parseMode(a.cfg.Mode)
	if err != nil {
		return err
	}

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	return a.runSession(ctx, deps, mode)
}

func parseMode(s string) (session.Mode, error) {
	switch m := session.Mode(strings.ToLower(s)); m {
	case session.ModeTrade, session.ModePaper, session.ModeMonitor:
		return m, nil
	default:
		return "", fmt.Errorf("app: unsupported mode %q", s)
	}
}

// Close tears down all resources in reverse registration order. Subsequent
// calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
