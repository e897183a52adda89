package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/specialistvlad/flagpole/flagspace"
	"github.com/specialistvlad/flagpole/internal/ctxlog"
	"github.com/specialistvlad/flagpole/manifest"
)

// App encapsulates the inspector's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	manifest *manifest.Manifest
	space    *flagspace.Space
}

// NewApp loads the manifest named by the config and returns a fully
// initialized App with its own isolated logger.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	m, err := manifest.Load(ctx, cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	logger.Debug("Manifest loaded.", "bindings", len(m.Bindings), "profiles", len(m.Profiles))

	space, err := m.Space()
	if err != nil {
		return nil, fmt.Errorf("invalid flag space declaration: %w", err)
	}
	logger.Debug("Flag space realized.", "flags", space.Len())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		manifest: m,
		space:    space,
	}, nil
}

// Space returns the realized flag space. This is primarily for testing.
func (a *App) Space() *flagspace.Space {
	return a.space
}
