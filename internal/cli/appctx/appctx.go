// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, flag overrides, and per-run log setup
// to reduce boilerplate across commands.
package appctx

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lherron/histmig/internal/config"
	"github.com/lherron/histmig/internal/logging"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration with flag overrides applied
	Config *config.Config

	// Logger is the per-run logger (discard logger if NeedsLogger is false)
	Logger *slog.Logger

	// LogPath is the per-run log file (empty if NeedsLogger is false)
	LogPath string

	// Verbose mirrors the --verbose flag
	Verbose bool
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsLogger indicates whether to create the per-run log file.
	NeedsLogger bool
}

// DefaultOptions returns default options (no log file).
func DefaultOptions() Options {
	return Options{}
}

// WithLogger returns options that create a per-run log file.
func WithLogger() Options {
	return Options{NeedsLogger: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{Logger: logging.Discard()}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Flag overrides take precedence over env and config file
	if f := cmd.Flag("source"); f != nil && f.Value.String() != "" {
		cfg.SourcePath = f.Value.String()
	}
	if f := cmd.Flag("dest"); f != nil && f.Value.String() != "" {
		cfg.DestPath = f.Value.String()
	}
	if f := cmd.Flag("profile"); f != nil && f.Value.String() != "" {
		cfg.Profile = f.Value.String()
	}
	if f := cmd.Flag("log-dir"); f != nil && f.Value.String() != "" {
		cfg.LogDir = f.Value.String()
	}
	if f := cmd.Flag("verbose"); f != nil && f.Value.String() == "true" {
		app.Verbose = true
	}

	if opts.NeedsLogger {
		app.Logger, app.LogPath = logging.NewRunLogger(cfg.LogDir, app.Verbose)
	}

	return app, nil
}
