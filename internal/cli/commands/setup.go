package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mzfresh/internal/adapter"
	"github.com/leapstack-labs/mzfresh/internal/cli/config"
	"github.com/leapstack-labs/mzfresh/internal/cli/output"
	"github.com/leapstack-labs/mzfresh/internal/freshness"
	"github.com/leapstack-labs/mzfresh/internal/state"
	"github.com/leapstack-labs/mzfresh/internal/telemetry"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Adapter  adapter.Adapter
	Engine   *freshness.Engine
	Registry *prometheus.Registry

	// Store is nil unless record_history is enabled
	Store state.Store
}

// NewCommandContext connects the configured provider and builds the
// freshness engine around it. Returns the context and a cleanup function
// that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger
	ctx := commandContext(cmd)

	shutdownTracing, err := telemetry.InitTracing(cfg.Tracing.Enabled, cmd.ErrOrStderr(), cmd.Root().Version)
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.ValidateSnapshotFile(); err != nil {
		_ = shutdownTracing(ctx)
		return nil, nil, err
	}

	a, err := adapter.Open(ctx, cfg.Provider.AdapterConfig(), logger)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, nil, fmt.Errorf("failed to connect to %s provider: %w", cfg.Provider.Type, err)
	}

	reg := telemetry.NewRegistry()
	eng, err := freshness.New(freshness.Config{
		Provider:             a,
		Clock:                a,
		Logger:               logger,
		Metrics:              freshness.NewMetrics(reg),
		MaxDepth:             cfg.Freshness.MaxDepth,
		StalenessThresholdMs: cfg.Freshness.StalenessThresholdMs,
	})
	if err != nil {
		_ = a.Close()
		_ = shutdownTracing(ctx)
		return nil, nil, err
	}

	var store state.Store
	if cfg.RecordHistory {
		store, err = openStore(cfg, logger)
		if err != nil {
			_ = a.Close()
			_ = shutdownTracing(ctx)
			return nil, nil, err
		}
	}

	cmdCtx.Adapter = a
	cmdCtx.Engine = eng
	cmdCtx.Registry = reg
	cmdCtx.Store = store

	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
		_ = a.Close()
		if err := telemetry.WriteTextfile(cfg.Metrics.Textfile, reg); err != nil {
			logger.Warn("metrics export failed", "error", err)
		}
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}

	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without a provider
// connection. Useful for commands that only read local state.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(commandContext(cmd))
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration, or the defaults when no
// configuration has been loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// commandContext returns the command's context, tolerating commands that
// were executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func openStore(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}
