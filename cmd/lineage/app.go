package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/lineage/internal/config"
	"github.com/dusk-indust/lineage/internal/knowledge"
	"github.com/dusk-indust/lineage/internal/metrics"
	"github.com/dusk-indust/lineage/internal/storage"
)

// app bundles everything a command needs for one invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Adapter
	registry *prometheus.Registry
	engine   *knowledge.Engine
}

func openApp(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}
	if flags.backend != "" {
		cfg.Storage.Backend = strings.ToLower(flags.backend)
	}
	if flags.path != "" {
		cfg.Storage.Path = flags.path
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(storage.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		DSN:     cfg.Storage.DSN,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	reg := prometheus.NewRegistry()
	engine := knowledge.New(store,
		knowledge.WithLogger(logger),
		knowledge.WithMetrics(metrics.New(reg, knowledge.ClassifyError)),
	)

	logger.Debug("storage opened", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)
	return &app{cfg: cfg, logger: logger, store: store, registry: reg, engine: engine}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp adapts fn into a cobra RunE that opens the app for the duration
// of the command.
func withApp(flags *rootFlags, fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd, flags)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close storage: %w", cerr)
			}
		}()
		return fn(cmd.Context(), cmd, a, args)
	}
}
