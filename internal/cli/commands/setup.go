package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/cli/config"
	"github.com/leapstack-labs/leapdump/internal/cli/output"
	"github.com/leapstack-labs/leapdump/internal/pgcatalog"
	"github.com/leapstack-labs/leapdump/internal/resolver"
	"github.com/leapstack-labs/leapdump/internal/snapshot"
	"github.com/leapstack-labs/leapdump/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, or defaults when none was
// loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		StatePath:    config.DefaultStateFile,
		OutputFormat: config.DefaultOutput,
	}
}

// Resolved is a plan together with where its catalog came from.
type Resolved struct {
	Plan       *resolver.Plan
	Options    catalog.Options
	Source     string
	SnapshotID string
}

// readSnapshot obtains the catalog: from the snapshot file when one is
// configured, else by collecting from the source database. The returned
// cleanup releases the database connection and must be called once the
// exported snapshot is no longer needed.
func (c *CommandContext) readSnapshot(ctx context.Context, opts catalog.Options) (*snapshot.Snapshot, func(), error) {
	if err := c.Cfg.ValidateInput(); err != nil {
		return nil, nil, err
	}

	if c.Cfg.Snapshot != "" {
		snap, err := snapshot.Load(c.Cfg.Snapshot)
		if err != nil {
			return nil, nil, err
		}
		c.Logger.Debug("loaded snapshot", slog.String("path", c.Cfg.Snapshot), slog.Int("units", len(snap.Units)))
		return snap, func() {}, nil
	}

	collector, err := pgcatalog.Open(ctx, c.Cfg.Source.CollectorConfig(), c.Logger)
	if err != nil {
		return nil, nil, err
	}
	snap, err := collector.Collect(ctx, pgcatalog.Options{
		ExportSnapshot: opts.Parallel(),
		BinaryUpgrade:  opts.BinaryUpgrade,
	})
	if err != nil {
		_ = collector.Close()
		return nil, nil, err
	}
	return snap, func() { _ = collector.Close() }, nil
}

// resolvePlan reads the catalog and runs the resolver over it.
func (c *CommandContext) resolvePlan(ctx context.Context) (*Resolved, func(), error) {
	opts, err := c.Cfg.Dump.Options()
	if err != nil {
		return nil, nil, err
	}

	snap, cleanup, err := c.readSnapshot(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	dctx, err := snapshot.Build(snap, opts, c.Logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	plan, err := resolver.New(dctx).Resolve()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &Resolved{
		Plan:       plan,
		Options:    opts,
		Source:     snap.Source,
		SnapshotID: snap.SnapshotID,
	}, cleanup, nil
}

// openStore opens the manifest store, creating its directory.
func (c *CommandContext) openStore() (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(c.Cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return store, nil
}
