// Package pgcatalog reads the unit set and relationship rows of a live
// PostgreSQL database into a snapshot.
package pgcatalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/leapstack-labs/leapdump/internal/snapshot"
)

// Options controls one collection.
type Options struct {
	// ExportSnapshot exports the transaction snapshot so parallel workers
	// read the same state. The transaction then stays open until Close.
	ExportSnapshot bool
	// BinaryUpgrade records identifier preassignment calls for relations
	// and types.
	BinaryUpgrade bool
}

// Collector reads catalog snapshots over one connection pool.
type Collector struct {
	db     *sql.DB
	tx     *sql.Tx
	source string
	logger *slog.Logger
}

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Collector, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	c := New(db, logger)
	c.source = cfg.Source()
	return c, nil
}

// New wraps an open database handle.
// If logger is nil, a discard logger is used.
func New(db *sql.DB, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{db: db, logger: logger}
}

// Close releases an exported snapshot, if any, and closes the pool.
func (c *Collector) Close() error {
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	return c.db.Close()
}

// Collect reads every catalog query inside a single repeatable-read,
// read-only transaction.
func (c *Collector) Collect(ctx context.Context, opts Options) (*snapshot.Snapshot, error) {
	if c.tx != nil {
		return nil, errors.New("a snapshot is already exported by this collector")
	}
	start := time.Now()

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin catalog transaction: %w", err)
	}
	keep := false
	defer func() {
		if !keep {
			_ = tx.Rollback()
		}
	}()

	snap := &snapshot.Snapshot{
		Version:          snapshot.Version,
		Source:           c.source,
		Roles:            make(map[uint32]string),
		OperatorFamilies: make(map[string]string),
	}
	if opts.ExportSnapshot {
		if err := tx.QueryRowContext(ctx, queryExportSnapshot).Scan(&snap.SnapshotID); err != nil {
			return nil, fmt.Errorf("failed to export snapshot: %w", err)
		}
	}

	col := newCollection(snap, opts)
	for _, s := range col.steps() {
		if err := c.run(ctx, tx, s); err != nil {
			return nil, err
		}
	}
	if err := col.finish(); err != nil {
		return nil, err
	}

	if opts.ExportSnapshot {
		c.tx = tx
		keep = true
	}

	c.logger.Info("collected catalog",
		slog.String("source", c.source),
		slog.Int("units", len(snap.Units)),
		slog.Int("dependency_rows", len(snap.Depends)),
		slog.Duration("elapsed", time.Since(start)))
	return snap, nil
}

// step is one catalog query and the scanner applied to each of its rows.
type step struct {
	name  string
	query string
	scan  func(rows *sql.Rows) error
}

func (c *Collector) run(ctx context.Context, tx *sql.Tx, s step) error {
	rows, err := tx.QueryContext(ctx, s.query)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", s.name, err)
	}
	defer func() { _ = rows.Close() }()

	n := 0
	for rows.Next() {
		if err := s.scan(rows); err != nil {
			return fmt.Errorf("failed to scan %s: %w", s.name, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s: %w", s.name, err)
	}

	c.logger.Debug("collected catalog rows", slog.String("query", s.name), slog.Int("rows", n))
	return nil
}
