package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/resolver"
	"gopkg.in/yaml.v3"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run summarizes one stored manifest.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"`
	SnapshotID string    `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	Entries    int       `json:"entries" yaml:"entries"`
	Cycles     int       `json:"cycles" yaml:"cycles"`
}

// Manifest is the ordering of one run: what was emitted, in which order,
// with which archive dependencies.
type Manifest struct {
	Run     Run                    `json:"run" yaml:"run"`
	Options catalog.Options        `json:"-" yaml:"-"`
	Entries []resolver.Entry       `json:"entries" yaml:"entries"`
	Cycles  []resolver.CycleReport `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

// NewManifest captures a resolved plan. Statement text is not kept.
func NewManifest(plan *resolver.Plan, opts catalog.Options, source, snapshotID string) *Manifest {
	m := &Manifest{
		Run:     Run{Source: source, SnapshotID: snapshotID},
		Options: opts,
		Entries: make([]resolver.Entry, len(plan.Entries)),
		Cycles:  plan.Cycles,
	}
	for i, e := range plan.Entries {
		e.Definition, e.Comment, e.Labels = "", "", nil
		m.Entries[i] = e
	}
	return m
}

// SaveManifest stores m under a new run id and returns it.
func (s *SQLiteStore) SaveManifest(ctx context.Context, m *Manifest) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	opts, err := yaml.Marshal(encodeOptions(m.Options))
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}

	run := m.Run
	if run.ID == "" {
		run.ID = generateID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Entries = len(m.Entries)
	run.Cycles = len(m.Cycles)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, source, snapshot_id, options, entry_count, cycle_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.Source, run.SnapshotID, string(opts), run.Entries, run.Cycles,
	); err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	if err := insertEntries(ctx, tx, run.ID, m.Entries); err != nil {
		return "", err
	}
	if err := insertCycles(ctx, tx, run.ID, m.Cycles); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	m.Run = run
	s.logger.Debug("saved manifest", slog.String("run", run.ID), slog.Int("entries", run.Entries))
	return run.ID, nil
}

func insertEntries(ctx context.Context, tx *sql.Tx, runID string, entries []resolver.Entry) error {
	entryStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (run_id, position, unit_id, source_key, kind, schema_name, name, owner, section, filter, pages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = entryStmt.Close() }()

	depStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entry_deps (run_id, position, seq, dep_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = depStmt.Close() }()

	for _, e := range entries {
		if _, err := entryStmt.ExecContext(ctx, runID, e.Position, int64(e.ID), e.Key, e.Kind,
			e.Schema, e.Name, e.Owner, e.Section, e.Filter, e.Pages); err != nil {
			return fmt.Errorf("insert entry %d: %w", e.Position, err)
		}
		for i, d := range e.Deps {
			if _, err := depStmt.ExecContext(ctx, runID, e.Position, i, int64(d)); err != nil {
				return fmt.Errorf("insert dependency of entry %d: %w", e.Position, err)
			}
		}
	}
	return nil
}

func insertCycles(ctx context.Context, tx *sql.Tx, runID string, cycles []resolver.CycleReport) error {
	for i, c := range cycles {
		var dependent, dependency sql.NullInt64
		if c.Broken != nil {
			dependent = sql.NullInt64{Int64: int64(c.Broken.Dependent), Valid: true}
			dependency = sql.NullInt64{Int64: int64(c.Broken.Dependency), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cycles (run_id, idx, broken_dependent, broken_dependency, repaired, guidance)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, i, dependent, dependency, c.Repaired, c.Guidance,
		); err != nil {
			return fmt.Errorf("insert cycle %d: %w", i, err)
		}
		for j, id := range c.IDs {
			label := ""
			if j < len(c.Units) {
				label = c.Units[j]
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO cycle_members (run_id, idx, seq, unit_id, label) VALUES (?, ?, ?, ?, ?)`,
				runID, i, j, int64(id), label,
			); err != nil {
				return fmt.Errorf("insert member of cycle %d: %w", i, err)
			}
		}
	}
	return nil
}

// storedOptions is the persisted form of the run options.
type storedOptions struct {
	SchemaOnly       bool     `yaml:"schema_only,omitempty"`
	DataOnly         bool     `yaml:"data_only,omitempty"`
	BinaryUpgrade    bool     `yaml:"binary_upgrade,omitempty"`
	Sections         []string `yaml:"sections,omitempty"`
	Jobs             int      `yaml:"jobs,omitempty"`
	IncludeTables    []string `yaml:"include_tables,omitempty"`
	ExcludeSchemas   []string `yaml:"exclude_schemas,omitempty"`
	ExcludeTables    []string `yaml:"exclude_tables,omitempty"`
	ExcludeTableData []string `yaml:"exclude_table_data,omitempty"`
}

func encodeOptions(o catalog.Options) storedOptions {
	s := storedOptions{
		SchemaOnly:       o.SchemaOnly,
		DataOnly:         o.DataOnly,
		BinaryUpgrade:    o.BinaryUpgrade,
		Jobs:             o.Jobs,
		IncludeTables:    o.IncludeTables,
		ExcludeSchemas:   o.ExcludeSchemas,
		ExcludeTables:    o.ExcludeTables,
		ExcludeTableData: o.ExcludeTableData,
	}
	for _, sec := range o.Sections {
		s.Sections = append(s.Sections, sec.String())
	}
	return s
}

func decodeOptions(text string) (catalog.Options, error) {
	var s storedOptions
	if err := yaml.Unmarshal([]byte(text), &s); err != nil {
		return catalog.Options{}, err
	}
	o := catalog.Options{
		SchemaOnly:       s.SchemaOnly,
		DataOnly:         s.DataOnly,
		BinaryUpgrade:    s.BinaryUpgrade,
		Jobs:             s.Jobs,
		IncludeTables:    s.IncludeTables,
		ExcludeSchemas:   s.ExcludeSchemas,
		ExcludeTables:    s.ExcludeTables,
		ExcludeTableData: s.ExcludeTableData,
	}
	for _, name := range s.Sections {
		sec, err := catalog.ParseSection(name)
		if err != nil {
			return catalog.Options{}, err
		}
		o.Sections = append(o.Sections, sec)
	}
	return o, nil
}

// ListRuns returns stored runs, newest first. A limit of zero or less
// returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, source, snapshot_id, entry_count, cycle_count
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, extra ...any) (*Run, error) {
	var run Run
	var created string
	dest := append([]any{&run.ID, &created, &run.Source, &run.SnapshotID, &run.Entries, &run.Cycles}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: invalid created_at %q: %w", run.ID, created, err)
	}
	run.CreatedAt = t
	return &run, nil
}

// LoadManifest reads the manifest stored for runID.
func (s *SQLiteStore) LoadManifest(ctx context.Context, runID string) (*Manifest, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var opts string
	run, err := scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, snapshot_id, entry_count, cycle_count, options
		FROM runs WHERE id = ?`, runID), &opts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	m := &Manifest{Run: *run}
	if m.Options, err = decodeOptions(opts); err != nil {
		return nil, fmt.Errorf("decode options of run %s: %w", runID, err)
	}
	if m.Entries, err = s.loadEntries(ctx, runID); err != nil {
		return nil, err
	}
	if m.Cycles, err = s.loadCycles(ctx, runID); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SQLiteStore) loadEntries(ctx context.Context, runID string) ([]resolver.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, unit_id, source_key, kind, schema_name, name, owner, section, filter, pages
		FROM entries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []resolver.Entry
	byPosition := make(map[int]int)
	for rows.Next() {
		var e resolver.Entry
		var id int64
		if err := rows.Scan(&e.Position, &id, &e.Key, &e.Kind, &e.Schema, &e.Name, &e.Owner, &e.Section, &e.Filter, &e.Pages); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.ID = catalog.SequenceID(id)
		byPosition[e.Position] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	deps, err := s.db.QueryContext(ctx, `
		SELECT position, dep_id FROM entry_deps WHERE run_id = ? ORDER BY position, seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry dependencies: %w", err)
	}
	defer func() { _ = deps.Close() }()

	for deps.Next() {
		var pos int
		var dep int64
		if err := deps.Scan(&pos, &dep); err != nil {
			return nil, fmt.Errorf("failed to scan entry dependency: %w", err)
		}
		if i, ok := byPosition[pos]; ok {
			entries[i].Deps = append(entries[i].Deps, catalog.SequenceID(dep))
		}
	}
	if err := deps.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry dependencies: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) loadCycles(ctx context.Context, runID string) ([]resolver.CycleReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, broken_dependent, broken_dependency, repaired, guidance
		FROM cycles WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cycles []resolver.CycleReport
	byIdx := make(map[int]int)
	for rows.Next() {
		var idx int
		var dependent, dependency sql.NullInt64
		var c resolver.CycleReport
		if err := rows.Scan(&idx, &dependent, &dependency, &c.Repaired, &c.Guidance); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		if dependent.Valid && dependency.Valid {
			c.Broken = &resolver.BrokenEdge{
				Dependent:  catalog.SequenceID(dependent.Int64),
				Dependency: catalog.SequenceID(dependency.Int64),
			}
		}
		byIdx[idx] = len(cycles)
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycles: %w", err)
	}

	members, err := s.db.QueryContext(ctx, `
		SELECT idx, unit_id, label FROM cycle_members WHERE run_id = ? ORDER BY idx, seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle members: %w", err)
	}
	defer func() { _ = members.Close() }()

	for members.Next() {
		var idx int
		var id int64
		var label string
		if err := members.Scan(&idx, &id, &label); err != nil {
			return nil, fmt.Errorf("failed to scan cycle member: %w", err)
		}
		if i, ok := byIdx[idx]; ok {
			cycles[i].IDs = append(cycles[i].IDs, catalog.SequenceID(id))
			cycles[i].Units = append(cycles[i].Units, label)
		}
	}
	if err := members.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycle members: %w", err)
	}
	return cycles, nil
}

// DeleteRun removes a run and everything stored with it.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
