// Package resolver runs the ordering phases over a populated context and
// produces the plan handed to the output writer.
//
// Phases run strictly in sequence: emission policy and extension
// membership, data units, dependency collection, section boundaries,
// topological sort, output filter and final dependency collapse.
package resolver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/collapse"
	"github.com/leapstack-labs/leapdump/internal/dag"
	"github.com/leapstack-labs/leapdump/internal/deps"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
	"github.com/leapstack-labs/leapdump/internal/extension"
	"github.com/leapstack-labs/leapdump/internal/section"
)

// Resolver turns the units of one context into a plan.
type Resolver struct {
	dctx   *dumpctx.Context
	logger *slog.Logger
}

// New creates a resolver over dctx.
func New(dctx *dumpctx.Context) *Resolver {
	return &Resolver{dctx: dctx, logger: dctx.Logger}
}

// Resolve runs every phase once. Catalog inconsistencies are returned as
// errors; dependency loops are reported in the plan instead.
func (r *Resolver) Resolve() (*Plan, error) {
	start := time.Now()
	dctx := r.dctx
	units := dctx.Units
	opts := dctx.Options

	membership := extension.NewResolver(dctx, extension.NewIndex(dctx.Input.DependencyRows))
	if err := extension.NewPolicy(dctx, membership).Apply(); err != nil {
		return nil, fmt.Errorf("apply emission policy: %w", err)
	}

	collector := deps.NewCollector(dctx)
	collector.MakeTableData()
	extension.ProcessConfigTables(dctx)

	collector.CollectCatalogEdges(dctx.Input.DependencyRows)
	collector.AddOwnerEdges()
	collector.AddInheritanceEdges()
	if err := collector.InvertPartitionEdges(); err != nil {
		return nil, err
	}
	collector.BuildRefreshChains(dctx.Input.MatViewDeps)
	collector.AddConfigTableEdges(dctx.Input.ConfigTableFKs)
	if opts.DataOnly {
		collector.AddDataOnlyForeignKeyEdges()
	}

	var placeholder *catalog.Unit
	if opts.BinaryUpgrade {
		placeholder = newPlaceholder(units)
	}

	boundaries := section.CreateBoundaries(units)
	section.WireBoundaries(units, units.All(), boundaries)

	g := r.buildGraph()
	res := g.Sort(&loopRepairer{dctx: dctx, boundaries: boundaries})
	cycles := reportCycles(dctx, res.Cycles)

	set := filterEmitted(units, opts)
	collapse.Collapse(units, set.has)
	if placeholder != nil {
		amendPlaceholder(units, placeholder, res.Order, set)
	}

	plan := &Plan{
		Order:        res.Order,
		Cycles:       cycles,
		PreBoundary:  boundaries.Pre.ID,
		PostBoundary: boundaries.Post.ID,
	}
	if placeholder != nil {
		plan.Placeholder = placeholder.ID
	}
	for _, id := range res.Order {
		if !set.has(id) {
			continue
		}
		u, _ := units.FindByID(id)
		plan.Entries = append(plan.Entries, r.entry(len(plan.Entries)+1, u))
	}

	r.logger.Info("resolved dump order",
		slog.Int("units", units.Count()),
		slog.Int("emitted", len(plan.Entries)),
		slog.Int("edges", g.EdgeCount()),
		slog.Int("cycles", len(cycles)),
		slog.Duration("elapsed", time.Since(start)))
	return plan, nil
}

// buildGraph loads every unit and edge into a graph keyed for the
// deterministic tie-break: kind priority, then largest-first for table
// data under parallel output, then schema, name and id.
func (r *Resolver) buildGraph() *dag.Graph {
	units := r.dctx.Units
	parallel := r.dctx.Options.Parallel()
	g := dag.NewGraph()

	all := units.All()
	for _, u := range all {
		key := dag.SortKey{
			Priority: u.Kind.Priority(),
			Schema:   units.SchemaName(u),
			Name:     u.Name,
		}
		if parallel && u.Kind == catalog.KindTableData {
			key.Size = r.pages(u)
		}
		g.AddNode(u.ID, key)
	}

	for _, u := range all {
		for _, d := range u.StructuralDeps {
			r.addEdge(g, d, u)
		}
		for _, d := range u.Dependencies {
			r.addEdge(g, d, u)
		}
	}
	return g
}

func (r *Resolver) addEdge(g *dag.Graph, dependency catalog.SequenceID, u *catalog.Unit) {
	if err := g.AddEdge(dependency, u.ID); err != nil {
		r.logger.Debug("dropping dependency", slog.Int("unit", int(u.ID)), slog.Any("error", err))
	}
}

// pages returns the size estimate of a data unit's table.
func (r *Resolver) pages(u *catalog.Unit) int64 {
	if u.TableData == nil {
		return 0
	}
	if tbl, ok := r.dctx.Units.FindByID(u.TableData.Table); ok && tbl.Table != nil {
		return tbl.Table.Pages
	}
	return 0
}

func (r *Resolver) entry(position int, u *catalog.Unit) Entry {
	units := r.dctx.Units
	e := Entry{
		Position:   position,
		ID:         u.ID,
		Kind:       u.Kind.String(),
		Schema:     units.SchemaName(u),
		Name:       u.Name,
		Owner:      r.dctx.RoleName(u.Owner),
		Section:    u.Section().String(),
		Deps:       u.FinalDeps,
		Definition: u.Definition,
	}
	if !u.Key.IsZero() {
		e.Key = u.Key.String()
		e.Comment = r.dctx.Comment(u.Key)
		e.Labels = r.dctx.Labels(u.Key)
	}
	if u.TableData != nil {
		e.Filter = u.TableData.Filter
		e.Pages = r.pages(u)
	}
	return e
}
