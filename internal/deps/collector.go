// Package deps turns raw catalog dependency rows and the synthetic
// relationships of a run into ordering edges between registered units.
package deps

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
)

// Stats counts what CollectCatalogEdges did with the row stream.
type Stats struct {
	Rows       int
	Edges      int
	Skipped    int
	Unresolved int
	Reversed   int
	Folded     int
}

// Collector adds edges to the units of one context.
type Collector struct {
	dctx  *dumpctx.Context
	stats Stats
}

// NewCollector creates a collector for dctx.
func NewCollector(dctx *dumpctx.Context) *Collector {
	return &Collector{dctx: dctx}
}

// Stats returns the counters accumulated so far.
func (c *Collector) Stats() Stats {
	return c.stats
}

// CollectCatalogEdges converts the sorted pg_depend stream into edges.
// Pin and membership rows are skipped, rows naming an untracked object on
// either side are dropped, an implicit table→row-type row is reversed, and
// operator-family member rows are attributed to the family.
func (c *Collector) CollectCatalogEdges(rows []catalog.DependencyRow) {
	units := c.dctx.Units
	families := c.dctx.Lookups.OperatorFamilies

	for _, row := range rows {
		c.stats.Rows++
		if row.Kind == catalog.DepPin || row.Kind == catalog.DepExtension {
			c.stats.Skipped++
			continue
		}

		referencing := row.Referencing
		if family, ok := families[referencing]; ok {
			// The member's own link to the family would become a self edge.
			if row.Referenced == family {
				c.stats.Skipped++
				continue
			}
			referencing = family
			c.stats.Folded++
		}

		dobj, ok := units.FindBySourceKey(referencing)
		if !ok {
			c.unresolved(row, referencing)
			continue
		}
		ref, ok := units.FindBySourceKey(row.Referenced)
		if !ok {
			c.unresolved(row, row.Referenced)
			continue
		}
		if dobj.ID == ref.ID {
			c.stats.Skipped++
			continue
		}

		if row.Kind == catalog.DepInternal && dobj.Kind == catalog.KindTable && ref.Kind == catalog.KindType {
			units.AddDependency(ref, dobj.ID)
			c.stats.Reversed++
		} else {
			units.AddDependency(dobj, ref.ID)
		}
		c.stats.Edges++
	}

	c.dctx.Logger.Debug("collected catalog dependencies",
		slog.Int("rows", c.stats.Rows),
		slog.Int("edges", c.stats.Edges),
		slog.Int("skipped", c.stats.Skipped),
		slog.Int("unresolved", c.stats.Unresolved),
		slog.Int("reversed", c.stats.Reversed),
		slog.Int("folded", c.stats.Folded),
	)
}

func (c *Collector) unresolved(row catalog.DependencyRow, missing catalog.SourceKey) {
	c.stats.Unresolved++
	c.dctx.Logger.Debug("skipping dependency row",
		slog.String("referencing", row.Referencing.String()),
		slog.String("referenced", row.Referenced.String()),
		slog.Any("error", fmt.Errorf("%w: %s", catalog.ErrUnresolvedReference, missing)))
}

// AddOwnerEdges ties owned units to their table. Separate constraints and
// rules, indexes, triggers, policies and defaults are created after the
// table. A folded constraint or rule is part of the table's definition, so
// the table depends on it instead.
func (c *Collector) AddOwnerEdges() {
	units := c.dctx.Units
	for _, u := range units.All() {
		owner := u.OwnerTable()
		if owner == catalog.NoUnit || u.TableData != nil {
			continue
		}
		tbl, ok := units.FindByID(owner)
		if !ok {
			continue
		}
		if u.Kind.Separable() && !u.Separate() {
			units.AddDependency(tbl, u.ID)
			continue
		}
		units.AddDependency(u, tbl.ID)
	}
}

// AddInheritanceEdges makes every child table depend on its parents.
func (c *Collector) AddInheritanceEdges() {
	units := c.dctx.Units
	for _, u := range units.All() {
		if u.Table == nil {
			continue
		}
		for _, parent := range u.Table.Parents {
			units.AddDependency(u, parent)
		}
	}
}
