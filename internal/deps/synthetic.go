package deps

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdump/internal/catalog"
)

// MakeTableData creates the data unit of every emitted relation that holds
// rows. Schema-only runs and relations listed in the table-data exclusions
// get none.
func (c *Collector) MakeTableData() []*catalog.Unit {
	opts := c.dctx.Options
	if opts.SchemaOnly {
		return nil
	}

	units := c.dctx.Units
	var created []*catalog.Unit
	for _, u := range units.All() {
		if u.Table == nil || !u.WillEmit || !u.Table.HasData() || u.Table.DataUnit != catalog.NoUnit {
			continue
		}
		if catalog.MatchesAny(opts.ExcludeTableData, units.SchemaName(u), u.Name) {
			continue
		}
		data := catalog.NewTableDataUnit(u)
		units.Register(data)
		u.Table.DataUnit = data.ID
		created = append(created, data)
	}

	c.dctx.Logger.Debug("created table data units", slog.Int("count", len(created)))
	return created
}

// dataUnit returns the data unit of the table with the given handle.
func (c *Collector) dataUnit(table catalog.SequenceID) (*catalog.Unit, bool) {
	tbl, ok := c.dctx.Units.FindByID(table)
	if !ok || tbl.Table == nil {
		return nil, false
	}
	return c.dctx.Units.FindByID(tbl.Table.DataUnit)
}

// AddDataOnlyForeignKeyEdges orders the data of a referencing table after
// the data of the table it references. Only meaningful when constraints
// are not being recreated after the data load.
func (c *Collector) AddDataOnlyForeignKeyEdges() int {
	units := c.dctx.Units
	added := 0
	for _, u := range units.All() {
		if u.Kind != catalog.KindFKConstraint || u.Constraint == nil {
			continue
		}
		if u.Constraint.Table == u.Constraint.RefTable {
			continue
		}
		from, ok := c.dataUnit(u.Constraint.Table)
		if !ok || !from.WillEmit {
			continue
		}
		to, ok := c.dataUnit(u.Constraint.RefTable)
		if !ok || !to.WillEmit {
			continue
		}
		units.AddDependency(from, to.ID)
		added++
	}
	c.dctx.Logger.Debug("added data-only foreign key edges", slog.Int("edges", added))
	return added
}

// BuildRefreshChains orders materialized view refreshes. Each pair says
// the view From reads the view To, so From's refresh follows To's. A view
// that is not populated makes every view reading it, directly or not,
// unpopulated too; the data unit of an unpopulated view is not emitted.
func (c *Collector) BuildRefreshChains(pairs []catalog.KeyPair) {
	units := c.dctx.Units
	readers := make(map[catalog.SequenceID][]*catalog.Unit)

	for _, p := range pairs {
		v, ok := units.FindBySourceKey(p.From)
		if !ok || !isMatView(v) {
			continue
		}
		w, ok := units.FindBySourceKey(p.To)
		if !ok || !isMatView(w) {
			continue
		}
		readers[w.ID] = append(readers[w.ID], v)

		vd, vok := units.FindByID(v.Table.DataUnit)
		wd, wok := units.FindByID(w.Table.DataUnit)
		if vok && wok {
			units.AddDependency(vd, wd.ID)
		}
	}

	var queue []*catalog.Unit
	for _, u := range units.All() {
		if isMatView(u) && !u.Table.Populated {
			queue = append(queue, u)
		}
	}
	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		for _, v := range readers[w.ID] {
			if !v.Table.Populated {
				continue
			}
			v.Table.Populated = false
			queue = append(queue, v)
		}
	}

	for _, u := range units.All() {
		if u.Kind != catalog.KindRefreshMatView {
			continue
		}
		mv, ok := units.FindByID(u.TableData.Table)
		if !ok || mv.Table == nil || mv.Table.Populated {
			continue
		}
		u.TableData.Refresh = false
		u.WillEmit = false
	}
}

func isMatView(u *catalog.Unit) bool {
	return u.Table != nil && u.Table.RelKind == 'm'
}

// AddConfigTableEdges orders the data of extension configuration tables
// along the foreign keys between them. Each pair says From references To.
func (c *Collector) AddConfigTableEdges(pairs []catalog.KeyPair) int {
	units := c.dctx.Units
	added := 0
	for _, p := range pairs {
		from, ok := units.FindBySourceKey(p.From)
		if !ok || from.Table == nil {
			continue
		}
		to, ok := units.FindBySourceKey(p.To)
		if !ok || to.Table == nil || from.ID == to.ID {
			continue
		}
		fd, ok := units.FindByID(from.Table.DataUnit)
		if !ok {
			continue
		}
		td, ok := units.FindByID(to.Table.DataUnit)
		if !ok {
			continue
		}
		units.AddDependency(fd, td.ID)
		added++
	}
	return added
}

// InvertPartitionEdges makes every partitioned parent follow its
// partitions, replacing the child→parent edge that inheritance collection
// added.
func (c *Collector) InvertPartitionEdges() error {
	units := c.dctx.Units

	for _, child := range units.All() {
		if child.Table == nil || !child.Table.IsPartition {
			continue
		}
		parent, ok := units.FindByID(child.Table.PartitionParent)
		if !ok || parent.Table == nil {
			c.dctx.Logger.Debug("partition parent not collected", slog.String("table", units.QualifiedName(child)))
			continue
		}
		if child.Table.IsExternal() && parent.Table.IsPartition {
			return fmt.Errorf("%w: external partition %s of sub-partitioned table %s",
				catalog.ErrUnsupportedPartitionConstraint, units.QualifiedName(child), units.QualifiedName(parent))
		}
		units.RemoveDependency(child, parent.ID)
		units.AddDependency(parent, child.ID)
	}
	return nil
}
