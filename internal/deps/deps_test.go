package deps

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
	"github.com/leapstack-labs/leapdump/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type builder struct {
	t    *testing.T
	dctx *dumpctx.Context
	ns   *catalog.Unit
	oid  catalog.OID
}

func newBuilder(t *testing.T, opts catalog.Options) *builder {
	t.Helper()
	b := &builder{t: t, dctx: dumpctx.New(opts, testutil.NewTestLogger(t)), oid: 16384}
	b.ns = b.add(catalog.KindNamespace, catalog.PgNamespace, "public")
	return b
}

func (b *builder) add(kind catalog.Kind, origin catalog.OID, name string) *catalog.Unit {
	b.oid++
	u := &catalog.Unit{Kind: kind, Name: name, Key: catalog.Key(origin, b.oid), WillEmit: true}
	if b.ns != nil {
		u.Namespace = b.ns.ID
	}
	b.dctx.Units.Register(u)
	return u
}

func (b *builder) table(name string, relkind byte) *catalog.Unit {
	u := b.add(catalog.KindTable, catalog.PgClass, name)
	u.Table = &catalog.TableInfo{RelKind: relkind, Populated: true}
	return u
}

func (b *builder) data(tbl *catalog.Unit) *catalog.Unit {
	d := catalog.NewTableDataUnit(tbl)
	b.dctx.Units.Register(d)
	tbl.Table.DataUnit = d.ID
	return d
}

func TestCollectCatalogEdges(t *testing.T) {
	b := newBuilder(t, catalog.Options{})
	orders := b.table("orders", 'r')
	rowtype := b.add(catalog.KindType, catalog.PgType, "orders")
	fn := b.add(catalog.KindFunction, catalog.PgProc, "order_total")
	idx := b.add(catalog.KindIndex, catalog.PgClass, "orders_pkey")
	ext := b.add(catalog.KindExtension, catalog.PgExtension, "hstore")

	rows := []catalog.DependencyRow{
		{Referencing: idx.Key, Referenced: orders.Key, Kind: catalog.DepAuto},
		{Referencing: orders.Key, Referenced: rowtype.Key, Kind: catalog.DepInternal},
		{Referencing: fn.Key, Referenced: rowtype.Key, Kind: catalog.DepNormal},
		{Referencing: fn.Key, Referenced: ext.Key, Kind: catalog.DepExtension},
		{Referencing: catalog.Key(catalog.PgClass, 99), Referenced: orders.Key, Kind: catalog.DepNormal},
		{Referencing: fn.Key, Referenced: catalog.Key(catalog.PgType, 23), Kind: catalog.DepNormal},
		{Referencing: catalog.Key(catalog.PgType, 23), Referenced: catalog.Key(catalog.PgNamespace, 11), Kind: catalog.DepPin},
	}

	c := NewCollector(b.dctx)
	c.CollectCatalogEdges(rows)

	assert.Equal(t, []catalog.SequenceID{orders.ID}, idx.Dependencies)
	assert.Equal(t, []catalog.SequenceID{orders.ID}, rowtype.Dependencies, "implicit row type edge is reversed")
	assert.Empty(t, orders.Dependencies)
	assert.Equal(t, []catalog.SequenceID{rowtype.ID}, fn.Dependencies, "membership rows are not ordering edges")

	stats := c.Stats()
	assert.Equal(t, 7, stats.Rows)
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 2, stats.Unresolved)
	assert.Equal(t, 1, stats.Reversed)
}

func TestCollectCatalogEdges_FoldsOperatorFamilyMembers(t *testing.T) {
	b := newBuilder(t, catalog.Options{})
	family := b.add(catalog.KindOpFamily, catalog.PgOpfamily, "gist_ops")
	op := b.add(catalog.KindOperator, catalog.PgOperator, "&&")
	support := b.add(catalog.KindFunction, catalog.PgProc, "gist_consistent")

	amop := catalog.Key(catalog.PgAmop, 70001)
	amproc := catalog.Key(catalog.PgAmproc, 70002)
	b.dctx.Lookups.OperatorFamilies[amop] = family.Key
	b.dctx.Lookups.OperatorFamilies[amproc] = family.Key

	c := NewCollector(b.dctx)
	c.CollectCatalogEdges([]catalog.DependencyRow{
		{Referencing: amop, Referenced: family.Key, Kind: catalog.DepAuto},
		{Referencing: amop, Referenced: op.Key, Kind: catalog.DepNormal},
		{Referencing: amproc, Referenced: family.Key, Kind: catalog.DepAuto},
		{Referencing: amproc, Referenced: support.Key, Kind: catalog.DepNormal},
	})

	assert.Equal(t, []catalog.SequenceID{op.ID, support.ID}, family.Dependencies)
	assert.NotContains(t, family.Dependencies, family.ID)
	assert.Equal(t, 2, c.Stats().Folded)
	assert.Equal(t, 2, c.Stats().Skipped)
}

func TestAddOwnerEdges(t *testing.T) {
	b := newBuilder(t, catalog.Options{})
	tbl := b.table("orders", 'r')

	check := b.add(catalog.KindConstraint, catalog.PgConstraint, "orders_qty_check")
	check.Constraint = &catalog.ConstraintInfo{Table: tbl.ID, Type: 'c'}
	pkey := b.add(catalog.KindConstraint, catalog.PgConstraint, "orders_pkey")
	pkey.Constraint = &catalog.ConstraintInfo{Table: tbl.ID, Type: 'p', Separate: true}
	trg := b.add(catalog.KindTrigger, catalog.PgTrigger, "orders_audit")
	trg.Owned = &catalog.OwnedInfo{Table: tbl.ID}
	data := b.data(tbl)

	NewCollector(b.dctx).AddOwnerEdges()

	assert.Equal(t, []catalog.SequenceID{check.ID}, tbl.Dependencies, "folded constraint is part of the table")
	assert.Empty(t, check.Dependencies)
	assert.Equal(t, []catalog.SequenceID{tbl.ID}, pkey.Dependencies)
	assert.Equal(t, []catalog.SequenceID{tbl.ID}, trg.Dependencies)
	assert.Empty(t, data.Dependencies, "data units rely on their structural edge")
}

func TestMakeTableData(t *testing.T) {
	tests := []struct {
		name string
		opts catalog.Options
		want []string
	}{
		{name: "default", opts: catalog.Options{}, want: []string{"orders", "mv_totals", "orders_id_seq"}},
		{name: "schema only", opts: catalog.Options{SchemaOnly: true}, want: nil},
		{name: "excluded data", opts: catalog.Options{ExcludeTableData: []string{"public.orders*"}}, want: []string{"mv_totals"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t, tt.opts)
			b.table("orders", 'r')
			b.table("order_view", 'v')
			b.table("mv_totals", 'm')
			seq := b.add(catalog.KindSequence, catalog.PgClass, "orders_id_seq")
			seq.Table = &catalog.TableInfo{RelKind: 'S'}
			skipped := b.table("archive", 'r')
			skipped.WillEmit = false

			created := NewCollector(b.dctx).MakeTableData()

			var names []string
			for _, u := range created {
				names = append(names, u.Name)
				tbl, ok := b.dctx.Units.FindByID(u.TableData.Table)
				require.True(t, ok)
				assert.Equal(t, u.ID, tbl.Table.DataUnit)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestMakeTableData_Kinds(t *testing.T) {
	b := newBuilder(t, catalog.Options{})
	tbl := b.table("orders", 'r')
	mv := b.table("mv_totals", 'm')
	seq := b.add(catalog.KindSequence, catalog.PgClass, "orders_id_seq")
	seq.Table = &catalog.TableInfo{RelKind: 'S'}

	NewCollector(b.dctx).MakeTableData()

	td, _ := b.dctx.Units.FindByID(tbl.Table.DataUnit)
	assert.Equal(t, catalog.KindTableData, td.Kind)
	assert.Equal(t, []catalog.SequenceID{tbl.ID}, td.StructuralDeps)

	rd, _ := b.dctx.Units.FindByID(mv.Table.DataUnit)
	assert.Equal(t, catalog.KindRefreshMatView, rd.Kind)
	assert.True(t, rd.TableData.Refresh)
	assert.False(t, rd.HasStructuralDeps())
	assert.Equal(t, []catalog.SequenceID{mv.ID}, rd.Dependencies)

	sd, _ := b.dctx.Units.FindByID(seq.Table.DataUnit)
	assert.Equal(t, catalog.KindSequenceSet, sd.Kind)
}

func TestAddDataOnlyForeignKeyEdges(t *testing.T) {
	b := newBuilder(t, catalog.Options{DataOnly: true})
	customers := b.table("customers", 'r')
	orders := b.table("orders", 'r')
	lines := b.table("order_lines", 'r')
	cd, od, ld := b.data(customers), b.data(orders), b.data(lines)
	ld.WillEmit = false

	fk := func(name string, from, to *catalog.Unit) {
		u := b.add(catalog.KindFKConstraint, catalog.PgConstraint, name)
		u.Constraint = &catalog.ConstraintInfo{Table: from.ID, RefTable: to.ID, Type: 'f', Separate: true}
	}
	fk("orders_customer_fk", orders, customers)
	fk("lines_order_fk", lines, orders)
	fk("customers_referrer_fk", customers, customers)

	added := NewCollector(b.dctx).AddDataOnlyForeignKeyEdges()

	assert.Equal(t, 1, added)
	assert.Equal(t, []catalog.SequenceID{cd.ID}, od.Dependencies)
	assert.Empty(t, cd.Dependencies, "self reference is ignored")
	assert.Empty(t, ld.Dependencies, "data not selected")
}

func TestBuildRefreshChains(t *testing.T) {
	b := newBuilder(t, catalog.Options{})
	base := b.table("mv_base", 'm')
	mid := b.table("mv_mid", 'm')
	top := b.table("mv_top", 'm')
	other := b.table("mv_other", 'm')
	plain := b.table("orders", 'r')
	base.Table.Populated = false

	c := NewCollector(b.dctx)
	c.MakeTableData()
	c.BuildRefreshChains([]catalog.KeyPair{
		{From: mid.Key, To: base.Key},
		{From: top.Key, To: mid.Key},
		{From: other.Key, To: plain.Key},
	})

	refresh := func(u *catalog.Unit) *catalog.Unit {
		d, ok := b.dctx.Units.FindByID(u.Table.DataUnit)
		require.True(t, ok)
		return d
	}

	assert.Contains(t, refresh(mid).Dependencies, refresh(base).ID)
	assert.Contains(t, refresh(top).Dependencies, refresh(mid).ID)
	assert.Equal(t, []catalog.SequenceID{other.ID}, refresh(other).Dependencies, "plain tables do not join the chain")

	for _, mv := range []*catalog.Unit{base, mid, top} {
		assert.False(t, mv.Table.Populated, mv.Name)
		assert.False(t, refresh(mv).WillEmit, mv.Name)
		assert.False(t, refresh(mv).TableData.Refresh, mv.Name)
	}
	assert.True(t, other.Table.Populated)
	assert.True(t, refresh(other).WillEmit)
}

func TestAddConfigTableEdges(t *testing.T) {
	b := newBuilder(t, catalog.Options{})
	settings := b.table("ext_settings", 'r')
	kinds := b.table("ext_kinds", 'r')
	nodata := b.table("ext_cache", 'r')
	sd, kd := b.data(settings), b.data(kinds)

	added := NewCollector(b.dctx).AddConfigTableEdges([]catalog.KeyPair{
		{From: settings.Key, To: kinds.Key},
		{From: settings.Key, To: nodata.Key},
		{From: settings.Key, To: catalog.Key(catalog.PgClass, 1)},
	})

	assert.Equal(t, 1, added)
	assert.Equal(t, []catalog.SequenceID{kd.ID}, sd.Dependencies)
}

func TestInvertPartitionEdges(t *testing.T) {
	b := newBuilder(t, catalog.Options{})
	parent := b.table("measurements", 'p')
	p1 := b.table("measurements_2025", 'r')
	p2 := b.table("measurements_2026", 'r')
	for _, p := range []*catalog.Unit{p1, p2} {
		p.Table.IsPartition = true
		p.Table.PartitionParent = parent.ID
		p.Table.Parents = []catalog.SequenceID{parent.ID}
	}

	c := NewCollector(b.dctx)
	c.AddInheritanceEdges()
	require.Equal(t, []catalog.SequenceID{parent.ID}, p1.Dependencies)

	require.NoError(t, c.InvertPartitionEdges())

	assert.Empty(t, p1.Dependencies)
	assert.Empty(t, p2.Dependencies)
	assert.Equal(t, []catalog.SequenceID{p1.ID, p2.ID}, parent.Dependencies)
}

func TestInvertPartitionEdges_ExternalSubPartition(t *testing.T) {
	b := newBuilder(t, catalog.Options{})
	root := b.table("events", 'p')
	mid := b.table("events_2026", 'p')
	mid.Table.IsPartition = true
	mid.Table.PartitionParent = root.ID
	leaf := b.table("events_2026_remote", 'f')
	leaf.Table.IsPartition = true
	leaf.Table.PartitionParent = mid.ID

	err := NewCollector(b.dctx).InvertPartitionEdges()
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrUnsupportedPartitionConstraint))
	assert.Contains(t, err.Error(), "public.events_2026_remote")
}
