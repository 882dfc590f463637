package resolver

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dag"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
	"github.com/leapstack-labs/leapdump/internal/section"
	"github.com/leapstack-labs/leapdump/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t      *testing.T
	dctx   *dumpctx.Context
	public *catalog.Unit
	oid    catalog.OID
}

func newFixture(t *testing.T, opts catalog.Options) *fixture {
	t.Helper()
	f := &fixture{t: t, dctx: dumpctx.New(opts, testutil.NewTestLogger(t)), oid: 16384}
	f.public = f.unit(catalog.KindNamespace, catalog.PgNamespace, "public")
	return f
}

func (f *fixture) unit(kind catalog.Kind, origin catalog.OID, name string) *catalog.Unit {
	f.oid++
	u := &catalog.Unit{Kind: kind, Name: name, Key: catalog.Key(origin, f.oid), WillEmit: true}
	if f.public != nil {
		u.Namespace = f.public.ID
	}
	f.dctx.Units.Register(u)
	return u
}

func (f *fixture) table(name string) *catalog.Unit {
	u := f.unit(catalog.KindTable, catalog.PgClass, name)
	u.Table = &catalog.TableInfo{RelKind: 'r', Populated: true}
	return u
}

func (f *fixture) index(name string, tbl *catalog.Unit) *catalog.Unit {
	u := f.unit(catalog.KindIndex, catalog.PgClass, name)
	u.Owned = &catalog.OwnedInfo{Table: tbl.ID}
	f.depends(u, tbl, catalog.DepAuto)
	return u
}

func (f *fixture) constraint(kind catalog.Kind, name string, tbl *catalog.Unit, separate bool) *catalog.Unit {
	u := f.unit(kind, catalog.PgConstraint, name)
	u.Constraint = &catalog.ConstraintInfo{Table: tbl.ID, Type: 'c', Separate: separate}
	return u
}

func (f *fixture) depends(from, to *catalog.Unit, kind catalog.DepKind) {
	f.dctx.Input.DependencyRows = append(f.dctx.Input.DependencyRows,
		catalog.DependencyRow{Referencing: from.Key, Referenced: to.Key, Kind: kind})
}

func (f *fixture) resolve() *Plan {
	f.t.Helper()
	plan, err := New(f.dctx).Resolve()
	require.NoError(f.t, err)
	return plan
}

func (f *fixture) dataOf(tbl *catalog.Unit) *catalog.Unit {
	f.t.Helper()
	d, ok := f.dctx.Units.FindByID(tbl.Table.DataUnit)
	require.True(f.t, ok, "no data unit for %s", tbl.Name)
	return d
}

func entryNames(p *Plan) []string {
	names := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		names[i] = e.Kind + ":" + e.Name
	}
	return names
}

// assertOrderRespectsEdges checks that every surviving edge of every unit
// points backwards in the total order, which makes ordering transitive.
func assertOrderRespectsEdges(t *testing.T, dctx *dumpctx.Context, p *Plan) {
	t.Helper()
	pos := p.Positions()
	require.Len(t, pos, dctx.Units.Count(), "order covers every unit")
	for _, u := range dctx.Units.All() {
		for _, d := range append(append([]catalog.SequenceID(nil), u.Dependencies...), u.StructuralDeps...) {
			assert.Less(t, pos[d], pos[u.ID], "%s must follow unit %d", u.Name, d)
		}
	}
	for _, e := range p.Entries {
		for _, d := range e.Deps {
			assert.Less(t, pos[d], pos[e.ID], "final dependency of %s", e.Name)
		}
	}
}

func TestResolve_TableDataIndexSections(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	tbl := f.table("orders")
	idx := f.index("orders_pkey", tbl)

	plan := f.resolve()
	data := f.dataOf(tbl)
	pos := plan.Positions()

	assert.Less(t, pos[tbl.ID], pos[plan.PreBoundary])
	assert.Less(t, pos[plan.PreBoundary], pos[data.ID])
	assert.Less(t, pos[data.ID], pos[plan.PostBoundary])
	assert.Less(t, pos[plan.PostBoundary], pos[idx.ID])

	assert.Equal(t, []string{"namespace:public", "table:orders", "table-data:orders", "index:orders_pkey"}, entryNames(plan))

	d, ok := plan.Entry(data.ID)
	require.True(t, ok)
	assert.Equal(t, []catalog.SequenceID{tbl.ID}, d.Deps)
	assert.Equal(t, "data", d.Section)

	i, ok := plan.Entry(idx.ID)
	require.True(t, ok)
	assert.Equal(t, []catalog.SequenceID{tbl.ID}, i.Deps)
	assert.Equal(t, "post-data", i.Section)

	assertOrderRespectsEdges(t, f.dctx, plan)
}

func TestResolve_TransitiveOrdering(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	typ := f.unit(catalog.KindType, catalog.PgType, "money_amount")
	fn := f.unit(catalog.KindFunction, catalog.PgProc, "add_amount")
	agg := f.unit(catalog.KindAggregate, catalog.PgProc, "sum_amount")
	tbl := f.table("ledger")
	view := f.table("ledger_totals")
	view.Table.RelKind = 'v'
	f.depends(fn, typ, catalog.DepNormal)
	f.depends(agg, fn, catalog.DepNormal)
	f.depends(tbl, typ, catalog.DepNormal)
	f.depends(view, agg, catalog.DepNormal)
	f.depends(view, tbl, catalog.DepNormal)
	for _, u := range []*catalog.Unit{typ, fn, agg, tbl, view} {
		f.depends(u, f.public, catalog.DepNormal)
	}

	plan := f.resolve()
	pos := plan.Positions()
	assert.Less(t, pos[typ.ID], pos[view.ID])
	assert.Less(t, pos[fn.ID], pos[view.ID])
	assert.Empty(t, plan.Cycles)
	assertOrderRespectsEdges(t, f.dctx, plan)
}

func TestResolve_CompositeTypeFollowsColumnTypes(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	enum := f.unit(catalog.KindType, catalog.PgType, "z_enum")
	comp := f.unit(catalog.KindType, catalog.PgType, "a_comp")
	rel := f.table("a_comp")
	rel.Table.RelKind = 'c'
	rel.WillEmit = false
	f.depends(rel, comp, catalog.DepInternal)
	f.depends(rel, enum, catalog.DepNormal)

	plan := f.resolve()
	assert.Equal(t, []string{"namespace:public", "type:z_enum", "type:a_comp"}, entryNames(plan))

	e, ok := plan.Entry(comp.ID)
	require.True(t, ok)
	assert.Contains(t, e.Deps, enum.ID)
	assert.NotContains(t, e.Deps, rel.ID)
	assertOrderRespectsEdges(t, f.dctx, plan)
}

func TestResolve_Deterministic(t *testing.T) {
	build := func() *fixture {
		f := newFixture(t, catalog.Options{Jobs: 4})
		var prev *catalog.Unit
		for _, name := range []string{"zeta", "alpha", "mid", "beta", "omega"} {
			tbl := f.table(name)
			tbl.Table.Pages = int64(len(name) * 10)
			f.index(name+"_pkey", tbl)
			if prev != nil {
				fk := f.constraint(catalog.KindFKConstraint, name+"_fk", tbl, true)
				fk.Constraint.Type = 'f'
				fk.Constraint.RefTable = prev.ID
				f.depends(fk, prev, catalog.DepNormal)
			}
			prev = tbl
		}
		f.unit(catalog.KindFunction, catalog.PgProc, "touch")
		return f
	}

	first := build().resolve()
	for range 5 {
		again := build().resolve()
		assert.Equal(t, first.Order, again.Order)
		assert.Equal(t, first.Entries, again.Entries)
	}
}

func TestResolve_BoundaryInvariant(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	fn := f.unit(catalog.KindFunction, catalog.PgProc, "audit")
	tbl := f.table("orders")
	seq := f.unit(catalog.KindSequence, catalog.PgClass, "orders_id_seq")
	seq.Table = &catalog.TableInfo{RelKind: 'S'}
	mv := f.table("order_stats")
	mv.Table.RelKind = 'm'
	f.index("orders_pkey", tbl)
	trg := f.unit(catalog.KindTrigger, catalog.PgTrigger, "orders_audit")
	trg.Owned = &catalog.OwnedInfo{Table: tbl.ID}
	f.depends(trg, fn, catalog.DepNormal)
	f.constraint(catalog.KindConstraint, "orders_pkey_c", tbl, true)
	f.constraint(catalog.KindConstraint, "orders_qty_check", tbl, false)
	f.unit(catalog.KindEventTrigger, catalog.PgEventTrigger, "ddl_log")

	plan := f.resolve()
	pos := plan.Positions()
	pre, post := pos[plan.PreBoundary], pos[plan.PostBoundary]

	require.NotEmpty(t, plan.Entries)
	for _, e := range plan.Entries {
		p := pos[e.ID]
		switch e.Section {
		case "pre-data":
			assert.Less(t, p, pre, e.Name)
		case "data":
			assert.Greater(t, p, pre, e.Name)
			assert.Less(t, p, post, e.Name)
		case "post-data":
			assert.Greater(t, p, post, e.Name)
		default:
			t.Errorf("entry %s has section %q", e.Name, e.Section)
		}
	}
	for _, b := range []catalog.SequenceID{plan.PreBoundary, plan.PostBoundary} {
		_, ok := plan.Entry(b)
		assert.False(t, ok, "boundaries are never emitted")
	}
	assertOrderRespectsEdges(t, f.dctx, plan)
}

func TestResolve_ExtensionOverride(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	ext := f.unit(catalog.KindExtension, catalog.PgExtension, "pgcrypto")
	member := f.unit(catalog.KindFunction, catalog.PgProc, "digest")
	f.depends(member, ext, catalog.DepExtension)

	plan := f.resolve()

	assert.False(t, member.WillEmit)
	assert.True(t, member.IsExtensionMember)
	assert.Contains(t, member.Dependencies, ext.ID)
	_, ok := plan.Entry(member.ID)
	assert.False(t, ok)
	_, ok = plan.Entry(ext.ID)
	assert.True(t, ok)
}

func TestResolve_MutualForeignKeysDataOnly(t *testing.T) {
	f := newFixture(t, catalog.Options{DataOnly: true})
	a := f.table("accounts")
	b := f.table("billing")
	fkA := f.constraint(catalog.KindFKConstraint, "accounts_billing_fk", a, true)
	fkA.Constraint.Type, fkA.Constraint.RefTable = 'f', b.ID
	fkB := f.constraint(catalog.KindFKConstraint, "billing_accounts_fk", b, true)
	fkB.Constraint.Type, fkB.Constraint.RefTable = 'f', a.ID

	plan := f.resolve()
	da, db := f.dataOf(a), f.dataOf(b)

	broken := plan.BrokenCycles()
	require.Len(t, broken, 1)
	assert.ElementsMatch(t, []catalog.SequenceID{da.ID, db.ID}, broken[0].IDs)
	require.NotNil(t, broken[0].Broken)
	assert.Equal(t, da.ID, broken[0].Broken.Dependent)
	assert.Equal(t, db.ID, broken[0].Broken.Dependency)
	assert.Contains(t, broken[0].Guidance, "--disable-triggers")
	assert.NotContains(t, da.Dependencies, db.ID)

	assert.Equal(t, []string{"table-data:accounts", "table-data:billing"}, entryNames(plan))
	for _, e := range plan.Entries {
		for _, d := range e.Deps {
			_, ok := plan.Entry(d)
			assert.True(t, ok, "%s names unit %d which is not emitted", e.Name, d)
		}
	}
	assert.Equal(t, []catalog.SequenceID{a.ID}, da.StructuralDeps)
	assertOrderRespectsEdges(t, f.dctx, plan)
}

func TestResolve_ConfigTableCarveOut(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	ext := f.unit(catalog.KindExtension, catalog.PgExtension, "audit_ext")
	ext.WillEmit = false
	cfg := f.table("audit_settings")
	f.depends(cfg, ext, catalog.DepExtension)
	ext.Extension = &catalog.ExtensionInfo{
		ConfigTableKeys:  []catalog.SourceKey{cfg.Key},
		ConfigConditions: []string{"WHERE NOT builtin"},
	}

	plan := f.resolve()
	data := f.dataOf(cfg)

	assert.True(t, data.WillEmit)
	assert.False(t, ext.WillEmit)
	assert.False(t, cfg.WillEmit)
	assert.Equal(t, []string{"namespace:public", "table-data:audit_settings"}, entryNames(plan))
	e, _ := plan.Entry(data.ID)
	assert.Equal(t, "WHERE NOT builtin", e.Filter)
}

func TestResolve_FoldedConstraintLoop(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	tbl := f.table("orders")
	check := f.constraint(catalog.KindConstraint, "orders_qty_check", tbl, false)
	f.depends(check, tbl, catalog.DepAuto)

	plan := f.resolve()

	require.Len(t, plan.Cycles, 1)
	assert.True(t, plan.Cycles[0].Repaired)
	assert.Empty(t, plan.BrokenCycles())
	assert.False(t, check.Separate(), "two-unit loop keeps the constraint folded")
	assert.Contains(t, tbl.Dependencies, check.ID)
	assert.NotContains(t, check.Dependencies, tbl.ID)
	_, ok := plan.Entry(check.ID)
	assert.False(t, ok, "folded constraints are part of the table")
	assertOrderRespectsEdges(t, f.dctx, plan)
}

func TestResolve_ConstraintSplitFromLongerLoop(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	tbl := f.table("orders")
	fn := f.unit(catalog.KindFunction, catalog.PgProc, "valid_order")
	check := f.constraint(catalog.KindConstraint, "orders_valid_check", tbl, false)
	// the check calls a function that takes the table's row type
	f.depends(check, fn, catalog.DepNormal)
	f.depends(fn, tbl, catalog.DepNormal)

	plan := f.resolve()

	assert.True(t, check.Separate())
	assert.Equal(t, catalog.SectionPostData, check.Section())
	assert.NotContains(t, tbl.Dependencies, check.ID)
	assert.Empty(t, plan.BrokenCycles())

	pos := plan.Positions()
	assert.Less(t, pos[tbl.ID], pos[fn.ID])
	assert.Greater(t, pos[check.ID], pos[plan.PostBoundary])
	e, ok := plan.Entry(check.ID)
	require.True(t, ok)
	assert.ElementsMatch(t, []catalog.SequenceID{fn.ID, tbl.ID}, e.Deps)
	assertOrderRespectsEdges(t, f.dctx, plan)
}

func TestResolve_ConstraintStaysFoldedWhenLoopBypassesOwner(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	tbl := f.table("t")
	fn := f.unit(catalog.KindFunction, catalog.PgProc, "f")
	check := f.constraint(catalog.KindConstraint, "t_check", tbl, false)
	f.depends(tbl, fn, catalog.DepNormal)
	f.depends(fn, check, catalog.DepNormal)
	f.depends(check, tbl, catalog.DepAuto)

	plan := f.resolve()

	require.NotEmpty(t, plan.Cycles)
	for _, c := range plan.Cycles {
		assert.True(t, c.Repaired || c.Broken != nil, "every loop is either repaired or reports its broken edge")
	}
	assert.False(t, check.Separate(), "constraint is not split by a loop that does not run through its owner edge")
	_, ok := plan.Entry(check.ID)
	assert.False(t, ok)
	assertOrderRespectsEdges(t, f.dctx, plan)
}

func TestLoopRepairer_RequiresOwnerEdgeInCycle(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	tbl := f.table("t")
	fn := f.unit(catalog.KindFunction, catalog.PgProc, "f")
	check := f.constraint(catalog.KindConstraint, "t_check", tbl, false)
	b := section.CreateBoundaries(f.dctx.Units)

	g := dag.NewGraph()
	for _, u := range f.dctx.Units.All() {
		g.AddNode(u.ID, dag.SortKey{Priority: u.Kind.Priority(), Name: u.Name})
	}
	r := &loopRepairer{dctx: f.dctx, boundaries: b}

	// t depends on f, f on t_check, t_check on t; t also holds t_check.
	require.NoError(t, g.AddEdge(fn.ID, tbl.ID))
	require.NoError(t, g.AddEdge(check.ID, fn.ID))
	require.NoError(t, g.AddEdge(tbl.ID, check.ID))
	require.NoError(t, g.AddEdge(check.ID, tbl.ID))

	assert.False(t, r.Repair(g, []catalog.SequenceID{tbl.ID, fn.ID, check.ID}))
	assert.False(t, check.Separate())
	assert.True(t, g.HasEdge(check.ID, tbl.ID))

	// t holds t_check, t_check depends on f, f on t.
	g2 := dag.NewGraph()
	for _, u := range f.dctx.Units.All() {
		g2.AddNode(u.ID, dag.SortKey{Priority: u.Kind.Priority(), Name: u.Name})
	}
	require.NoError(t, g2.AddEdge(check.ID, tbl.ID))
	require.NoError(t, g2.AddEdge(fn.ID, check.ID))
	require.NoError(t, g2.AddEdge(tbl.ID, fn.ID))

	assert.True(t, r.Repair(g2, []catalog.SequenceID{tbl.ID, check.ID, fn.ID}))
	assert.True(t, check.Separate())
	assert.False(t, g2.HasEdge(check.ID, tbl.ID))
	assert.True(t, g2.HasEdge(tbl.ID, check.ID))
	assert.True(t, g2.HasEdge(b.Post.ID, check.ID))
}

func TestResolve_ViewRuleLoop(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	tbl := f.table("orders")
	view := f.table("open_orders")
	view.Table.RelKind = 'v'
	rule := f.unit(catalog.KindRule, catalog.PgRewrite, "_RETURN")
	rule.Rule = &catalog.RuleInfo{Table: view.ID}
	f.depends(rule, view, catalog.DepInternal)
	f.depends(rule, tbl, catalog.DepNormal)

	plan := f.resolve()

	assert.False(t, rule.Separate())
	assert.Empty(t, plan.BrokenCycles())
	pos := plan.Positions()
	assert.Less(t, pos[tbl.ID], pos[view.ID])
	assertOrderRespectsEdges(t, f.dctx, plan)
}

func TestResolve_BinaryUpgradePlaceholder(t *testing.T) {
	f := newFixture(t, catalog.Options{BinaryUpgrade: true, SchemaOnly: true})
	typ := f.unit(catalog.KindType, catalog.PgType, "mood")
	typ.PreassignSQL = "SELECT pg_catalog.binary_upgrade_set_next_pg_type_oid('16386'::pg_catalog.oid);"
	tbl := f.table("people")
	tbl.PreassignSQL = "SELECT pg_catalog.binary_upgrade_set_next_heap_pg_class_oid('16387'::pg_catalog.oid);\n"
	skipped := f.table("scratch")
	skipped.WillEmit = false
	skipped.PreassignSQL = "SELECT 'not emitted';"
	f.depends(tbl, typ, catalog.DepNormal)

	plan := f.resolve()

	require.NotEqual(t, catalog.NoUnit, plan.Placeholder)
	require.NotEmpty(t, plan.Entries)
	first := plan.Entries[0]
	assert.Equal(t, plan.Placeholder, first.ID)
	assert.Equal(t, "pre-data", first.Section)
	assert.Equal(t, typ.PreassignSQL+"\n"+tbl.PreassignSQL, first.Definition)
	assert.Empty(t, plan.DataEntries())
}

func TestResolve_NoPlaceholderByDefault(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	f.table("people")

	plan := f.resolve()
	assert.Equal(t, catalog.NoUnit, plan.Placeholder)
}

func TestResolve_FatalErrors(t *testing.T) {
	t.Run("missing extension parent", func(t *testing.T) {
		f := newFixture(t, catalog.Options{})
		fn := f.unit(catalog.KindFunction, catalog.PgProc, "orphan")
		f.dctx.Input.DependencyRows = append(f.dctx.Input.DependencyRows, catalog.DependencyRow{
			Referencing: fn.Key, Referenced: catalog.Key(catalog.PgExtension, 1), Kind: catalog.DepExtension,
		})

		_, err := New(f.dctx).Resolve()
		require.Error(t, err)
		assert.True(t, errors.Is(err, catalog.ErrMissingExtensionParent))
	})

	t.Run("external sub-partition", func(t *testing.T) {
		f := newFixture(t, catalog.Options{})
		root := f.table("events")
		root.Table.RelKind = 'p'
		mid := f.table("events_2026")
		mid.Table.RelKind = 'p'
		mid.Table.IsPartition, mid.Table.PartitionParent = true, root.ID
		leaf := f.table("events_2026_remote")
		leaf.Table.RelKind = 'f'
		leaf.Table.IsPartition, leaf.Table.PartitionParent = true, mid.ID

		_, err := New(f.dctx).Resolve()
		require.Error(t, err)
		assert.True(t, errors.Is(err, catalog.ErrUnsupportedPartitionConstraint))
	})
}

func TestResolve_OutputFilter(t *testing.T) {
	tests := []struct {
		name string
		opts catalog.Options
		want []string
	}{
		{
			name: "schema only",
			opts: catalog.Options{SchemaOnly: true},
			want: []string{"namespace:public", "table:orders", "sequence:orders_id_seq", "index:orders_pkey"},
		},
		{
			name: "data only",
			opts: catalog.Options{DataOnly: true},
			want: []string{"table-data:orders", "sequence-set:orders_id_seq"},
		},
		{
			name: "post-data section",
			opts: catalog.Options{Sections: []catalog.Section{catalog.SectionPostData}},
			want: []string{"index:orders_pkey"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts)
			tbl := f.table("orders")
			seq := f.unit(catalog.KindSequence, catalog.PgClass, "orders_id_seq")
			seq.Table = &catalog.TableInfo{RelKind: 'S'}
			f.index("orders_pkey", tbl)

			plan := f.resolve()
			assert.Equal(t, tt.want, entryNames(plan))
			for i, e := range plan.Entries {
				assert.Equal(t, i+1, e.Position)
			}
		})
	}
}

func TestResolve_CollapseThroughFilteredUnit(t *testing.T) {
	f := newFixture(t, catalog.Options{ExcludeSchemas: []string{"internal"}})
	internal := f.unit(catalog.KindNamespace, catalog.PgNamespace, "internal")
	internal.Namespace = catalog.NoUnit
	typ := f.unit(catalog.KindType, catalog.PgType, "amount")
	helper := f.unit(catalog.KindFunction, catalog.PgProc, "helper")
	helper.Namespace = internal.ID
	fn := f.unit(catalog.KindFunction, catalog.PgProc, "api")
	f.depends(helper, typ, catalog.DepNormal)
	f.depends(fn, helper, catalog.DepNormal)

	plan := f.resolve()

	assert.False(t, helper.WillEmit)
	e, ok := plan.Entry(fn.ID)
	require.True(t, ok)
	assert.Equal(t, []catalog.SequenceID{typ.ID}, e.Deps)
}

func TestResolve_LargestDataFirstWhenParallel(t *testing.T) {
	for _, jobs := range []int{1, 4} {
		f := newFixture(t, catalog.Options{DataOnly: true, Jobs: jobs})
		small := f.table("a_small")
		small.Table.Pages = 10
		large := f.table("b_large")
		large.Table.Pages = 5000

		plan := f.resolve()
		if jobs > 1 {
			assert.Equal(t, []string{"table-data:b_large", "table-data:a_small"}, entryNames(plan))
			assert.Equal(t, int64(5000), plan.Entries[0].Pages)
		} else {
			assert.Equal(t, []string{"table-data:a_small", "table-data:b_large"}, entryNames(plan))
		}
	}
}

func TestResolve_RefreshChain(t *testing.T) {
	f := newFixture(t, catalog.Options{})
	base := f.table("mv_daily")
	base.Table.RelKind = 'm'
	top := f.table("mv_monthly")
	top.Table.RelKind = 'm'
	f.depends(top, base, catalog.DepNormal)
	f.dctx.Input.MatViewDeps = []catalog.KeyPair{{From: top.Key, To: base.Key}}

	plan := f.resolve()
	rb, rt := f.dataOf(base), f.dataOf(top)
	pos := plan.Positions()

	assert.Less(t, pos[rb.ID], pos[rt.ID])
	assert.Greater(t, pos[rb.ID], pos[plan.PostBoundary])
	e, ok := plan.Entry(rt.ID)
	require.True(t, ok)
	assert.Equal(t, "refresh-materialized-view", e.Kind)
	assert.Contains(t, e.Deps, rb.ID)
	assertOrderRespectsEdges(t, f.dctx, plan)
}

func TestPlan_Upstream(t *testing.T) {
	plan := &Plan{Entries: []Entry{
		{Position: 1, ID: 1, Name: "public", Section: "pre-data"},
		{Position: 2, ID: 4, Name: "orders", Section: "pre-data", Deps: []catalog.SequenceID{1}},
		{Position: 3, ID: 9, Name: "orders", Section: "data", Deps: []catalog.SequenceID{4}},
		{Position: 4, ID: 7, Name: "orders_idx", Section: "post-data", Deps: []catalog.SequenceID{4, 99}},
	}}

	var names []string
	for _, e := range plan.Upstream(7) {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"public", "orders"}, names)
	assert.Empty(t, plan.Upstream(1))

	g := plan.Graph(Entry.IsData)
	assert.Equal(t, 1, g.NodeCount())
	assert.Zero(t, g.EdgeCount())
}
