package registry

import (
	"testing"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	r := New()

	ns := &catalog.Unit{Kind: catalog.KindNamespace, Name: "public", Key: catalog.Key(catalog.PgNamespace, 2200)}
	tbl := &catalog.Unit{Kind: catalog.KindTable, Name: "orders", Key: catalog.Key(catalog.PgClass, 16384)}

	assert.Equal(t, catalog.SequenceID(1), r.Register(ns))
	assert.Equal(t, catalog.SequenceID(2), r.Register(tbl))
	assert.Equal(t, 2, r.Count())

	got, ok := r.FindByID(2)
	require.True(t, ok)
	assert.Same(t, tbl, got)

	got, ok = r.FindBySourceKey(catalog.Key(catalog.PgClass, 16384))
	require.True(t, ok)
	assert.Same(t, tbl, got)
}

func TestRegistry_NotFound(t *testing.T) {
	r := New()
	r.Register(&catalog.Unit{Kind: catalog.KindTable, Name: "t", Key: catalog.Key(catalog.PgClass, 1)})

	tests := []struct {
		name string
		id   catalog.SequenceID
	}{
		{name: "no unit handle", id: catalog.NoUnit},
		{name: "negative", id: -1},
		{name: "past end", id: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := r.FindByID(tt.id)
			assert.False(t, ok)
		})
	}

	_, ok := r.FindBySourceKey(catalog.Key(catalog.PgClass, 99))
	assert.False(t, ok, "untracked objects are reported as not found")
}

func TestRegistry_ZeroKeyNotIndexed(t *testing.T) {
	r := New()
	r.Register(&catalog.Unit{Kind: catalog.KindPreDataBoundary, Name: "PRE-DATA BOUNDARY"})

	_, ok := r.FindBySourceKey(catalog.SourceKey{})
	assert.False(t, ok)
}

func TestRegistry_FirstKeyWins(t *testing.T) {
	r := New()
	first := &catalog.Unit{Kind: catalog.KindTable, Name: "a", Key: catalog.Key(catalog.PgClass, 7)}
	second := &catalog.Unit{Kind: catalog.KindTable, Name: "b", Key: catalog.Key(catalog.PgClass, 7)}
	r.Register(first)
	r.Register(second)

	got, ok := r.FindBySourceKey(catalog.Key(catalog.PgClass, 7))
	require.True(t, ok)
	assert.Same(t, first, got)

	got, ok = r.FindByID(second.ID)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistry_AllIsSnapshot(t *testing.T) {
	r := New()
	r.Register(&catalog.Unit{Name: "a"})
	r.Register(&catalog.Unit{Name: "b"})

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "b", all[1].Name)

	r.Register(&catalog.Unit{Name: "c"})
	assert.Len(t, all, 2, "snapshot must not grow with later registrations")
}

func TestRegistry_Dependencies(t *testing.T) {
	r := New()
	a := &catalog.Unit{Name: "a"}
	b := &catalog.Unit{Name: "b"}
	r.Register(a)
	r.Register(b)

	r.AddDependency(a, b.ID)
	r.AddDependency(a, b.ID)
	r.AddDependency(a, a.ID)
	r.AddDependency(a, catalog.NoUnit)
	assert.Equal(t, []catalog.SequenceID{b.ID, b.ID}, a.Dependencies, "duplicates kept, self edges dropped")

	assert.True(t, r.RemoveDependency(a, b.ID))
	assert.Empty(t, a.Dependencies)
	assert.False(t, r.RemoveDependency(a, b.ID))
}

func TestRegistry_QualifiedName(t *testing.T) {
	r := New()
	ns := &catalog.Unit{Kind: catalog.KindNamespace, Name: "sales"}
	r.Register(ns)
	tbl := &catalog.Unit{Kind: catalog.KindTable, Name: "orders", Namespace: ns.ID}
	r.Register(tbl)
	ext := &catalog.Unit{Kind: catalog.KindExtension, Name: "hstore"}
	r.Register(ext)

	assert.Equal(t, "sales.orders", r.QualifiedName(tbl))
	assert.Equal(t, "hstore", r.QualifiedName(ext))
	assert.Equal(t, "", r.SchemaName(ext))
}
