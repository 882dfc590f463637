package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindNames(t *testing.T) {
	names := KindNames()
	require.Len(t, names, len(kinds))
	assert.Equal(t, "binary-upgrade-placeholder", names[0])
	assert.Equal(t, "refresh-materialized-view", names[len(names)-1])

	for _, name := range names {
		k, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.String())
	}

	_, err := ParseKind("widget")
	assert.Error(t, err)
	assert.Equal(t, "kind(999)", Kind(999).String())
}

func TestKindPriority_BoundariesSplitSections(t *testing.T) {
	for k, info := range kinds {
		switch info.section {
		case SectionPreData:
			assert.Less(t, k.Priority(), KindPreDataBoundary.Priority(), k.String())
		case SectionData:
			assert.Greater(t, k.Priority(), KindPreDataBoundary.Priority(), k.String())
			assert.Less(t, k.Priority(), KindPostDataBoundary.Priority(), k.String())
		case SectionPostData:
			assert.Greater(t, k.Priority(), KindPostDataBoundary.Priority(), k.String())
		}
	}
	assert.Equal(t, len(kinds), KindUnknown.Priority())
}

func TestSectionOf(t *testing.T) {
	tests := []struct {
		kind     Kind
		separate bool
		want     Section
	}{
		{KindTable, false, SectionPreData},
		{KindTableData, false, SectionData},
		{KindIndex, false, SectionPostData},
		{KindConstraint, false, SectionNone},
		{KindConstraint, true, SectionPostData},
		{KindRule, false, SectionNone},
		{KindFKConstraint, true, SectionPostData},
		{KindPreDataBoundary, true, SectionNone},
		{KindUnknown, true, SectionNone},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, SectionOf(tt.kind, tt.separate))
		})
	}
}

func TestParseSection(t *testing.T) {
	for _, s := range []Section{SectionPreData, SectionData, SectionPostData} {
		got, err := ParseSection(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseSection("none")
	assert.ErrorContains(t, err, "unknown section")
	_, err = ParseSection("")
	assert.Error(t, err)
}

func TestParseSourceKey(t *testing.T) {
	k, err := ParseSourceKey(" 1259/16384 ")
	require.NoError(t, err)
	assert.Equal(t, Key(PgClass, 16384), k)
	assert.Equal(t, "1259/16384", k.String())
	assert.False(t, k.IsZero())
	assert.True(t, SourceKey{}.IsZero())

	for _, bad := range []string{"1259", "a/1", "1/b", "1/99999999999"} {
		_, err := ParseSourceKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestOptions_SectionSelected(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []Section
	}{
		{"all", Options{}, []Section{SectionPreData, SectionData, SectionPostData}},
		{"schema only", Options{SchemaOnly: true}, []Section{SectionPreData, SectionPostData}},
		{"data only", Options{DataOnly: true}, []Section{SectionData}},
		{"explicit", Options{Sections: []Section{SectionPostData}}, []Section{SectionPostData}},
		{"schema only and explicit data", Options{SchemaOnly: true, Sections: []Section{SectionData}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Section
			for _, s := range []Section{SectionNone, SectionPreData, SectionData, SectionPostData} {
				if tt.opts.SectionSelected(s) {
					got = append(got, s)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptions_Parallel(t *testing.T) {
	assert.False(t, Options{}.Parallel())
	assert.False(t, Options{Jobs: 1}.Parallel())
	assert.True(t, Options{Jobs: 4}.Parallel())
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		patterns []string
		schema   string
		name     string
		want     bool
	}{
		{[]string{"orders"}, "public", "orders", true},
		{[]string{"public.orders"}, "public", "orders", true},
		{[]string{"audit.orders"}, "public", "orders", false},
		{[]string{"public.tmp_*"}, "public", "tmp_load", true},
		{[]string{"*.log"}, "app", "log", true},
		{[]string{"tmp_*"}, "public", "orders", false},
		{[]string{"[bad"}, "public", "orders", false},
		{nil, "public", "orders", false},
		{[]string{"orders"}, "", "orders", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesAny(tt.patterns, tt.schema, tt.name), "%v %s.%s", tt.patterns, tt.schema, tt.name)
	}
}

func TestNewTableDataUnit(t *testing.T) {
	table := &Unit{ID: 7, Kind: KindTable, Name: "orders", Namespace: 2, WillEmit: true, Table: &TableInfo{RelKind: 'r'}}
	data := NewTableDataUnit(table)
	assert.Equal(t, KindTableData, data.Kind)
	assert.Equal(t, []SequenceID{7}, data.StructuralDeps)
	assert.True(t, data.HasStructuralDeps())
	assert.Equal(t, SequenceID(7), data.OwnerTable())
	assert.Equal(t, SectionData, data.Section())

	seq := NewTableDataUnit(&Unit{ID: 8, Kind: KindSequence, Table: &TableInfo{RelKind: 'S'}})
	assert.Equal(t, KindSequenceSet, seq.Kind)

	mv := NewTableDataUnit(&Unit{ID: 9, Kind: KindTable, Table: &TableInfo{RelKind: 'm', Populated: true}})
	assert.Equal(t, KindRefreshMatView, mv.Kind)
	assert.True(t, mv.TableData.Refresh)
	assert.False(t, mv.HasStructuralDeps())
	assert.True(t, mv.DependsOn(9))
}

func TestUnit_Separate(t *testing.T) {
	c := &Unit{Kind: KindConstraint, Constraint: &ConstraintInfo{Table: 3}}
	assert.False(t, c.Separate())
	assert.Equal(t, SectionNone, c.Section())

	c.SetSeparate()
	assert.True(t, c.Separate())
	assert.Equal(t, SectionPostData, c.Section())

	idx := &Unit{Kind: KindIndex, Owned: &OwnedInfo{Table: 3}}
	assert.True(t, idx.Separate())
	assert.Equal(t, SequenceID(3), idx.OwnerTable())
}
