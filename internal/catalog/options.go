package catalog

import (
	"path"
	"strings"
)

// Options are the run-wide switches the ordering phases consult.
type Options struct {
	SchemaOnly    bool
	DataOnly      bool
	BinaryUpgrade bool
	// Sections restricts output to the listed sections; empty means all.
	Sections []Section
	// Jobs is the number of parallel output workers.
	Jobs int

	// Selection lists hold "schema.name" or bare-name glob patterns. A
	// non-empty IncludeTables restricts tables and sequences to matches.
	IncludeTables    []string
	ExcludeSchemas   []string
	ExcludeTables    []string
	ExcludeTableData []string
}

// SectionSelected reports whether units of section s may be emitted.
func (o Options) SectionSelected(s Section) bool {
	if s == SectionNone {
		return false
	}
	if o.SchemaOnly && s == SectionData {
		return false
	}
	if o.DataOnly && s != SectionData {
		return false
	}
	if len(o.Sections) == 0 {
		return true
	}
	for _, want := range o.Sections {
		if want == s {
			return true
		}
	}
	return false
}

// Parallel reports whether more than one output worker is in play.
func (o Options) Parallel() bool {
	return o.Jobs > 1
}

// MatchesAny reports whether schema.name, or the bare name, matches one of
// the glob patterns. Patterns without a dot match the bare name only.
func MatchesAny(patterns []string, schema, name string) bool {
	qualified := name
	if schema != "" {
		qualified = schema + "." + name
	}
	for _, p := range patterns {
		target := name
		if strings.Contains(p, ".") {
			target = qualified
		}
		if ok, err := path.Match(p, target); err == nil && ok {
			return true
		}
	}
	return false
}
