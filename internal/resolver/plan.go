package resolver

import (
	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dag"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
)

// Entry is one emitted unit of the plan, in output order.
type Entry struct {
	Position   int                     `json:"position" yaml:"position"`
	ID         catalog.SequenceID      `json:"id" yaml:"id"`
	Key        string                  `json:"key,omitempty" yaml:"key,omitempty"`
	Kind       string                  `json:"kind" yaml:"kind"`
	Schema     string                  `json:"schema,omitempty" yaml:"schema,omitempty"`
	Name       string                  `json:"name" yaml:"name"`
	Owner      string                  `json:"owner,omitempty" yaml:"owner,omitempty"`
	Section    string                  `json:"section" yaml:"section"`
	Deps       []catalog.SequenceID    `json:"deps,omitempty" yaml:"deps,omitempty"`
	Filter     string                  `json:"filter,omitempty" yaml:"filter,omitempty"`
	Pages      int64                   `json:"pages,omitempty" yaml:"pages,omitempty"`
	Definition string                  `json:"definition,omitempty" yaml:"definition,omitempty"`
	Comment    string                  `json:"comment,omitempty" yaml:"comment,omitempty"`
	Labels     []dumpctx.SecurityLabel `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// IsData reports whether the entry is loaded by the data workers.
func (e Entry) IsData() bool {
	return e.Section == catalog.SectionData.String()
}

// BrokenEdge names the dependency dropped to break a cycle.
type BrokenEdge struct {
	Dependent  catalog.SequenceID `json:"dependent" yaml:"dependent"`
	Dependency catalog.SequenceID `json:"dependency" yaml:"dependency"`
}

// CycleReport describes one dependency loop met while ordering.
type CycleReport struct {
	IDs      []catalog.SequenceID `json:"ids" yaml:"ids"`
	Units    []string             `json:"units" yaml:"units"`
	Broken   *BrokenEdge          `json:"broken,omitempty" yaml:"broken,omitempty"`
	Repaired bool                 `json:"repaired" yaml:"repaired"`
	Guidance string               `json:"guidance,omitempty" yaml:"guidance,omitempty"`
}

// Plan is the resolved output contract: the emitted entries in order with
// archive-safe dependencies, plus the full order used to derive it.
type Plan struct {
	Entries []Entry       `json:"entries" yaml:"entries"`
	Cycles  []CycleReport `json:"cycles,omitempty" yaml:"cycles,omitempty"`

	// Order is the total order over every registered unit, boundaries and
	// skipped units included.
	Order        []catalog.SequenceID `json:"-" yaml:"-"`
	PreBoundary  catalog.SequenceID   `json:"-" yaml:"-"`
	PostBoundary catalog.SequenceID   `json:"-" yaml:"-"`
	// Placeholder is the binary-upgrade placeholder unit, NoUnit otherwise.
	Placeholder catalog.SequenceID `json:"-" yaml:"-"`
}

// Positions maps every unit to its index in Order.
func (p *Plan) Positions() map[catalog.SequenceID]int {
	pos := make(map[catalog.SequenceID]int, len(p.Order))
	for i, id := range p.Order {
		pos[id] = i
	}
	return pos
}

// Entry returns the emitted entry of a unit.
func (p *Plan) Entry(id catalog.SequenceID) (Entry, bool) {
	for _, e := range p.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// DataEntries returns the entries of the data section in plan order.
func (p *Plan) DataEntries() []Entry {
	var out []Entry
	for _, e := range p.Entries {
		if e.IsData() {
			out = append(out, e)
		}
	}
	return out
}

// BrokenCycles returns the cycles that could only be resolved by dropping
// an edge.
func (p *Plan) BrokenCycles() []CycleReport {
	var out []CycleReport
	for _, c := range p.Cycles {
		if !c.Repaired {
			out = append(out, c)
		}
	}
	return out
}

// Graph builds the graph of the entries accepted by include, linked by
// their final dependencies. Nodes sort in plan order. A nil include keeps
// every entry.
func (p *Plan) Graph(include func(Entry) bool) *dag.Graph {
	g := dag.NewGraph()
	var kept []Entry
	for _, e := range p.Entries {
		if include != nil && !include(e) {
			continue
		}
		g.AddNode(e.ID, dag.SortKey{Priority: e.Position, Schema: e.Schema, Name: e.Name})
		kept = append(kept, e)
	}
	for _, e := range kept {
		for _, d := range e.Deps {
			if _, ok := g.GetNode(d); ok {
				_ = g.AddEdge(d, e.ID)
			}
		}
	}
	return g
}

// Upstream returns the entries id transitively depends on, in plan order.
func (p *Plan) Upstream(id catalog.SequenceID) []Entry {
	ids := p.Graph(nil).GetUpstreamNodes(id)
	want := make(map[catalog.SequenceID]bool, len(ids))
	for _, u := range ids {
		want[u] = true
	}
	var out []Entry
	for _, e := range p.Entries {
		if want[e.ID] {
			out = append(out, e)
		}
	}
	return out
}
