package resolver

import (
	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/registry"
)

// emittedSet is the set of units actually written to the output.
type emittedSet map[catalog.SequenceID]bool

func (s emittedSet) has(id catalog.SequenceID) bool {
	return s[id]
}

// filterEmitted applies the output filter: a unit is written when it is
// selected for emission and the run wants its section. Boundaries and
// folded rules or constraints have no section and are never written.
func filterEmitted(reg *registry.Registry, opts catalog.Options) emittedSet {
	set := make(emittedSet)
	for _, u := range reg.All() {
		if !u.WillEmit || u.Kind.IsBoundary() {
			continue
		}
		if opts.SectionSelected(u.Section()) {
			set[u.ID] = true
		}
	}
	return set
}
