// Package collapse rewrites dependency lists so they only name units that
// are actually written to the output.
package collapse

import (
	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/registry"
)

// Emitted reports whether a unit is written to the output.
type Emitted func(id catalog.SequenceID) bool

// Collapse fills FinalDeps of every emitted unit. Edges to emitted units are
// kept; edges to skipped units are replaced by that unit's own edges,
// recursively. Section boundaries are ordering anchors only and are not
// followed. A structural list is never walked or rewritten; its emitted
// members are copied as they are.
func Collapse(reg *registry.Registry, emitted Emitted) {
	for _, u := range reg.All() {
		if !emitted(u.ID) {
			u.FinalDeps = nil
			continue
		}
		if u.HasStructuralDeps() {
			u.FinalDeps = nil
			for _, d := range u.StructuralDeps {
				if emitted(d) {
					u.FinalDeps = append(u.FinalDeps, d)
				}
			}
			continue
		}
		u.FinalDeps = Dependencies(reg, u, emitted)
	}
}

// Dependencies returns u's dependency list with every skipped unit
// replaced by its own emitted dependencies. The result is free of
// duplicates and keeps first-encounter order.
func Dependencies(reg *registry.Registry, u *catalog.Unit, emitted Emitted) []catalog.SequenceID {
	visited := map[catalog.SequenceID]bool{u.ID: true}
	var out []catalog.SequenceID
	find(reg, u, emitted, visited, &out)
	return out
}

func find(reg *registry.Registry, u *catalog.Unit, emitted Emitted, visited map[catalog.SequenceID]bool, out *[]catalog.SequenceID) {
	for _, id := range u.Dependencies {
		if visited[id] {
			continue
		}
		visited[id] = true

		if emitted(id) {
			*out = append(*out, id)
			continue
		}
		if dep, ok := reg.FindByID(id); ok && !dep.Kind.IsBoundary() {
			find(reg, dep, emitted, visited, out)
		}
	}
}
