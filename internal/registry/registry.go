// Package registry assigns sequence ids to dumpable units and indexes them
// by id and by catalog source key.
//
// Lookups report "not found" instead of failing: many catalog dependency
// rows point at objects that are never collected (toast tables, internal
// rowtypes) and callers are expected to skip those silently.
package registry

import (
	"github.com/leapstack-labs/leapdump/internal/catalog"
)

// Registry owns every unit of a run. Units are never removed.
type Registry struct {
	// byID is indexed by SequenceID; slot 0 is the NoUnit handle.
	byID []*catalog.Unit

	// byKey maps catalog source keys to units: "1259/16384" → table unit.
	// Units with a zero key (boundaries, data units) are not indexed.
	byKey map[catalog.SourceKey]*catalog.Unit
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byID:  []*catalog.Unit{nil},
		byKey: make(map[catalog.SourceKey]*catalog.Unit),
	}
}

// Register assigns the next sequence id to u and indexes it.
// A second unit with an already indexed source key stays reachable by id
// only; the first registration wins the key.
func (r *Registry) Register(u *catalog.Unit) catalog.SequenceID {
	u.ID = catalog.SequenceID(len(r.byID))
	r.byID = append(r.byID, u)

	if !u.Key.IsZero() {
		if _, exists := r.byKey[u.Key]; !exists {
			r.byKey[u.Key] = u
		}
	}
	return u.ID
}

// FindByID returns the unit with the given id.
func (r *Registry) FindByID(id catalog.SequenceID) (*catalog.Unit, bool) {
	if id <= catalog.NoUnit || int(id) >= len(r.byID) {
		return nil, false
	}
	return r.byID[id], true
}

// FindBySourceKey returns the unit derived from the given catalog row.
func (r *Registry) FindBySourceKey(key catalog.SourceKey) (*catalog.Unit, bool) {
	u, ok := r.byKey[key]
	return u, ok
}

// All returns a snapshot of every unit in registration order.
func (r *Registry) All() []*catalog.Unit {
	out := make([]*catalog.Unit, len(r.byID)-1)
	copy(out, r.byID[1:])
	return out
}

// Count returns the number of registered units.
func (r *Registry) Count() int {
	return len(r.byID) - 1
}

// AddDependency records that u must be created after id. Duplicates are
// harmless; a self edge is dropped.
func (r *Registry) AddDependency(u *catalog.Unit, id catalog.SequenceID) {
	if id == u.ID || id == catalog.NoUnit {
		return
	}
	u.Dependencies = append(u.Dependencies, id)
}

// RemoveDependency drops every occurrence of id from u's dependencies.
// It reports whether anything was removed.
func (r *Registry) RemoveDependency(u *catalog.Unit, id catalog.SequenceID) bool {
	kept := u.Dependencies[:0]
	removed := false
	for _, d := range u.Dependencies {
		if d == id {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	u.Dependencies = kept
	return removed
}

// SchemaName returns the name of u's namespace, or "" when unqualified.
func (r *Registry) SchemaName(u *catalog.Unit) string {
	if ns, ok := r.FindByID(u.Namespace); ok {
		return ns.Name
	}
	return ""
}

// QualifiedName renders u as "schema.name" when it has a namespace.
func (r *Registry) QualifiedName(u *catalog.Unit) string {
	if schema := r.SchemaName(u); schema != "" {
		return schema + "." + u.Name
	}
	return u.Name
}
