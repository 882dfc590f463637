package resolver

import (
	"strings"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/registry"
)

const placeholderName = "binary upgrade preassigned identifiers"

// newPlaceholder registers the empty binary-upgrade placeholder. Its kind
// has the highest priority, so it sorts ahead of everything it does not
// depend on.
func newPlaceholder(reg *registry.Registry) *catalog.Unit {
	u := &catalog.Unit{
		Kind:     catalog.KindBinaryUpgradePlaceholder,
		Name:     placeholderName,
		WillEmit: true,
	}
	reg.Register(u)
	return u
}

// amendPlaceholder fills the placeholder, already in position, with the
// preassignment calls of every emitted unit in output order.
func amendPlaceholder(reg *registry.Registry, ph *catalog.Unit, order []catalog.SequenceID, set emittedSet) {
	var sb strings.Builder
	for _, id := range order {
		if id == ph.ID || !set.has(id) {
			continue
		}
		u, ok := reg.FindByID(id)
		if !ok || u.PreassignSQL == "" {
			continue
		}
		sb.WriteString(u.PreassignSQL)
		if !strings.HasSuffix(u.PreassignSQL, "\n") {
			sb.WriteByte('\n')
		}
	}
	ph.Definition = sb.String()
}
