package resolver

import (
	"log/slog"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dag"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
	"github.com/leapstack-labs/leapdump/internal/section"
)

// loopRepairer dissolves the loops a folded constraint or rule forms with
// its owning table or view. It keeps unit dependency lists in step with
// the graph.
type loopRepairer struct {
	dctx       *dumpctx.Context
	boundaries section.Boundaries
}

// Repair implements dag.Repairer.
func (r *loopRepairer) Repair(g *dag.Graph, cycle []catalog.SequenceID) bool {
	units := r.dctx.Units

	if len(cycle) == 2 {
		a, _ := units.FindByID(cycle[0])
		b, _ := units.FindByID(cycle[1])
		if owned, owner := foldedPair(a, b); owned != nil {
			// Folded into the owner: only the owner's edge matters.
			g.RemoveEdge(owner.ID, owned.ID)
			units.RemoveDependency(owned, owner.ID)
			r.dctx.Logger.Debug("repaired dependency loop",
				slog.String("owner", units.QualifiedName(owner)),
				slog.String("folded", owned.Name))
			return true
		}
		return false
	}

	for i, id := range cycle {
		u, _ := units.FindByID(id)
		if u == nil || !u.Kind.Separable() || u.Separate() {
			continue
		}
		// Splitting only removes the owner's edge to u, so the loop must
		// run through that edge.
		owner := u.OwnerTable()
		if cycle[(i+len(cycle)-1)%len(cycle)] != owner {
			continue
		}
		if u.Kind == catalog.KindRule && !isView(units.FindByID(owner)) {
			continue
		}
		r.separate(g, u, owner)
		return true
	}
	return false
}

// separate turns a folded constraint or rule into a post-data unit of its
// own, which breaks every loop through its owner.
func (r *loopRepairer) separate(g *dag.Graph, u *catalog.Unit, owner catalog.SequenceID) {
	units := r.dctx.Units
	u.SetSeparate()

	g.RemoveEdge(u.ID, owner)
	if tbl, ok := units.FindByID(owner); ok {
		units.RemoveDependency(tbl, u.ID)
	}
	_ = g.AddEdge(owner, u.ID)
	units.AddDependency(u, owner)

	post := r.boundaries.Post.ID
	_ = g.AddEdge(post, u.ID)
	units.AddDependency(u, post)

	r.dctx.Logger.Debug("split folded unit out of its owner",
		slog.String("kind", u.Kind.String()),
		slog.String("name", u.Name))
}

// foldedPair recognizes a folded constraint or rule and its owner in
// either order.
func foldedPair(a, b *catalog.Unit) (owned, owner *catalog.Unit) {
	if a == nil || b == nil {
		return nil, nil
	}
	for _, pair := range [2][2]*catalog.Unit{{a, b}, {b, a}} {
		u, tbl := pair[0], pair[1]
		if !u.Kind.Separable() || u.Separate() || u.OwnerTable() != tbl.ID {
			continue
		}
		if u.Kind == catalog.KindRule && !isView(tbl, true) {
			continue
		}
		return u, tbl
	}
	return nil, nil
}

func isView(u *catalog.Unit, ok bool) bool {
	return ok && u.Table != nil && (u.Table.RelKind == 'v' || u.Table.RelKind == 'm')
}
