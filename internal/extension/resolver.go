// Package extension decides which units belong to installed extensions and
// applies the emission policy that membership overrides.
package extension

import (
	"fmt"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
)

// Index maps a member's source key to its owning extension's source key.
type Index map[catalog.SourceKey]catalog.SourceKey

// NewIndex builds the reverse membership index from the extension-typed
// rows of the dependency stream. Other rows are ignored.
func NewIndex(rows []catalog.DependencyRow) Index {
	idx := make(Index)
	for _, row := range rows {
		if row.Kind != catalog.DepExtension {
			continue
		}
		if row.Referenced.OriginTableID != catalog.PgExtension {
			continue
		}
		idx[row.Referencing] = row.Referenced
	}
	return idx
}

// Resolver applies extension membership to units.
type Resolver struct {
	dctx  *dumpctx.Context
	index Index
}

// NewResolver creates a resolver over a prebuilt index.
func NewResolver(dctx *dumpctx.Context, index Index) *Resolver {
	return &Resolver{dctx: dctx, index: index}
}

// Resolve reports whether u is an extension member. For members it marks
// the unit, adds an edge toward the extension and decides emission: in
// binary-upgrade mode members follow the extension, otherwise they are
// skipped since CREATE EXTENSION recreates them.
func (r *Resolver) Resolve(u *catalog.Unit) (bool, error) {
	if u.Key.IsZero() {
		return false, nil
	}
	extKey, ok := r.index[u.Key]
	if !ok {
		return false, nil
	}

	ext, ok := r.dctx.Units.FindBySourceKey(extKey)
	if !ok || ext.Kind != catalog.KindExtension {
		return false, fmt.Errorf("%w of object %q (%s)", catalog.ErrMissingExtensionParent, u.Name, u.Key)
	}

	u.IsExtensionMember = true
	r.dctx.Units.AddDependency(u, ext.ID)
	if r.dctx.Options.BinaryUpgrade {
		u.WillEmit = ext.WillEmit
	} else {
		u.WillEmit = false
	}
	return true, nil
}
