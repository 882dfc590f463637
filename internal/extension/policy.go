package extension

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
)

// Policy decides the emission flag of every unit. Precedence, highest
// first: extension membership, explicit exclusion lists, the kind's
// default policy, the collector's initial decision.
type Policy struct {
	dctx     *dumpctx.Context
	resolver *Resolver
}

// NewPolicy creates a policy backed by the given membership resolver.
func NewPolicy(dctx *dumpctx.Context, resolver *Resolver) *Policy {
	return &Policy{dctx: dctx, resolver: resolver}
}

// stage orders policy evaluation so that every unit is decided after the
// units its policy follows.
func stage(u *catalog.Unit) int {
	switch {
	case u.Kind == catalog.KindNamespace:
		return 0
	case u.Kind == catalog.KindExtension:
		return 1
	case u.Kind.DefaultPolicy() == catalog.PolicyFollowOwner:
		return 3
	}
	return 2
}

// Apply runs Select over every registered unit.
func (p *Policy) Apply() error {
	units := p.dctx.Units.All()
	sort.SliceStable(units, func(i, j int) bool {
		return stage(units[i]) < stage(units[j])
	})

	members := 0
	for _, u := range units {
		member, err := p.Select(u)
		if err != nil {
			return err
		}
		if member {
			members++
		}
	}
	p.dctx.Logger.Debug("applied emission policy", "units", len(units), "extension_members", members)
	return nil
}

// Select decides u's emission flag and reports whether u is an extension
// member.
func (p *Policy) Select(u *catalog.Unit) (bool, error) {
	if u.Kind.DefaultPolicy() == catalog.PolicyNever {
		u.WillEmit = false
		return false, nil
	}

	member, err := p.resolver.Resolve(u)
	if err != nil || member {
		return member, err
	}

	p.applyKindPolicy(u)
	if p.excluded(u) {
		u.WillEmit = false
	}
	return false, nil
}

func (p *Policy) applyKindPolicy(u *catalog.Unit) {
	units := p.dctx.Units
	switch u.Kind.DefaultPolicy() {
	case catalog.PolicyUserNamespace:
		if isSystemNamespace(u.Name) {
			u.WillEmit = false
		}
	case catalog.PolicyFollowNamespace:
		if ns, ok := units.FindByID(u.Namespace); ok && !ns.WillEmit {
			u.WillEmit = false
		}
	case catalog.PolicyFollowOwner:
		if owner, ok := units.FindByID(u.OwnerTable()); ok && !owner.WillEmit {
			u.WillEmit = false
		}
	}
}

func (p *Policy) excluded(u *catalog.Unit) bool {
	opts := p.dctx.Options
	switch u.Kind {
	case catalog.KindNamespace:
		return catalog.MatchesAny(opts.ExcludeSchemas, "", u.Name)
	case catalog.KindTable, catalog.KindSequence:
		schema := p.dctx.Units.SchemaName(u)
		if len(opts.IncludeTables) > 0 && !catalog.MatchesAny(opts.IncludeTables, schema, u.Name) {
			return true
		}
		return catalog.MatchesAny(opts.ExcludeTables, schema, u.Name)
	}
	return false
}

func isSystemNamespace(name string) bool {
	return strings.HasPrefix(name, "pg_") || name == "information_schema"
}
