package snapshot

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
)

// Build registers the snapshot's units into a fresh context and fills its
// relationship rows and lookup tables. A snapshot that references an
// object it does not contain through a payload is rejected; dependency
// rows may name untracked objects.
func Build(snap *Snapshot, opts catalog.Options, logger *slog.Logger) (*dumpctx.Context, error) {
	dctx := dumpctx.New(opts, logger)
	b := &builder{dctx: dctx, namespaces: make(map[string]catalog.SequenceID)}

	if err := b.registerUnits(snap.Units); err != nil {
		return nil, err
	}
	if err := b.linkUnits(snap.Units); err != nil {
		return nil, err
	}
	if err := b.loadRows(snap); err != nil {
		return nil, err
	}

	for oid, name := range snap.Roles {
		dctx.Lookups.Roles[catalog.OID(oid)] = name
	}

	dctx.Logger.Debug("built context from snapshot",
		slog.Int("units", dctx.Units.Count()),
		slog.Int("dependency_rows", len(dctx.Input.DependencyRows)))
	return dctx, nil
}

type builder struct {
	dctx       *dumpctx.Context
	units      []*catalog.Unit
	namespaces map[string]catalog.SequenceID
}

func (b *builder) registerUnits(in []Unit) error {
	reg := b.dctx.Units
	seen := make(map[catalog.SourceKey]string)

	for i := range in {
		su := &in[i]
		kind, err := catalog.ParseKind(su.Kind)
		if err != nil {
			return fmt.Errorf("unit %q: %w", su.Name, err)
		}
		if kind.IsBoundary() || kind == catalog.KindBinaryUpgradePlaceholder ||
			kind == catalog.KindTableData || kind == catalog.KindSequenceSet || kind == catalog.KindRefreshMatView {
			return fmt.Errorf("unit %q: kind %s is derived and cannot appear in a snapshot", su.Name, kind)
		}

		u := &catalog.Unit{
			Kind:         kind,
			Name:         su.Name,
			Owner:        catalog.OID(su.Owner),
			WillEmit:     !su.Skip,
			Definition:   su.Definition,
			PreassignSQL: su.Preassign,
		}
		if su.Key != "" {
			key, err := catalog.ParseSourceKey(su.Key)
			if err != nil {
				return fmt.Errorf("unit %q: %w", su.Name, err)
			}
			if prev, dup := seen[key]; dup {
				return fmt.Errorf("unit %q: source key %s already used by %q", su.Name, key, prev)
			}
			seen[key] = su.Name
			u.Key = key
			if su.Comment != "" {
				b.dctx.Lookups.Comments[key] = su.Comment
			}
			if len(su.Labels) > 0 {
				b.dctx.Lookups.SecurityLabels[key] = su.Labels
			}
		}

		reg.Register(u)
		b.units = append(b.units, u)
		if kind == catalog.KindNamespace {
			b.namespaces[u.Name] = u.ID
		}
	}
	return nil
}

func (b *builder) linkUnits(in []Unit) error {
	for i := range in {
		su, u := &in[i], b.units[i]
		if su.Schema != "" {
			ns, ok := b.namespaces[su.Schema]
			if !ok {
				return fmt.Errorf("unit %q: unknown schema %q", su.Name, su.Schema)
			}
			u.Namespace = ns
		}
		if err := b.decodePayload(su, u); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) decodePayload(su *Unit, u *catalog.Unit) error {
	switch u.Kind {
	case catalog.KindTable, catalog.KindSequence:
		var d TableDetails
		if err := su.DecodeDetails(&d); err != nil {
			return err
		}
		info := &catalog.TableInfo{Populated: true, Pages: d.Pages}
		switch {
		case d.RelKind != "":
			info.RelKind = d.RelKind[0]
		case u.Kind == catalog.KindSequence:
			info.RelKind = 'S'
		default:
			info.RelKind = 'r'
		}
		if d.Populated != nil {
			info.Populated = *d.Populated
		}
		for _, p := range d.Inherits {
			parent, err := b.ref(su, p)
			if err != nil {
				return err
			}
			info.Parents = append(info.Parents, parent)
		}
		if d.PartitionOf != "" {
			parent, err := b.ref(su, d.PartitionOf)
			if err != nil {
				return err
			}
			info.IsPartition = true
			info.PartitionParent = parent
			if !containsID(info.Parents, parent) {
				info.Parents = append(info.Parents, parent)
			}
		}
		u.Table = info

	case catalog.KindConstraint, catalog.KindFKConstraint:
		var d ConstraintDetails
		if err := su.DecodeDetails(&d); err != nil {
			return err
		}
		tbl, err := b.ref(su, d.Table)
		if err != nil {
			return err
		}
		info := &catalog.ConstraintInfo{Table: tbl, Type: 'c', Separate: d.Separate}
		if d.Type != "" {
			info.Type = d.Type[0]
		}
		if u.Kind == catalog.KindFKConstraint {
			info.Type = 'f'
			info.Separate = true
		}
		if d.References != "" {
			if info.RefTable, err = b.ref(su, d.References); err != nil {
				return err
			}
		}
		u.Constraint = info

	case catalog.KindRule:
		var d RuleDetails
		if err := su.DecodeDetails(&d); err != nil {
			return err
		}
		tbl, err := b.ref(su, d.Table)
		if err != nil {
			return err
		}
		u.Rule = &catalog.RuleInfo{Table: tbl, Separate: d.Separate}

	case catalog.KindIndex, catalog.KindTrigger, catalog.KindPolicy, catalog.KindAttrDef:
		var d OwnedDetails
		if err := su.DecodeDetails(&d); err != nil {
			return err
		}
		tbl, err := b.ref(su, d.Table)
		if err != nil {
			return err
		}
		u.Owned = &catalog.OwnedInfo{Table: tbl}

	case catalog.KindExtension:
		var d ExtensionDetails
		if err := su.DecodeDetails(&d); err != nil {
			return err
		}
		info := &catalog.ExtensionInfo{ConfigConditions: d.Conditions}
		for _, k := range d.ConfigTables {
			key, err := catalog.ParseSourceKey(k)
			if err != nil {
				return fmt.Errorf("extension %q: %w", su.Name, err)
			}
			info.ConfigTableKeys = append(info.ConfigTableKeys, key)
		}
		u.Extension = info

	default:
		if len(su.Details) > 0 {
			return fmt.Errorf("%s %q: kind takes no details", su.Kind, su.Name)
		}
	}
	return nil
}

// ref resolves a source key reference to a registered unit.
func (b *builder) ref(su *Unit, s string) (catalog.SequenceID, error) {
	if s == "" {
		return catalog.NoUnit, fmt.Errorf("%s %q: missing table reference", su.Kind, su.Name)
	}
	key, err := catalog.ParseSourceKey(s)
	if err != nil {
		return catalog.NoUnit, fmt.Errorf("%s %q: %w", su.Kind, su.Name, err)
	}
	u, ok := b.dctx.Units.FindBySourceKey(key)
	if !ok {
		return catalog.NoUnit, fmt.Errorf("%s %q: %w: %s", su.Kind, su.Name, catalog.ErrUnresolvedReference, key)
	}
	return u.ID, nil
}

func (b *builder) loadRows(snap *Snapshot) error {
	in := &b.dctx.Input
	for i, d := range snap.Depends {
		from, err := catalog.ParseSourceKey(d.From)
		if err != nil {
			return fmt.Errorf("depends[%d]: %w", i, err)
		}
		to, err := catalog.ParseSourceKey(d.To)
		if err != nil {
			return fmt.Errorf("depends[%d]: %w", i, err)
		}
		if len(d.Kind) != 1 {
			return fmt.Errorf("depends[%d]: invalid kind %q", i, d.Kind)
		}
		in.DependencyRows = append(in.DependencyRows, catalog.DependencyRow{
			Referencing: from, Referenced: to, Kind: catalog.DepKind(d.Kind[0]),
		})
	}

	var err error
	if in.MatViewDeps, err = parsePairs("matview_deps", snap.MatViewDeps); err != nil {
		return err
	}
	if in.ConfigTableFKs, err = parsePairs("config_fks", snap.ConfigFKs); err != nil {
		return err
	}

	for member, family := range snap.OperatorFamilies {
		mk, err := catalog.ParseSourceKey(member)
		if err != nil {
			return fmt.Errorf("operator_families: %w", err)
		}
		fk, err := catalog.ParseSourceKey(family)
		if err != nil {
			return fmt.Errorf("operator_families: %w", err)
		}
		b.dctx.Lookups.OperatorFamilies[mk] = fk
	}
	return nil
}

func parsePairs(field string, pairs []Pair) ([]catalog.KeyPair, error) {
	out := make([]catalog.KeyPair, 0, len(pairs))
	for i, p := range pairs {
		from, err := catalog.ParseSourceKey(p.From)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		to, err := catalog.ParseSourceKey(p.To)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out = append(out, catalog.KeyPair{From: from, To: to})
	}
	return out, nil
}

func containsID(ids []catalog.SequenceID, id catalog.SequenceID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
