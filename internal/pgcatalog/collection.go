package pgcatalog

import (
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
	"github.com/leapstack-labs/leapdump/internal/snapshot"
)

// collection accumulates query results into a snapshot. Payloads that
// later queries extend (inheritance, extension configuration) are kept
// typed until finish.
type collection struct {
	snap *snapshot.Snapshot
	opts Options

	units      map[catalog.SourceKey]int
	tables     map[uint32]*snapshot.TableDetails
	tableOrder []uint32
	partitions map[uint32]bool
	extensions map[uint32]*snapshot.ExtensionDetails
	extOrder   []uint32
}

func newCollection(snap *snapshot.Snapshot, opts Options) *collection {
	return &collection{
		snap:       snap,
		opts:       opts,
		units:      make(map[catalog.SourceKey]int),
		tables:     make(map[uint32]*snapshot.TableDetails),
		partitions: make(map[uint32]bool),
		extensions: make(map[uint32]*snapshot.ExtensionDetails),
	}
}

// steps lists the catalog queries in execution order. Comments and labels
// come last since they attach to units registered by earlier steps.
func (c *collection) steps() []step {
	return []step{
		{name: "roles", query: queryRoles, scan: c.scanRole},
		{name: "namespaces", query: queryNamespaces, scan: c.scanNamespace},
		{name: "extensions", query: queryExtensions, scan: c.scanExtension},
		{name: "extension configuration", query: queryExtensionConfig, scan: c.scanExtensionConfig},
		{name: "relations", query: queryRelations, scan: c.scanRelation},
		{name: "inheritance", query: queryInherits, scan: c.scanInherits},
		{name: "constraints", query: queryConstraints, scan: c.scanConstraint},
		{name: "indexes", query: queryIndexes, scan: c.scanOwned(catalog.PgClass, "index")},
		{name: "rules", query: queryRules, scan: c.scanRule},
		{name: "triggers", query: queryTriggers, scan: c.scanOwned(catalog.PgTrigger, "trigger")},
		{name: "policies", query: queryPolicies, scan: c.scanOwned(catalog.PgPolicy, "policy")},
		{name: "defaults", query: queryDefaults, scan: c.scanOwned(catalog.PgAttrdef, "default")},
		{name: "types", query: queryTypes, scan: c.scanType},
		{name: "functions", query: queryFunctions, scan: c.scanFunction},
		{name: "dependencies", query: queryDepend, scan: c.scanDepend},
		{name: "operator families", query: queryOperatorFamilies, scan: c.scanOperatorFamily},
		{name: "materialized view dependencies", query: queryMatViewDeps, scan: c.scanMatViewDep},
		{name: "configuration table foreign keys", query: queryConfigFKs, scan: c.scanConfigFK},
		{name: "comments", query: queryComments, scan: c.scanComment},
		{name: "security labels", query: querySecurityLabels, scan: c.scanLabel},
	}
}

func key(origin catalog.OID, row uint32) catalog.SourceKey {
	return catalog.Key(origin, catalog.OID(row))
}

func (c *collection) addUnit(k catalog.SourceKey, kind, name, schema string, owner uint32) *snapshot.Unit {
	c.units[k] = len(c.snap.Units)
	c.snap.Units = append(c.snap.Units, snapshot.Unit{
		Key:    k.String(),
		Kind:   kind,
		Name:   name,
		Schema: schema,
		Owner:  owner,
	})
	return &c.snap.Units[len(c.snap.Units)-1]
}

func (c *collection) unit(k catalog.SourceKey) *snapshot.Unit {
	i, ok := c.units[k]
	if !ok {
		return nil
	}
	return &c.snap.Units[i]
}

func (c *collection) scanRole(rows *sql.Rows) error {
	var oid uint32
	var name string
	if err := rows.Scan(&oid, &name); err != nil {
		return err
	}
	c.snap.Roles[oid] = name
	return nil
}

func (c *collection) scanNamespace(rows *sql.Rows) error {
	var oid, owner uint32
	var name string
	if err := rows.Scan(&oid, &name, &owner); err != nil {
		return err
	}
	c.addUnit(key(catalog.PgNamespace, oid), "namespace", name, "", owner)
	return nil
}

func (c *collection) scanExtension(rows *sql.Rows) error {
	var oid, owner uint32
	var name, schema string
	if err := rows.Scan(&oid, &name, &schema, &owner); err != nil {
		return err
	}
	c.addUnit(key(catalog.PgExtension, oid), "extension", name, schema, owner)
	c.extensions[oid] = &snapshot.ExtensionDetails{}
	c.extOrder = append(c.extOrder, oid)
	return nil
}

func (c *collection) scanExtensionConfig(rows *sql.Rows) error {
	var ext, table uint32
	var cond string
	if err := rows.Scan(&ext, &table, &cond); err != nil {
		return err
	}
	d, ok := c.extensions[ext]
	if !ok {
		return nil
	}
	d.ConfigTables = append(d.ConfigTables, key(catalog.PgClass, table).String())
	d.Conditions = append(d.Conditions, cond)
	return nil
}

func (c *collection) scanRelation(rows *sql.Rows) error {
	var (
		oid, owner            uint32
		name, schema, relkind string
		pages                 int64
		populated, partition  bool
	)
	if err := rows.Scan(&oid, &name, &schema, &owner, &relkind, &pages, &populated, &partition); err != nil {
		return err
	}

	kind := "table"
	if relkind == "S" {
		kind = "sequence"
	}
	u := c.addUnit(key(catalog.PgClass, oid), kind, name, schema, owner)
	// The composite type itself is dumped from its pg_type row.
	u.Skip = relkind == "c"
	if c.opts.BinaryUpgrade && !u.Skip {
		u.Preassign = fmt.Sprintf("SELECT pg_catalog.binary_upgrade_set_next_heap_pg_class_oid('%d'::pg_catalog.oid);", oid)
	}

	d := &snapshot.TableDetails{RelKind: relkind, Pages: pages}
	if relkind == "m" {
		d.Populated = &populated
	}
	c.tables[oid] = d
	c.tableOrder = append(c.tableOrder, oid)
	c.partitions[oid] = partition
	return nil
}

func (c *collection) scanInherits(rows *sql.Rows) error {
	var child, parent uint32
	if err := rows.Scan(&child, &parent); err != nil {
		return err
	}
	d, ok := c.tables[child]
	if !ok || c.tables[parent] == nil {
		return nil
	}
	ref := key(catalog.PgClass, parent).String()
	if c.partitions[child] && d.PartitionOf == "" {
		d.PartitionOf = ref
		return nil
	}
	d.Inherits = append(d.Inherits, ref)
	return nil
}

// scanConstraint registers constraints. Validated check constraints are
// folded into their table; every other type is dumped separately.
func (c *collection) scanConstraint(rows *sql.Rows) error {
	var (
		oid, rel, refRel     uint32
		name, schema, contyp string
		validated            bool
	)
	if err := rows.Scan(&oid, &name, &schema, &contyp, &rel, &refRel, &validated); err != nil {
		return err
	}
	if c.tables[rel] == nil {
		return nil
	}

	kind := "constraint"
	if contyp == "f" {
		kind = "fk-constraint"
	}
	d := snapshot.ConstraintDetails{
		Table:    key(catalog.PgClass, rel).String(),
		Type:     contyp,
		Separate: contyp != "c" || !validated,
	}
	if refRel != 0 && c.tables[refRel] != nil {
		d.References = key(catalog.PgClass, refRel).String()
	}
	return c.addUnit(key(catalog.PgConstraint, oid), kind, name, schema, 0).SetDetails(d)
}

// scanRule registers rewrite rules. A view's _RETURN rule is its
// definition and is folded into it.
func (c *collection) scanRule(rows *sql.Rows) error {
	var oid, rel uint32
	var name, schema, relkind string
	if err := rows.Scan(&oid, &name, &schema, &rel, &relkind); err != nil {
		return err
	}
	if c.tables[rel] == nil {
		return nil
	}
	d := snapshot.RuleDetails{
		Table:    key(catalog.PgClass, rel).String(),
		Separate: !(name == "_RETURN" && (relkind == "v" || relkind == "m")),
	}
	return c.addUnit(key(catalog.PgRewrite, oid), "rule", name, schema, 0).SetDetails(d)
}

// scanOwned returns a scanner for units owned by a table: oid, name,
// schema and table oid.
func (c *collection) scanOwned(origin catalog.OID, kind string) func(*sql.Rows) error {
	return func(rows *sql.Rows) error {
		var oid, rel uint32
		var name, schema string
		if err := rows.Scan(&oid, &name, &schema, &rel); err != nil {
			return err
		}
		if c.tables[rel] == nil {
			return nil
		}
		d := snapshot.OwnedDetails{Table: key(catalog.PgClass, rel).String()}
		return c.addUnit(key(origin, oid), kind, name, schema, 0).SetDetails(d)
	}
}

func (c *collection) scanType(rows *sql.Rows) error {
	var oid, owner uint32
	var name, schema string
	if err := rows.Scan(&oid, &name, &schema, &owner); err != nil {
		return err
	}
	u := c.addUnit(key(catalog.PgType, oid), "type", name, schema, owner)
	if c.opts.BinaryUpgrade {
		u.Preassign = fmt.Sprintf("SELECT pg_catalog.binary_upgrade_set_next_pg_type_oid('%d'::pg_catalog.oid);", oid)
	}
	return nil
}

func (c *collection) scanFunction(rows *sql.Rows) error {
	var oid, owner uint32
	var name, schema, prokind string
	if err := rows.Scan(&oid, &name, &schema, &owner, &prokind); err != nil {
		return err
	}
	kind := "function"
	if prokind == "a" {
		kind = "aggregate"
	}
	c.addUnit(key(catalog.PgProc, oid), kind, name, schema, owner)
	return nil
}

func (c *collection) scanDepend(rows *sql.Rows) error {
	var classID, objID, refClassID, refObjID uint32
	var deptype string
	if err := rows.Scan(&classID, &objID, &refClassID, &refObjID, &deptype); err != nil {
		return err
	}
	c.snap.Depends = append(c.snap.Depends, snapshot.Dependency{
		From: key(catalog.OID(classID), objID).String(),
		To:   key(catalog.OID(refClassID), refObjID).String(),
		Kind: deptype,
	})
	return nil
}

func (c *collection) scanOperatorFamily(rows *sql.Rows) error {
	var classID, member, family uint32
	if err := rows.Scan(&classID, &member, &family); err != nil {
		return err
	}
	c.snap.OperatorFamilies[key(catalog.OID(classID), member).String()] = key(catalog.PgOpfamily, family).String()
	return nil
}

func (c *collection) scanMatViewDep(rows *sql.Rows) error {
	var view, reads uint32
	if err := rows.Scan(&view, &reads); err != nil {
		return err
	}
	c.snap.MatViewDeps = append(c.snap.MatViewDeps, snapshot.Pair{
		From: key(catalog.PgClass, view).String(),
		To:   key(catalog.PgClass, reads).String(),
	})
	return nil
}

func (c *collection) scanConfigFK(rows *sql.Rows) error {
	var from, to uint32
	if err := rows.Scan(&from, &to); err != nil {
		return err
	}
	c.snap.ConfigFKs = append(c.snap.ConfigFKs, snapshot.Pair{
		From: key(catalog.PgClass, from).String(),
		To:   key(catalog.PgClass, to).String(),
	})
	return nil
}

func (c *collection) scanComment(rows *sql.Rows) error {
	var classID, objID uint32
	var text string
	if err := rows.Scan(&classID, &objID, &text); err != nil {
		return err
	}
	if u := c.unit(key(catalog.OID(classID), objID)); u != nil {
		u.Comment = text
	}
	return nil
}

func (c *collection) scanLabel(rows *sql.Rows) error {
	var classID, objID uint32
	var provider, label string
	if err := rows.Scan(&classID, &objID, &provider, &label); err != nil {
		return err
	}
	if u := c.unit(key(catalog.OID(classID), objID)); u != nil {
		u.Labels = append(u.Labels, dumpctx.SecurityLabel{Provider: provider, Label: label})
	}
	return nil
}

// finish stores the typed table and extension payloads on their units.
func (c *collection) finish() error {
	for _, oid := range c.tableOrder {
		if err := c.unit(key(catalog.PgClass, oid)).SetDetails(*c.tables[oid]); err != nil {
			return err
		}
	}
	for _, oid := range c.extOrder {
		d := c.extensions[oid]
		if len(d.ConfigTables) == 0 {
			continue
		}
		if err := c.unit(key(catalog.PgExtension, oid)).SetDetails(*d); err != nil {
			return err
		}
	}
	return nil
}
