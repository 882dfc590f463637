package catalog

// Unit is one schema or data object that may become a distinct entry of the
// output. Kind-specific data lives in the payload pointers; at most one of
// them is set and which one follows from Kind.
type Unit struct {
	Key  SourceKey
	ID   SequenceID
	Kind Kind
	Name string
	// Namespace is a handle to the namespace unit, NoUnit when unqualified.
	Namespace SequenceID
	Owner     OID

	WillEmit          bool
	IsExtensionMember bool

	// Dependencies are ordering edges: every listed unit must be created
	// before this one.
	Dependencies []SequenceID
	// StructuralDeps is fixed at creation and never rewritten by the final
	// collapse. Only table-data units carry one.
	StructuralDeps []SequenceID
	// FinalDeps is the archive-safe dependency list computed once the
	// emitted set is known. It names emitted units only.
	FinalDeps []SequenceID

	// PreassignSQL holds the binary-upgrade identifier preassignment calls
	// for this unit.
	PreassignSQL string
	// Definition is the statement text handed to the output writer.
	Definition string

	Table      *TableInfo
	TableData  *TableDataInfo
	Constraint *ConstraintInfo
	Rule       *RuleInfo
	Extension  *ExtensionInfo
	Owned      *OwnedInfo
}

// TableInfo is the payload of table and sequence units.
type TableInfo struct {
	// RelKind is the pg_class relkind: r, p, v, m, f, S, c.
	RelKind byte
	// Pages estimates the on-disk size and drives largest-first ordering.
	Pages int64
	// Populated is false for materialized views created WITH NO DATA.
	Populated bool
	// IsPartition marks a partition child; PartitionParent is its parent.
	IsPartition     bool
	PartitionParent SequenceID
	// Parents lists the pg_inherits parents, partition parent included.
	Parents []SequenceID
	// DataUnit is the table-data (or refresh, or sequence-set) unit.
	DataUnit SequenceID
	// Interesting marks extension configuration tables.
	Interesting bool
}

// HasData reports whether rows of this relation are dumped as a data unit.
func (t *TableInfo) HasData() bool {
	switch t.RelKind {
	case 'r', 'm', 'S':
		return true
	}
	return false
}

// IsExternal reports whether the relation's rows live outside the cluster.
func (t *TableInfo) IsExternal() bool {
	return t.RelKind == 'f'
}

// TableDataInfo is the payload of table-data, sequence-set and
// refresh-materialized-view units.
type TableDataInfo struct {
	Table SequenceID
	// Filter is an optional row filter, e.g. an extension configuration
	// condition.
	Filter string
	// Refresh is true when a materialized view's data unit issues a refresh.
	Refresh bool
	// ConfigTable marks data units created for extension configuration
	// tables.
	ConfigTable bool
}

// ConstraintInfo is the payload of constraint and fk-constraint units.
type ConstraintInfo struct {
	Table SequenceID
	// Type is the pg_constraint contype: c, f, p, u, x, t.
	Type byte
	// RefTable is the referenced table of a foreign key.
	RefTable SequenceID
	// Separate is set when the constraint cannot be folded into the
	// owning table's definition.
	Separate bool
}

// RuleInfo is the payload of rule units.
type RuleInfo struct {
	Table    SequenceID
	Separate bool
}

// ExtensionInfo describes an extension's declared configuration tables.
// ConfigConditions is parallel to ConfigTableKeys.
type ExtensionInfo struct {
	ConfigTableKeys  []SourceKey
	ConfigConditions []string
}

// OwnedInfo is the payload of units owned by a table: indexes, triggers,
// policies, defaults.
type OwnedInfo struct {
	Table SequenceID
}

// Separate reports whether a separable unit is dumped apart from its owner.
// Non-separable kinds are always separate.
func (u *Unit) Separate() bool {
	switch {
	case u.Constraint != nil:
		return u.Constraint.Separate
	case u.Rule != nil:
		return u.Rule.Separate
	}
	return !u.Kind.Separable()
}

// SetSeparate marks a separable unit as dumped apart from its owner.
func (u *Unit) SetSeparate() {
	switch {
	case u.Constraint != nil:
		u.Constraint.Separate = true
	case u.Rule != nil:
		u.Rule.Separate = true
	}
}

// Section is the output section this unit belongs to.
func (u *Unit) Section() Section {
	return SectionOf(u.Kind, u.Separate())
}

// OwnerTable returns the handle of the table that owns this unit, if any.
func (u *Unit) OwnerTable() SequenceID {
	switch {
	case u.TableData != nil:
		return u.TableData.Table
	case u.Constraint != nil:
		return u.Constraint.Table
	case u.Rule != nil:
		return u.Rule.Table
	case u.Owned != nil:
		return u.Owned.Table
	}
	return NoUnit
}

// HasStructuralDeps reports whether the unit's dependency list is fixed at
// creation.
func (u *Unit) HasStructuralDeps() bool {
	return u.StructuralDeps != nil
}

// DependsOn reports whether id is a direct dependency.
func (u *Unit) DependsOn(id SequenceID) bool {
	for _, d := range u.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

// NewTableDataUnit builds the data unit for table and must still be
// registered. Table-data and sequence-set units carry one structural
// dependency on the table. A materialized view gets a refresh unit instead,
// whose ordering depends on the refresh chain and is collapsed like any
// other unit.
func NewTableDataUnit(table *Unit) *Unit {
	u := &Unit{
		Kind:      KindTableData,
		Name:      table.Name,
		Namespace: table.Namespace,
		Owner:     table.Owner,
		WillEmit:  table.WillEmit,
		TableData: &TableDataInfo{Table: table.ID},
	}
	switch table.Table.RelKind {
	case 'm':
		u.Kind = KindRefreshMatView
		u.TableData.Refresh = table.Table.Populated
		u.Dependencies = []SequenceID{table.ID}
		return u
	case 'S':
		u.Kind = KindSequenceSet
	}
	u.StructuralDeps = []SequenceID{table.ID}
	return u
}
