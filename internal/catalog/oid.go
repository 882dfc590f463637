// Package catalog defines the dumpable-unit data model shared by every
// ordering phase: source keys, sequence ids, unit kinds and their section
// and priority tables, and the per-kind payloads.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// OID is a catalog object identifier.
type OID uint32

// Well-known system catalog OIDs used as SourceKey origin tables.
const (
	PgAmop         OID = 2602
	PgAmproc       OID = 2603
	PgAttrdef      OID = 2604
	PgCast         OID = 2605
	PgConstraint   OID = 2606
	PgLanguage     OID = 2612
	PgLargeObject  OID = 2613
	PgOpclass      OID = 2616
	PgOperator     OID = 2617
	PgRewrite      OID = 2618
	PgTrigger      OID = 2620
	PgNamespace    OID = 2615
	PgOpfamily     OID = 2753
	PgType         OID = 1247
	PgProc         OID = 1255
	PgClass        OID = 1259
	PgExtension    OID = 3079
	PgCollation    OID = 3456
	PgEventTrigger OID = 3466
	PgPolicy       OID = 3256
	PgPublication  OID = 6104
)

// SourceKey identifies the catalog row a unit was derived from. It is used
// for lookup only, never for ownership.
type SourceKey struct {
	OriginTableID OID
	RowID         OID
}

// Key is shorthand for building a SourceKey.
func Key(origin, row OID) SourceKey {
	return SourceKey{OriginTableID: origin, RowID: row}
}

// IsZero reports whether the key is unset. Boundary and synthetic units
// carry a zero key.
func (k SourceKey) IsZero() bool {
	return k.OriginTableID == 0 && k.RowID == 0
}

// String renders the key as "origin/row".
func (k SourceKey) String() string {
	return fmt.Sprintf("%d/%d", k.OriginTableID, k.RowID)
}

// ParseSourceKey parses the "origin/row" form produced by String.
func ParseSourceKey(s string) (SourceKey, error) {
	origin, row, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return SourceKey{}, fmt.Errorf("invalid source key %q: expected origin/row", s)
	}
	o, err := strconv.ParseUint(origin, 10, 32)
	if err != nil {
		return SourceKey{}, fmt.Errorf("invalid source key %q: %w", s, err)
	}
	r, err := strconv.ParseUint(row, 10, 32)
	if err != nil {
		return SourceKey{}, fmt.Errorf("invalid source key %q: %w", s, err)
	}
	return Key(OID(o), OID(r)), nil
}

// SequenceID is the process-local identifier assigned to a unit at
// registration. It is never reused within a run.
type SequenceID int

// NoUnit is the zero handle; it never names a registered unit.
const NoUnit SequenceID = 0

// DepKind is the pg_depend deptype of a raw dependency row.
type DepKind byte

// Dependency row kinds.
const (
	DepNormal        DepKind = 'n'
	DepAuto          DepKind = 'a'
	DepInternal      DepKind = 'i'
	DepPartitionPri  DepKind = 'P'
	DepPartitionSec  DepKind = 'S'
	DepExtension     DepKind = 'e'
	DepAutoExtension DepKind = 'x'
	DepPin           DepKind = 'p'
)

// DependencyRow is one raw creation-order edge harvested from the catalog:
// Referencing depends on Referenced.
type DependencyRow struct {
	Referencing SourceKey
	Referenced  SourceKey
	Kind        DepKind
}

// KeyPair is an ordered pair of source keys, used for relationship rows
// such as "materialized view From reads materialized view To" or
// "configuration table From references configuration table To".
type KeyPair struct {
	From SourceKey
	To   SourceKey
}
