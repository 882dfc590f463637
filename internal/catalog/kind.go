package catalog

import (
	"fmt"
	"sort"
)

// Kind tags a dumpable unit.
type Kind int

// Unit kinds.
const (
	KindUnknown Kind = iota
	KindNamespace
	KindExtension
	KindProcLang
	KindCollation
	KindTransform
	KindType
	KindShellType
	KindCast
	KindFunction
	KindAggregate
	KindAccessMethod
	KindOperator
	KindOpClass
	KindOpFamily
	KindConversion
	KindTSParser
	KindTSTemplate
	KindTSDict
	KindTSConfig
	KindFDW
	KindForeignServer
	KindTable
	KindSequence
	KindAttrDef
	KindLargeObject
	KindTableData
	KindSequenceSet
	KindLargeObjectData
	KindConstraint
	KindIndex
	KindStatistics
	KindRule
	KindTrigger
	KindFKConstraint
	KindPolicy
	KindPublication
	KindSubscription
	KindDefaultACL
	KindEventTrigger
	KindRefreshMatView
	KindBinaryUpgradePlaceholder
	KindPreDataBoundary
	KindPostDataBoundary
)

// Section is one of the three output sections.
type Section int

// Sections. SectionNone marks units that never appear as entries of their
// own: boundaries and rules/constraints folded into their owner.
const (
	SectionNone Section = iota
	SectionPreData
	SectionData
	SectionPostData
)

var sectionNames = map[Section]string{
	SectionNone:     "none",
	SectionPreData:  "pre-data",
	SectionData:     "data",
	SectionPostData: "post-data",
}

func (s Section) String() string {
	if n, ok := sectionNames[s]; ok {
		return n
	}
	return fmt.Sprintf("section(%d)", int(s))
}

// ParseSection parses a section name as accepted on the command line.
func ParseSection(s string) (Section, error) {
	for sec, name := range sectionNames {
		if name == s && sec != SectionNone {
			return sec, nil
		}
	}
	return SectionNone, fmt.Errorf("unknown section %q (want pre-data, data or post-data)", s)
}

// Policy is the default emission rule applied to a unit that is not an
// extension member.
type Policy int

// Emission policies.
const (
	// PolicyCollected keeps whatever the catalog collector decided.
	PolicyCollected Policy = iota
	// PolicyUserNamespace emits namespaces that are not system schemas.
	PolicyUserNamespace
	// PolicyFollowNamespace emits the unit only if its namespace is emitted.
	PolicyFollowNamespace
	// PolicyFollowOwner emits the unit only if its owning table is emitted.
	PolicyFollowOwner
	// PolicyNever is for graph anchors.
	PolicyNever
)

type kindInfo struct {
	name     string
	section  Section
	priority int
	policy   Policy
	// separable kinds are post-data only when dumped apart from their owner.
	separable bool
}

// kinds is the single source of truth for per-kind behaviour. Priorities
// give the tie-break order for otherwise unconstrained units.
var kinds = map[Kind]kindInfo{
	KindBinaryUpgradePlaceholder: {name: "binary-upgrade-placeholder", section: SectionPreData, priority: 0, policy: PolicyCollected},
	KindNamespace:                {name: "namespace", section: SectionPreData, priority: 1, policy: PolicyUserNamespace},
	KindProcLang:                 {name: "procedural-language", section: SectionPreData, priority: 2, policy: PolicyCollected},
	KindCollation:                {name: "collation", section: SectionPreData, priority: 3, policy: PolicyFollowNamespace},
	KindTransform:                {name: "transform", section: SectionPreData, priority: 4, policy: PolicyCollected},
	KindExtension:                {name: "extension", section: SectionPreData, priority: 5, policy: PolicyCollected},
	KindType:                     {name: "type", section: SectionPreData, priority: 6, policy: PolicyFollowNamespace},
	KindShellType:                {name: "shell-type", section: SectionPreData, priority: 6, policy: PolicyFollowNamespace},
	KindCast:                     {name: "cast", section: SectionPreData, priority: 7, policy: PolicyCollected},
	KindFunction:                 {name: "function", section: SectionPreData, priority: 8, policy: PolicyFollowNamespace},
	KindAggregate:                {name: "aggregate", section: SectionPreData, priority: 9, policy: PolicyFollowNamespace},
	KindAccessMethod:             {name: "access-method", section: SectionPreData, priority: 10, policy: PolicyCollected},
	KindOperator:                 {name: "operator", section: SectionPreData, priority: 11, policy: PolicyFollowNamespace},
	KindOpClass:                  {name: "operator-class", section: SectionPreData, priority: 12, policy: PolicyFollowNamespace},
	KindOpFamily:                 {name: "operator-family", section: SectionPreData, priority: 12, policy: PolicyFollowNamespace},
	KindConversion:               {name: "conversion", section: SectionPreData, priority: 13, policy: PolicyFollowNamespace},
	KindTSParser:                 {name: "text-search-parser", section: SectionPreData, priority: 14, policy: PolicyFollowNamespace},
	KindTSTemplate:               {name: "text-search-template", section: SectionPreData, priority: 15, policy: PolicyFollowNamespace},
	KindTSDict:                   {name: "text-search-dictionary", section: SectionPreData, priority: 16, policy: PolicyFollowNamespace},
	KindTSConfig:                 {name: "text-search-configuration", section: SectionPreData, priority: 17, policy: PolicyFollowNamespace},
	KindFDW:                      {name: "foreign-data-wrapper", section: SectionPreData, priority: 18, policy: PolicyCollected},
	KindForeignServer:            {name: "foreign-server", section: SectionPreData, priority: 19, policy: PolicyCollected},
	KindTable:                    {name: "table", section: SectionPreData, priority: 20, policy: PolicyFollowNamespace},
	KindSequence:                 {name: "sequence", section: SectionPreData, priority: 20, policy: PolicyFollowNamespace},
	KindAttrDef:                  {name: "default", section: SectionPreData, priority: 21, policy: PolicyFollowOwner},
	KindLargeObject:              {name: "large-object", section: SectionPreData, priority: 22, policy: PolicyCollected},
	KindPreDataBoundary:          {name: "pre-data-boundary", section: SectionNone, priority: 23, policy: PolicyNever},
	KindTableData:                {name: "table-data", section: SectionData, priority: 24, policy: PolicyFollowOwner},
	KindSequenceSet:              {name: "sequence-set", section: SectionData, priority: 25, policy: PolicyFollowOwner},
	KindLargeObjectData:          {name: "large-object-data", section: SectionData, priority: 26, policy: PolicyCollected},
	KindPostDataBoundary:         {name: "post-data-boundary", section: SectionNone, priority: 27, policy: PolicyNever},
	KindConstraint:               {name: "constraint", section: SectionPostData, priority: 28, policy: PolicyFollowOwner, separable: true},
	KindIndex:                    {name: "index", section: SectionPostData, priority: 29, policy: PolicyFollowOwner},
	KindStatistics:               {name: "statistics", section: SectionPostData, priority: 30, policy: PolicyFollowNamespace},
	KindRule:                     {name: "rule", section: SectionPostData, priority: 31, policy: PolicyFollowOwner, separable: true},
	KindTrigger:                  {name: "trigger", section: SectionPostData, priority: 32, policy: PolicyFollowOwner},
	KindFKConstraint:             {name: "fk-constraint", section: SectionPostData, priority: 33, policy: PolicyFollowOwner, separable: true},
	KindPolicy:                   {name: "policy", section: SectionPostData, priority: 34, policy: PolicyFollowOwner},
	KindPublication:              {name: "publication", section: SectionPostData, priority: 35, policy: PolicyCollected},
	KindSubscription:             {name: "subscription", section: SectionPostData, priority: 36, policy: PolicyCollected},
	KindDefaultACL:               {name: "default-acl", section: SectionPostData, priority: 37, policy: PolicyCollected},
	KindEventTrigger:             {name: "event-trigger", section: SectionPostData, priority: 38, policy: PolicyCollected},
	KindRefreshMatView:           {name: "refresh-materialized-view", section: SectionPostData, priority: 39, policy: PolicyFollowOwner},
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, error) {
	for k, info := range kinds {
		if info.name == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown unit kind %q", name)
}

// KindNames lists every known kind name in priority order.
func KindNames() []string {
	ks := make([]Kind, 0, len(kinds))
	for k := range kinds {
		ks = append(ks, k)
	}
	sort.Slice(ks, func(i, j int) bool {
		if kinds[ks[i]].priority != kinds[ks[j]].priority {
			return kinds[ks[i]].priority < kinds[ks[j]].priority
		}
		return ks[i] < ks[j]
	})
	names := make([]string, len(ks))
	for i, k := range ks {
		names[i] = kinds[k].name
	}
	return names
}

// Priority is the tie-break rank of the kind; lower sorts first.
func (k Kind) Priority() int {
	if info, ok := kinds[k]; ok {
		return info.priority
	}
	return len(kinds)
}

// DefaultPolicy is the emission policy used when a unit is not an extension
// member.
func (k Kind) DefaultPolicy() Policy {
	return kinds[k].policy
}

// Separable reports whether units of this kind may be folded into their
// owner's definition.
func (k Kind) Separable() bool {
	return kinds[k].separable
}

// IsBoundary reports whether the kind is one of the section sentinels.
func (k Kind) IsBoundary() bool {
	return k == KindPreDataBoundary || k == KindPostDataBoundary
}

// SectionOf classifies a unit of kind k. Separable kinds fall in the
// post-data section only when dumped separately; folded ones belong to no
// section since they are emitted as part of their owner.
func SectionOf(k Kind, separate bool) Section {
	info, ok := kinds[k]
	if !ok {
		return SectionNone
	}
	if info.separable && !separate {
		return SectionNone
	}
	return info.section
}
