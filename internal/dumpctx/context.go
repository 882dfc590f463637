// Package dumpctx holds the aggregate passed by reference through every
// ordering phase: the unit registry, run options, the raw relationship rows
// and the lookup tables built once during catalog collection.
package dumpctx

import (
	"log/slog"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/registry"
)

// SecurityLabel is one provider/label pair attached to an object.
type SecurityLabel struct {
	Provider string
	Label    string
}

// Lookups are the read-mostly tables built during collection.
type Lookups struct {
	Roles          map[catalog.OID]string
	Comments       map[catalog.SourceKey]string
	SecurityLabels map[catalog.SourceKey][]SecurityLabel
	// OperatorFamilies maps pg_amop/pg_amproc rows to their owning family.
	OperatorFamilies map[catalog.SourceKey]catalog.SourceKey
}

// Input holds the relationship rows consumed by the dependency collector.
type Input struct {
	// DependencyRows is the sorted raw pg_depend stream, membership rows
	// included.
	DependencyRows []catalog.DependencyRow
	// MatViewDeps: From's refresh must follow To's refresh.
	MatViewDeps []catalog.KeyPair
	// ConfigTableFKs: From references To, both extension configuration
	// tables.
	ConfigTableFKs []catalog.KeyPair
}

// Context is the single aggregate of one run.
type Context struct {
	Units   *registry.Registry
	Options catalog.Options
	Input   Input
	Lookups Lookups
	Logger  *slog.Logger
}

// New creates an empty context. A nil logger discards output.
func New(opts catalog.Options, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Context{
		Units:   registry.New(),
		Options: opts,
		Lookups: Lookups{
			Roles:            make(map[catalog.OID]string),
			Comments:         make(map[catalog.SourceKey]string),
			SecurityLabels:   make(map[catalog.SourceKey][]SecurityLabel),
			OperatorFamilies: make(map[catalog.SourceKey]catalog.SourceKey),
		},
		Logger: logger,
	}
}

// RoleName resolves an owner OID, falling back to the numeric form the
// catalog would print for a dropped role.
func (c *Context) RoleName(oid catalog.OID) string {
	if oid == 0 {
		return ""
	}
	if name, ok := c.Lookups.Roles[oid]; ok {
		return name
	}
	c.Logger.Warn("owner of object appears to be invalid", slog.Int("role_oid", int(oid)))
	return ""
}

// Comment returns the comment recorded for the catalog row, if any.
func (c *Context) Comment(key catalog.SourceKey) string {
	return c.Lookups.Comments[key]
}

// Labels returns the security labels recorded for the catalog row.
func (c *Context) Labels(key catalog.SourceKey) []SecurityLabel {
	return c.Lookups.SecurityLabels[key]
}
