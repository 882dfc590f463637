package snapshot

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// TableDetails is the payload of table and sequence units.
type TableDetails struct {
	// RelKind: r, p, v, m, f, S or c.
	RelKind string `mapstructure:"relkind"`
	Pages   int64  `mapstructure:"pages,omitempty"`
	// Populated defaults to true; only materialized views set it.
	Populated   *bool    `mapstructure:"populated,omitempty"`
	PartitionOf string   `mapstructure:"partition_of,omitempty"`
	Inherits    []string `mapstructure:"inherits,omitempty"`
}

// ConstraintDetails is the payload of constraint and fk-constraint units.
type ConstraintDetails struct {
	Table      string `mapstructure:"table"`
	Type       string `mapstructure:"type,omitempty"`
	References string `mapstructure:"references,omitempty"`
	Separate   bool   `mapstructure:"separate,omitempty"`
}

// RuleDetails is the payload of rule units.
type RuleDetails struct {
	Table    string `mapstructure:"table"`
	Separate bool   `mapstructure:"separate,omitempty"`
}

// OwnedDetails is the payload of indexes, triggers, policies and defaults.
type OwnedDetails struct {
	Table string `mapstructure:"table"`
}

// ExtensionDetails lists an extension's configuration tables and their
// row filters.
type ExtensionDetails struct {
	ConfigTables []string `mapstructure:"config_tables,omitempty"`
	Conditions   []string `mapstructure:"conditions,omitempty"`
}

// DecodeDetails decodes u's payload into out. String-typed numbers and
// booleans are accepted; unknown keys are an error.
func (u *Unit) DecodeDetails(out any) error {
	if len(u.Details) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(u.Details); err != nil {
		return fmt.Errorf("%s %q: invalid details: %w", u.Kind, u.Name, err)
	}
	return nil
}

// SetDetails stores a typed payload as the unit's details map.
func (u *Unit) SetDetails(in any) error {
	var m map[string]any
	if err := mapstructure.Decode(in, &m); err != nil {
		return fmt.Errorf("%s %q: encode details: %w", u.Kind, u.Name, err)
	}
	u.Details = m
	return nil
}
