// Package config provides the configuration types shared by the leapdump
// commands: where the catalog comes from and which switches govern a run.
package config

import (
	"fmt"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/pgcatalog"
)

// SourceConfig holds the connection settings of the database being dumped.
type SourceConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
}

// IsSet reports whether a database was configured at all.
func (s *SourceConfig) IsSet() bool {
	return s != nil && s.Database != ""
}

// CollectorConfig converts the source settings for the catalog collector.
func (s *SourceConfig) CollectorConfig() pgcatalog.Config {
	if s == nil {
		return pgcatalog.Config{}
	}
	return pgcatalog.Config{
		Host:     s.Host,
		Port:     s.Port,
		Database: s.Database,
		User:     s.User,
		Password: s.Password,
		SSLMode:  s.SSLMode,
	}
}

// DumpConfig holds the run-wide switches.
type DumpConfig struct {
	SchemaOnly       bool     `koanf:"schema_only"`
	DataOnly         bool     `koanf:"data_only"`
	Sections         []string `koanf:"sections"`
	BinaryUpgrade    bool     `koanf:"binary_upgrade"`
	Jobs             int      `koanf:"jobs"`
	ExcludeSchemas   []string `koanf:"exclude_schemas"`
	ExcludeTables    []string `koanf:"exclude_tables"`
	ExcludeTableData []string `koanf:"exclude_table_data"`
	IncludeTables    []string `koanf:"include_tables"`
}

// Validate checks for contradictory switches.
func (d *DumpConfig) Validate() error {
	if d.SchemaOnly && d.DataOnly {
		return fmt.Errorf("schema_only and data_only cannot be used together")
	}
	if d.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", d.Jobs)
	}
	for _, s := range d.Sections {
		if _, err := catalog.ParseSection(s); err != nil {
			return err
		}
	}
	return nil
}

// Options converts the switches into resolver options.
func (d *DumpConfig) Options() (catalog.Options, error) {
	if err := d.Validate(); err != nil {
		return catalog.Options{}, err
	}

	opts := catalog.Options{
		SchemaOnly:       d.SchemaOnly,
		DataOnly:         d.DataOnly,
		BinaryUpgrade:    d.BinaryUpgrade,
		Jobs:             d.Jobs,
		IncludeTables:    d.IncludeTables,
		ExcludeSchemas:   d.ExcludeSchemas,
		ExcludeTables:    d.ExcludeTables,
		ExcludeTableData: d.ExcludeTableData,
	}
	for _, s := range d.Sections {
		sec, _ := catalog.ParseSection(s)
		opts.Sections = append(opts.Sections, sec)
	}
	return opts, nil
}
