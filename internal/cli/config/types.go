// Package config provides configuration management for the leapdump CLI.
//
// The shared source and dump settings live in internal/config and are
// re-exported here via type aliases for convenience.
package config

import (
	sharedcfg "github.com/leapstack-labs/leapdump/internal/config"
)

// SourceConfig is an alias for the shared source configuration.
type SourceConfig = sharedcfg.SourceConfig

// DumpConfig is an alias for the shared dump configuration.
type DumpConfig = sharedcfg.DumpConfig

// Config holds all CLI configuration options.
type Config struct {
	// Snapshot is a catalog snapshot file read instead of a live database.
	Snapshot     string        `koanf:"snapshot"`
	StatePath    string        `koanf:"state_path"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	Source       *SourceConfig `koanf:"source"`
	Dump         DumpConfig    `koanf:"dump"`

	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultOutput    = sharedcfg.DefaultOutput
)
