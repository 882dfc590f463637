package config

import (
	"fmt"
	"os"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case "", "auto", "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want auto, text, json or yaml)", c.OutputFormat)
	}
	if err := c.Dump.Validate(); err != nil {
		return fmt.Errorf("invalid dump configuration: %w", err)
	}
	return nil
}

// ValidateInput checks that a catalog source is available: either a
// snapshot file that exists or a configured database.
func (c *Config) ValidateInput() error {
	if c.Snapshot != "" {
		if _, err := os.Stat(c.Snapshot); os.IsNotExist(err) {
			return fmt.Errorf("snapshot file does not exist: %s", c.Snapshot)
		}
		return nil
	}
	if !c.Source.IsSet() {
		return fmt.Errorf("no catalog source configured\nHint: pass --snapshot <file> or set source.database in leapdump.yaml")
	}
	return nil
}
