// Package snapshot reads and writes catalog snapshots: a YAML rendition of
// the unit set and relationship rows the ordering phases consume. A
// snapshot is produced by the live catalog collector or written by hand
// for offline planning.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/leapdump/internal/dumpctx"
	"gopkg.in/yaml.v3"
)

// Version is the snapshot format version written by this package.
const Version = 1

// Snapshot is the document root.
type Snapshot struct {
	Version int `yaml:"version"`
	// Source describes where the snapshot was taken, e.g. "db.internal:5432/app".
	Source string `yaml:"source,omitempty"`
	// SnapshotID is the exported transaction snapshot workers attach to.
	SnapshotID string `yaml:"snapshot_id,omitempty"`

	Roles map[uint32]string `yaml:"roles,omitempty"`
	Units []Unit            `yaml:"units"`

	Depends     []Dependency `yaml:"depends,omitempty"`
	MatViewDeps []Pair       `yaml:"matview_deps,omitempty"`
	ConfigFKs   []Pair       `yaml:"config_fks,omitempty"`
	// OperatorFamilies maps pg_amop/pg_amproc keys to their family key.
	OperatorFamilies map[string]string `yaml:"operator_families,omitempty"`
}

// Unit is one unit as stored in a snapshot. Cross references use source
// keys in "origin/row" form; the namespace is referenced by name.
type Unit struct {
	Key        string                  `yaml:"key,omitempty"`
	Kind       string                  `yaml:"kind"`
	Name       string                  `yaml:"name"`
	Schema     string                  `yaml:"schema,omitempty"`
	Owner      uint32                  `yaml:"owner,omitempty"`
	Skip       bool                    `yaml:"skip,omitempty"`
	Definition string                  `yaml:"definition,omitempty"`
	Preassign  string                  `yaml:"preassign,omitempty"`
	Comment    string                  `yaml:"comment,omitempty"`
	Labels     []dumpctx.SecurityLabel `yaml:"labels,omitempty"`
	// Details holds the kind-specific payload, decoded with DecodeDetails.
	Details map[string]any `yaml:"details,omitempty"`
}

// Dependency is one pg_depend row: From depends on To.
type Dependency struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	// Kind is the single-letter deptype.
	Kind string `yaml:"kind"`
}

// Pair is an ordered pair of source keys.
type Pair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Load reads a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	snap, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Parse decodes a snapshot document. Unknown fields are rejected.
func Parse(data []byte) (*Snapshot, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty snapshot")
		}
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snap.Version == 0 {
		snap.Version = Version
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}

// Marshal renders the snapshot as YAML.
func (s *Snapshot) Marshal() ([]byte, error) {
	if s.Version == 0 {
		s.Version = Version
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the snapshot to path.
func (s *Snapshot) Save(path string) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
