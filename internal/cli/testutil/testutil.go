// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

// SetupTestProject creates a temporary project whose config plans the
// shop snapshot and keeps its state database inside the project. extra
// is appended to the config file. It returns the config file path.
func SetupTestProject(t *testing.T, extra string) string {
	t.Helper()

	tmpDir := t.TempDir()
	content := fmt.Sprintf("snapshot: %s\nstate_path: %s\n%s",
		ShopSnapshot(t), filepath.Join(tmpDir, ".leapdump", "state.db"), extra)

	path := filepath.Join(tmpDir, "leapdump.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// ShopSnapshot returns the path of the shop catalog snapshot fixture.
func ShopSnapshot(t *testing.T) string {
	t.Helper()
	return filepath.Join(GetModuleRoot(t), "internal", "snapshot", "testdata", "shop.yaml")
}

// GetModuleRoot returns the directory holding go.mod, searching upward
// from the working directory.
func GetModuleRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found above %s", wd)
			return ""
		}
		dir = parent
	}
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
