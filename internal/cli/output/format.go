package output

import (
	"fmt"
	"strings"
	"time"
)

// FormatKeyValue formats an indented "key: value" line.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("  %s: %s", key, value)
}

// FormatIDs joins ids with commas, or "-" for none.
func FormatIDs[T ~int](ids []T) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

// FormatTime formats a timestamp in UTC for listings.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// QualifiedName joins schema and name, leaving bare names alone.
func QualifiedName(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}
