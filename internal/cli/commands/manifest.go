package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdump/internal/cli/output"
	"github.com/leapstack-labs/leapdump/internal/state"
	"github.com/spf13/cobra"
)

// NewManifestCommand creates the manifest command and its subcommands.
func NewManifestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect stored dump manifests",
		Long: `Inspect the manifests stored by "leapdump plan --save".

A manifest records the emitted entries of one run in order, with their
archive dependencies and the dependency loops met while ordering.`,
	}

	cmd.AddCommand(newManifestListCommand())
	cmd.AddCommand(newManifestShowCommand())
	cmd.AddCommand(newManifestDeleteCommand())

	return cmd
}

func newManifestListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if handled, err := r.Structured(runs); handled {
				return err
			}
			manifestListText(r, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}

func manifestListText(r *output.Renderer, runs []state.Run) {
	if len(runs) == 0 {
		r.Println("No manifests stored.")
		return
	}
	rows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, table.Row{run.ID, output.FormatTime(run.CreatedAt), run.Source, run.Entries, run.Cycles})
	}
	r.Table(table.Row{"Run", "Created", "Source", "Entries", "Loops"}, rows)
}

func newManifestShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the entries of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			m, err := store.LoadManifest(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if handled, err := r.Structured(m); handled {
				return err
			}
			manifestShowText(r, m)
			return nil
		},
	}
}

func manifestShowText(r *output.Renderer, m *state.Manifest) {
	r.Header(1, "Manifest "+m.Run.ID)
	r.Println(output.FormatKeyValue("Created", output.FormatTime(m.Run.CreatedAt)))
	if m.Run.Source != "" {
		r.Println(output.FormatKeyValue("Source", m.Run.Source))
	}
	if m.Run.SnapshotID != "" {
		r.Println(output.FormatKeyValue("Snapshot", m.Run.SnapshotID))
	}
	if switches := describeOptions(m); switches != "" {
		r.Println(output.FormatKeyValue("Options", switches))
	}
	r.Println("")

	rows := make([]table.Row, 0, len(m.Entries))
	for _, e := range m.Entries {
		rows = append(rows, table.Row{e.Position, e.ID, e.Section, e.Kind, output.QualifiedName(e.Schema, e.Name), output.FormatIDs(e.Deps)})
	}
	r.Table(table.Row{"#", "ID", "Section", "Kind", "Name", "Deps"}, rows)
	cyclesText(r, m.Cycles)
}

// describeOptions renders the switches of a run the way they are given on
// the command line.
func describeOptions(m *state.Manifest) string {
	o := m.Options
	var parts []string
	if o.SchemaOnly {
		parts = append(parts, "--schema-only")
	}
	if o.DataOnly {
		parts = append(parts, "--data-only")
	}
	if o.BinaryUpgrade {
		parts = append(parts, "--binary-upgrade")
	}
	for _, s := range o.Sections {
		parts = append(parts, "--section="+s.String())
	}
	if o.Jobs > 1 {
		parts = append(parts, fmt.Sprintf("--jobs=%d", o.Jobs))
	}
	for _, p := range o.ExcludeSchemas {
		parts = append(parts, "--exclude-schema="+p)
	}
	for _, p := range o.ExcludeTables {
		parts = append(parts, "--exclude-table="+p)
	}
	for _, p := range o.ExcludeTableData {
		parts = append(parts, "--exclude-table-data="+p)
	}
	for _, p := range o.IncludeTables {
		parts = append(parts, "--table="+p)
	}
	return strings.Join(parts, " ")
}

func newManifestDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmdCtx.Renderer.Printf("Deleted manifest %s\n", args[0])
			return nil
		},
	}
}
