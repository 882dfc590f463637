package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/cli/output"
	"github.com/leapstack-labs/leapdump/internal/resolver"
	"github.com/leapstack-labs/leapdump/internal/state"
	"github.com/spf13/cobra"
)

// PlanOutput is the structured form of the plan command.
type PlanOutput struct {
	Source  string                 `json:"source,omitempty" yaml:"source,omitempty"`
	RunID   string                 `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Entries []resolver.Entry       `json:"entries" yaml:"entries"`
	Cycles  []resolver.CycleReport `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	var (
		upstream int
		save     bool
		showSQL  bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Resolve the dump order",
		Long: `Resolve the order in which catalog objects are dumped.

The catalog is read from --snapshot or from the configured source database.
Every emitted object is listed in output order with its section and the
archive dependencies a restore must honour. Dependency loops that had to
be broken are logged as warnings.`,
		Example: `  # Plan from a snapshot file
  leapdump plan --snapshot catalog.yaml

  # Plan a data-only dump and store the manifest
  leapdump plan --snapshot catalog.yaml --data-only --save

  # Show everything entry 42 depends on
  leapdump plan --snapshot catalog.yaml --upstream 42`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, catalog.SequenceID(upstream), save, showSQL)
		},
	}

	cmd.Flags().IntVar(&upstream, "upstream", 0, "Only list the entries the given dump ID depends on")
	cmd.Flags().BoolVar(&save, "save", false, "Store the plan as a manifest in the state database")
	cmd.Flags().BoolVar(&showSQL, "sql", false, "Print statement text after the table (text output)")

	return cmd
}

func runPlan(cmd *cobra.Command, upstream catalog.SequenceID, save, showSQL bool) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	res, cleanup, err := cmdCtx.resolvePlan(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	plan := res.Plan
	out := PlanOutput{Source: res.Source, Entries: plan.Entries, Cycles: plan.Cycles}
	if upstream != catalog.NoUnit {
		if _, ok := plan.Entry(upstream); !ok {
			return fmt.Errorf("dump ID %d is not part of the plan", upstream)
		}
		out.Entries = plan.Upstream(upstream)
	}

	if save {
		store, err := cmdCtx.openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		id, err := store.SaveManifest(cmd.Context(), state.NewManifest(plan, res.Options, res.Source, res.SnapshotID))
		if err != nil {
			return err
		}
		out.RunID = id
	}

	if handled, err := r.Structured(out); handled {
		return err
	}
	planText(r, out, showSQL)
	return nil
}

// planText outputs the plan as a table.
func planText(r *output.Renderer, out PlanOutput, showSQL bool) {
	title := "Dump Plan"
	if out.Source != "" {
		title += " (" + out.Source + ")"
	}
	r.Header(1, title)

	rows := make([]table.Row, 0, len(out.Entries))
	for _, e := range out.Entries {
		rows = append(rows, table.Row{
			e.Position, e.ID, e.Section, e.Kind, output.QualifiedName(e.Schema, e.Name), e.Owner, output.FormatIDs(e.Deps),
		})
	}
	r.Table(table.Row{"#", "ID", "Section", "Kind", "Name", "Owner", "Deps"}, rows)

	cyclesText(r, out.Cycles)

	if showSQL {
		for _, e := range out.Entries {
			if e.Definition == "" {
				continue
			}
			r.Println("")
			r.Printf("-- %d: %s %s\n", e.ID, e.Kind, output.QualifiedName(e.Schema, e.Name))
			r.Println(e.Definition)
		}
	}

	r.Println("")
	r.Println(output.FormatKeyValue("Entries", fmt.Sprintf("%d", len(out.Entries))))
	r.Println(output.FormatKeyValue("Loops", fmt.Sprintf("%d", len(out.Cycles))))
	if out.RunID != "" {
		r.Println(output.FormatKeyValue("Manifest", out.RunID))
	}
}

// cyclesText lists dependency loops and how each was resolved.
func cyclesText(r *output.Renderer, cycles []resolver.CycleReport) {
	if len(cycles) == 0 {
		return
	}
	r.Println("")
	r.Header(2, "Dependency loops")
	styles := r.Styles()
	for _, c := range cycles {
		status := styles.Success.Render("repaired")
		if !c.Repaired && c.Broken != nil {
			status = styles.Warning.Render(fmt.Sprintf("broken: %d no longer waits for %d", c.Broken.Dependent, c.Broken.Dependency))
		}
		r.Printf("- %s (%s)\n", strings.Join(c.Units, ", "), status)
	}
}
