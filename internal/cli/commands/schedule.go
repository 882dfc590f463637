package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdump/internal/cli/output"
	"github.com/leapstack-labs/leapdump/internal/resolver"
	"github.com/leapstack-labs/leapdump/internal/workers"
	"github.com/spf13/cobra"
)

// ScheduleOutput is the structured form of the schedule command.
type ScheduleOutput struct {
	Jobs        int                  `json:"jobs" yaml:"jobs"`
	SnapshotID  string               `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	Waves       [][]resolver.Entry   `json:"waves" yaml:"waves"`
	Assignments []workers.Assignment `json:"assignments,omitempty" yaml:"assignments,omitempty"`
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand() *cobra.Command {
	var simulate bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show how table data is spread over workers",
		Long: `Show the data section of the plan grouped into waves.

Every table in a wave only waits for tables of earlier waves, so a wave can
be loaded in parallel. With --simulate the entries are also run through the
worker pool (without copying any rows) to show which worker picks up which
table.`,
		Example: `  # Show data waves
  leapdump schedule --snapshot catalog.yaml

  # Simulate four workers
  leapdump schedule --snapshot catalog.yaml --jobs 4 --simulate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchedule(cmd, simulate)
		},
	}

	cmd.Flags().BoolVar(&simulate, "simulate", false, "Run the data entries through the worker pool without copying")

	return cmd
}

func runSchedule(cmd *cobra.Command, simulate bool) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	res, cleanup, err := cmdCtx.resolvePlan(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	waves, err := workers.Waves(res.Plan)
	if err != nil {
		return fmt.Errorf("failed to group data entries: %w", err)
	}

	out := ScheduleOutput{Jobs: max(res.Options.Jobs, 1), SnapshotID: res.SnapshotID, Waves: waves}
	if simulate {
		logger := cmdCtx.Logger
		out.Assignments, err = workers.Schedule(cmd.Context(), res.Plan, out.Jobs,
			func(_ context.Context, worker int, e resolver.Entry) error {
				logger.Debug("simulated copy",
					slog.Int("worker", worker),
					slog.String("table", output.QualifiedName(e.Schema, e.Name)),
					slog.String("filter", e.Filter))
				return nil
			}, logger)
		if err != nil {
			return err
		}
	}

	if handled, err := r.Structured(out); handled {
		return err
	}
	scheduleText(r, out)
	return nil
}

// scheduleText outputs waves and worker assignments.
func scheduleText(r *output.Renderer, out ScheduleOutput) {
	r.Header(1, fmt.Sprintf("Data Schedule (%d workers)", out.Jobs))
	if out.SnapshotID != "" {
		r.Println(output.FormatKeyValue("Snapshot", out.SnapshotID))
	}

	for i, wave := range out.Waves {
		r.Println("")
		r.Header(2, fmt.Sprintf("Wave %d", i+1))
		for _, e := range wave {
			line := fmt.Sprintf("  %s", output.QualifiedName(e.Schema, e.Name))
			if e.Pages > 0 {
				line += " " + r.Styles().Muted.Render(fmt.Sprintf("(%d pages)", e.Pages))
			}
			r.Println(line)
		}
	}

	if len(out.Assignments) > 0 {
		r.Println("")
		rows := make([]table.Row, 0, len(out.Assignments))
		for _, a := range out.Assignments {
			rows = append(rows, table.Row{a.Entry.Position, a.Worker, output.QualifiedName(a.Entry.Schema, a.Entry.Name)})
		}
		r.Table(table.Row{"#", "Worker", "Table"}, rows)
	}

	total := 0
	for _, w := range out.Waves {
		total += len(w)
	}
	r.Println("")
	r.Println(output.FormatKeyValue("Tables", fmt.Sprintf("%d", total)))
	r.Println(output.FormatKeyValue("Waves", fmt.Sprintf("%d", len(out.Waves))))
}
