package commands

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdump/internal/cli/config"
	"github.com/leapstack-labs/leapdump/internal/cli/output"
	"github.com/leapstack-labs/leapdump/internal/resolver"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	StatusPass  = "pass"
	StatusWarn  = "warn"
	StatusError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, catalog source and state database",
		Long: `Run a health check over the leapdump setup.

The doctor command checks:
- which configuration file was loaded
- that the catalog source can be read (snapshot file or live database)
- that the state database opens and is migrated
- whether resolving the plan met dependency loops it had to break

The command fails when any check reports an error.`,
		Example: `  # Run health check
  leapdump doctor

  # Output as JSON
  leapdump doctor -o json`,
		RunE: runDoctor,
	}
}

// DoctorOutput is the structured output for the doctor command.
type DoctorOutput struct {
	Checks []HealthCheck `json:"checks" yaml:"checks"`
	Status string        `json:"status" yaml:"status"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string   `json:"name" yaml:"name"`
	Status  string   `json:"status" yaml:"status"`
	Message string   `json:"message" yaml:"message"`
	Details []string `json:"details,omitempty" yaml:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	c := NewCommandContext(cmd)

	checks := []HealthCheck{checkConfig()}
	checks = append(checks, c.checkPlan(cmd)...)
	checks = append(checks, c.checkState())

	out := &DoctorOutput{Checks: checks, Status: overallStatus(checks)}

	handled, err := c.Renderer.Structured(out)
	if err != nil {
		return err
	}
	if !handled {
		renderDoctorText(c.Renderer, out)
	}

	if out.Status == StatusError {
		return fmt.Errorf("doctor found problems")
	}
	return nil
}

func checkConfig() HealthCheck {
	if path := config.GetConfigFileUsed(); path != "" {
		return HealthCheck{Name: "config", Status: StatusPass, Message: "loaded " + path}
	}
	return HealthCheck{
		Name:    "config",
		Status:  StatusWarn,
		Message: "no leapdump.yaml found, using defaults and flags",
	}
}

// checkPlan reads the catalog and resolves it, reporting the source and the
// plan as separate checks.
func (c *CommandContext) checkPlan(cmd *cobra.Command) []HealthCheck {
	res, cleanup, err := c.resolvePlan(cmd.Context())
	if err != nil {
		return []HealthCheck{{Name: "source", Status: StatusError, Message: err.Error()}}
	}
	defer cleanup()

	checks := []HealthCheck{{
		Name:    "source",
		Status:  StatusPass,
		Message: fmt.Sprintf("read catalog of %s", res.Source),
	}}
	return append(checks, planCheck(res.Plan))
}

func planCheck(plan *resolver.Plan) HealthCheck {
	broken := plan.BrokenCycles()
	repaired := len(plan.Cycles) - len(broken)

	check := HealthCheck{
		Name:    "plan",
		Status:  StatusPass,
		Message: fmt.Sprintf("%d entries, %d loops repaired", len(plan.Entries), repaired),
	}
	if len(broken) == 0 {
		return check
	}

	check.Status = StatusWarn
	check.Message = fmt.Sprintf("%d entries, %d loops broken by dropping a dependency", len(plan.Entries), len(broken))
	for _, cy := range broken {
		detail := strings.Join(cy.Units, " -> ")
		if cy.Guidance != "" {
			detail += " (" + cy.Guidance + ")"
		}
		check.Details = append(check.Details, detail)
	}
	return check
}

func (c *CommandContext) checkState() HealthCheck {
	store, err := c.openStore()
	if err != nil {
		return HealthCheck{Name: "state", Status: StatusError, Message: err.Error()}
	}
	defer func() { _ = store.Close() }()

	version, err := store.GetMigrationVersion()
	if err != nil {
		return HealthCheck{Name: "state", Status: StatusError, Message: err.Error()}
	}
	return HealthCheck{
		Name:    "state",
		Status:  StatusPass,
		Message: fmt.Sprintf("%s at migration %d", c.Cfg.StatePath, version),
	}
}

func overallStatus(checks []HealthCheck) string {
	status := StatusPass
	for _, check := range checks {
		switch check.Status {
		case StatusError:
			return StatusError
		case StatusWarn:
			status = StatusWarn
		}
	}
	return status
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	r.Header(1, "leapdump doctor")
	r.Println("")

	rows := make([]table.Row, 0, len(out.Checks))
	for _, check := range out.Checks {
		rows = append(rows, table.Row{
			titleCaser.String(check.Name),
			statusIcon(styles, check.Status) + " " + statusStyle(styles, check.Status).Render(check.Status),
			check.Message,
		})
	}
	r.Table(table.Row{"Check", "Status", "Message"}, rows)

	for _, check := range out.Checks {
		if len(check.Details) == 0 {
			continue
		}
		r.Println("")
		r.Header(2, titleCaser.String(check.Name))
		for _, d := range check.Details {
			r.Println(styles.Muted.Render("  - " + d))
		}
	}

	r.Println("")
	r.Println(output.FormatKeyValue("Status", statusStyle(styles, out.Status).Render(out.Status)))
}

func statusStyle(styles *output.Styles, status string) lipgloss.Style {
	switch status {
	case StatusError:
		return styles.Error
	case StatusWarn:
		return styles.Warning
	default:
		return styles.Success
	}
}

func statusIcon(styles *output.Styles, status string) string {
	switch status {
	case StatusError:
		return styles.StatusFailed.String()
	case StatusWarn:
		return styles.StatusWarning.String()
	default:
		return styles.StatusSuccess.String()
	}
}
