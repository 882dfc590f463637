package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapdump/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapdump/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leapdump project",
		Long: `Initialize a leapdump project with a default leapdump.yaml.

Use --example to also write a small catalog snapshot so that plan and
schedule can be tried without a database.`,
		Example: `  # Initialize in current directory
  leapdump init

  # Initialize a working example in a new directory
  leapdump init shop --example

  # Force overwrite existing config
  leapdump init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeText)

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Also write an example catalog snapshot")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	for _, f := range files {
		r.Printf("  created %s\n", f)
	}

	r.Println("")
	r.Println("leapdump project initialized!")
	r.Println("")
	r.Println("Next steps:")
	if template == "example" {
		r.Println("  leapdump plan                 Show the dump order of catalog.yaml")
		r.Println("  leapdump schedule --simulate  Spread table data over workers")
	} else {
		r.Println("  1. Set source.database in leapdump.yaml")
		r.Println("  2. Run 'leapdump plan' to see the dump order")
		r.Println("  3. Run 'leapdump snapshot catalog.yaml' to plan offline later")
	}
	return nil
}
