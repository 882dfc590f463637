package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapdump/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Save the catalog of the source database to a file",
		Long: `Read the catalog of the configured source database and write it as a
YAML snapshot. The snapshot can be planned later without a connection:

  leapdump plan --snapshot <file>`,
		Example: `  leapdump snapshot catalog.yaml --host db.internal --dbname shop --username dump`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			if cmdCtx.Cfg.Snapshot != "" {
				return fmt.Errorf("snapshot reads from the source database; --snapshot cannot be used here")
			}

			opts, err := cmdCtx.Cfg.Dump.Options()
			if err != nil {
				return err
			}
			// A saved snapshot outlives the transaction, so none is exported.
			opts.Jobs = 1

			snap, cleanup, err := cmdCtx.readSnapshot(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := snap.Save(args[0]); err != nil {
				return err
			}

			r := cmdCtx.Renderer
			r.Printf("Saved %d units from %s to %s\n", len(snap.Units), snap.Source, args[0])
			r.Println(output.FormatKeyValue("Dependency rows", fmt.Sprintf("%d", len(snap.Depends))))
			return nil
		},
	}
}
