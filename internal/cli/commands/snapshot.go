package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mzfresh/internal/adapter"
)

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture catalog snapshots",
		Long: `Capture the provider's catalog (objects, write frontiers, dependencies) and
its current clock as a YAML file. Snapshots can be replayed with the file
provider to reproduce a report offline.`,
	}
	cmd.AddCommand(newSnapshotExportCommand())
	return cmd
}

func newSnapshotExportCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current catalog snapshot as YAML",
		Example: `  # Print a snapshot of the live catalog
  mzfresh snapshot export

  # Save it and diagnose offline later
  mzfresh snapshot export --file catalog.yaml
  mzfresh monitor --provider file --snapshot-file catalog.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := commandContext(cmd)
			snap, err := cmdCtx.Adapter.Snapshot(ctx)
			if err != nil {
				return fmt.Errorf("failed to read catalog snapshot: %w", err)
			}
			now, err := cmdCtx.Adapter.Now(ctx)
			if err != nil {
				return fmt.Errorf("failed to read clock: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if file != "" {
				f, err := os.Create(file)
				if err != nil {
					return fmt.Errorf("failed to create snapshot file: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			if err := adapter.WriteSnapshot(w, snap, now); err != nil {
				return err
			}

			if file != "" {
				cmdCtx.Renderer.Success(fmt.Sprintf("Wrote %d objects, %d frontiers, %d edges to %s",
					len(snap.Objects), len(snap.Frontiers), len(snap.Edges), file))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Write to this file instead of stdout")

	return cmd
}
