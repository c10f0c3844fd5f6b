package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huolto/huolto/internal/output"
)

func newSnapshotsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect and manage stored snapshots",
	}

	cmd.AddCommand(newSnapshotsListCommand())
	cmd.AddCommand(newSnapshotsShowCommand())
	cmd.AddCommand(newSnapshotsPruneCommand())

	return cmd
}

func newSnapshotsListCommand() *cobra.Command {
	var deploymentID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			refs, err := app.Store.List(deploymentID)
			if err != nil {
				return err
			}

			if cfg.Output.Format == "json" {
				s, err := output.FormatJSON(refs)
				if err != nil {
					return err
				}
				fmt.Print(s)
				return nil
			}

			fmt.Print(output.FormatSnapshotList(refs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&deploymentID, "deployment", "d", "", "filter by deployment")

	return cmd
}

func newSnapshotsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <identifier>",
		Short: "Print a stored snapshot as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			snapshot, err := app.Store.Resolve(args[0])
			if err != nil {
				return err
			}

			s, err := output.FormatJSON(snapshot)
			if err != nil {
				return err
			}
			fmt.Print(s)
			return nil
		},
	}
}

func newSnapshotsPruneCommand() *cobra.Command {
	var (
		deploymentID string
		keep         int
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove a deployment's oldest snapshots beyond the retention count",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			removed, err := app.Store.Prune(deploymentID, keep)
			if err != nil {
				return err
			}

			fmt.Printf("Removed %d snapshot(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&deploymentID, "deployment", "d", "", "deployment to prune (required)")
	cmd.Flags().IntVar(&keep, "keep", 10, "number of snapshots to retain")
	cmd.MarkFlagRequired("deployment")

	return cmd
}
