package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huolto/huolto/internal/snapshot"
)

func newCaptureCommand() *cobra.Command {
	var (
		deploymentID   string
		includeSecrets bool
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a snapshot of a deployment's current state",
		Long: `Capture reads the deployment's provisioned state, redacts sensitive
attribute values and stores an immutable snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			ref, err := app.Capturer.Capture(cmd.Context(), deploymentID, snapshot.Options{
				IncludeSecrets: includeSecrets,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Captured snapshot %s (%d resources) -> %s\n", ref.SnapshotID, ref.ResourceCount, ref.FilePath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&deploymentID, "deployment", "d", "", "deployment to capture (required)")
	cmd.Flags().BoolVar(&includeSecrets, "include-secrets", false, "skip redaction of sensitive values")
	cmd.MarkFlagRequired("deployment")

	return cmd
}
