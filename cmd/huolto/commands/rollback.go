package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huolto/huolto/internal/output"
)

func newRollbackCommand() *cobra.Command {
	var (
		deploymentID string
		target       string
	)

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Converge a deployment back to a stored snapshot",
		Long: `Rollback captures the deployment's current state, prints the comparison
against the target snapshot, and delegates convergence to the provisioning
tool. The comparison is printed even when the apply step fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			result, rollbackErr := app.Rollback.Rollback(cmd.Context(), deploymentID, target)
			if result != nil {
				fmt.Print(output.FormatComparison(result, cfg.Output.NoColor))
			}
			return rollbackErr
		},
	}

	cmd.Flags().StringVarP(&deploymentID, "deployment", "d", "", "deployment to roll back (required)")
	cmd.Flags().StringVar(&target, "to", "", "target snapshot identifier (required)")
	cmd.MarkFlagRequired("deployment")
	cmd.MarkFlagRequired("to")

	return cmd
}
