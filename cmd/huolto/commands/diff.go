package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huolto/huolto/internal/differ"
	"github.com/huolto/huolto/internal/output"
)

func newDiffCommand() *cobra.Command {
	var includeUnchanged bool

	cmd := &cobra.Command{
		Use:   "diff <reference> <difference>",
		Short: "Compare two stored snapshots",
		Long: `Diff resolves both snapshot identifiers (by id, filename fragment or
literal path) and classifies every resource as added, removed, modified or
unchanged, with field-level changes for modified resources.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			result, err := app.Differ.Compare(args[0], args[1], differ.Options{
				IncludeUnchanged: includeUnchanged,
			})
			if err != nil {
				return err
			}

			if cfg.Output.Format == "json" {
				s, err := output.FormatJSON(result)
				if err != nil {
					return err
				}
				fmt.Print(s)
				return nil
			}

			fmt.Print(output.FormatComparison(result, cfg.Output.NoColor))
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeUnchanged, "include-unchanged", false, "list unchanged resources in the result")

	return cmd
}
