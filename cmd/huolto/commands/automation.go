package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/huolto/huolto/internal/automation"
	"github.com/huolto/huolto/internal/output"
	"github.com/huolto/huolto/pkg/types"
)

func newAutomationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automation",
		Short: "Manage recurring deployment automations",
	}

	cmd.AddCommand(newAutomationStartCommand())
	cmd.AddCommand(newAutomationStopCommand())
	cmd.AddCommand(newAutomationListCommand())
	cmd.AddCommand(newAutomationStatusCommand())
	cmd.AddCommand(newAutomationRunDueCommand())

	return cmd
}

func newAutomationStartCommand() *cobra.Command {
	var (
		deploymentID   string
		automationType string
		scheduleKind   string
		intervalHours  int
		driftDetection bool
		autoBackup     bool
		retention      int
		notifications  bool
		endpoint       string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a recurring automation for a deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			features := types.AutomationFeatures{
				DriftDetection: types.DriftDetectionFeature{Enabled: driftDetection},
				AutoBackup:     types.AutoBackupFeature{Enabled: autoBackup, RetentionCount: retention},
				Notifications:  types.NotificationsFeature{Enabled: notifications, Endpoint: endpoint},
			}

			config, err := app.Scheduler.Start(deploymentID,
				types.AutomationType(automationType),
				types.Schedule{Kind: types.ScheduleKind(scheduleKind), IntervalHours: intervalHours},
				features)
			if err != nil {
				return err
			}

			fmt.Printf("Started automation %s (%s), next run %s\n",
				config.AutomationID, config.Type, config.Schedule.NextRun.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVarP(&deploymentID, "deployment", "d", "", "deployment (required)")
	cmd.Flags().StringVarP(&automationType, "type", "t", "Maintenance", "automation type (Scheduled, ContinuousDeployment, Maintenance, Monitoring)")
	cmd.Flags().StringVarP(&scheduleKind, "schedule", "s", "Daily", "schedule kind (Hourly, Daily, Weekly, Monthly, Custom)")
	cmd.Flags().IntVar(&intervalHours, "interval-hours", 0, "interval for Custom schedules")
	cmd.Flags().BoolVar(&driftDetection, "drift-detection", false, "enable drift detection tasks")
	cmd.Flags().BoolVar(&autoBackup, "auto-backup", false, "enable backup tasks")
	cmd.Flags().IntVar(&retention, "retention", 10, "snapshots to retain when auto-backup is enabled")
	cmd.Flags().BoolVar(&notifications, "notifications", false, "enable alert processing")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "notification endpoint")
	cmd.MarkFlagRequired("deployment")

	return cmd
}

func newAutomationStopCommand() *cobra.Command {
	var (
		removeConfiguration bool
		keepTriggers        bool
	)

	cmd := &cobra.Command{
		Use:   "stop <automation-id>",
		Short: "Stop an automation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			if err := app.Scheduler.Stop(args[0], removeConfiguration, !keepTriggers); err != nil {
				return err
			}

			fmt.Printf("Stopped automation %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&removeConfiguration, "remove-configuration", false, "delete the automation's config files")
	cmd.Flags().BoolVar(&keepTriggers, "keep-triggers", false, "leave platform triggers registered")

	return cmd
}

func newAutomationListCommand() *cobra.Command {
	var (
		deploymentID      string
		includeHistorical bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List automations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			summaries, err := app.Automations.List(automation.ListFilter{
				DeploymentID:      deploymentID,
				IncludeHistorical: includeHistorical,
			})
			if err != nil {
				return err
			}

			if cfg.Output.Format == "json" {
				s, err := output.FormatJSON(summaries)
				if err != nil {
					return err
				}
				fmt.Print(s)
				return nil
			}

			fmt.Print(output.FormatAutomationList(summaries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&deploymentID, "deployment", "d", "", "filter by deployment")
	cmd.Flags().BoolVar(&includeHistorical, "all", false, "include archived automations")

	return cmd
}

func newAutomationStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <automation-id>",
		Short: "Show an automation's full configuration and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			config, err := app.Automations.Get(args[0])
			if err != nil {
				return err
			}

			s, err := output.FormatJSON(config)
			if err != nil {
				return err
			}
			fmt.Print(s)
			return nil
		},
	}
}

func newAutomationRunDueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run-due",
		Short: "Execute every automation whose next run time has passed",
		Long: `Run-due is the engine's scheduling tick. Platform triggers (cron, task
scheduler) invoke it periodically; each due automation's task pipeline runs
sequentially under its deployment lock.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			ran, err := app.Runner.RunDue(cmd.Context(), time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("Ran %d automation(s)\n", ran)
			return nil
		},
	}
}
