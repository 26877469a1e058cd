package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/cli"
	"github.com/afelipfo/alpr-dashboard/pkg/retention"

	"github.com/spf13/cobra"
)

func newRetentionCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Manage detection data retention",
		Long: `Inspect and change the data retention policy, preview what a cleanup would
delete and run a cleanup immediately.

These commands open the configured database directly and can be used while
the server is running.`,
	}
	cmd.AddCommand(
		newCleanupCmd(root),
		newStatsCmd(root),
		newPolicyCmd(root),
	)
	return cmd
}

// withApp loads configuration, builds the app and calls fn. Logs go to the
// command's stderr.
func withApp(cmd *cobra.Command, root *rootOptions, fn func(ctx context.Context, a *app, out cli.Formatter) error) error {
	formatter, err := root.formatter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if !root.verbose {
		cfg.Telemetry.Logging.Level = "warn"
	}
	logger, err := newLogger(cfg, root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return cli.NewCommandError(cmd.CommandPath(), err)
	}
	defer a.Close()

	return fn(ctx, a, formatter)
}

func newCleanupCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete detections older than the retention period now",
		Long: `Run one retention cleanup with the saved policy. Nothing is deleted when
the policy is disabled. Exits with status 3 when the cleanup fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app, out cli.Formatter) error {
				result := a.engine.RunCleanup(ctx, retention.TriggerManual)
				if err := out.FormatTo(cmd.OutOrStdout(), resultView{result}); err != nil {
					return err
				}
				if result.Failed() {
					return &cli.CommandError{
						Command: cmd.CommandPath(),
						Code:    cli.ExitCleanupFailed,
						Err:     result.Err(),
					}
				}
				return nil
			})
		},
	}
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record counts and what the next cleanup would delete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app, out cli.Formatter) error {
				return out.FormatTo(cmd.OutOrStdout(), statsView{a.reporter.GetStats(ctx)})
			})
		},
	}
}

func newPolicyCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the retention policy",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the retention policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app, out cli.Formatter) error {
				policy, err := a.policies.Load(ctx)
				if err != nil {
					return cli.NewCommandError(cmd.CommandPath(), err)
				}
				return out.FormatTo(cmd.OutOrStdout(), policyView{policy})
			})
		},
	}

	var (
		days    int
		enabled bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the retention policy",
		Long: `Change the retention period, the enabled flag, or both. Flags that are not
given keep their saved value. The time of the last cleanup is preserved, and
no cleanup is run.

Examples:
  alprd retention config set --days 30
  alprd retention config set --enabled=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			daysSet := cmd.Flags().Changed("days")
			enabledSet := cmd.Flags().Changed("enabled")
			if !daysSet && !enabledSet {
				return cli.NewConfigError("flags", "at least one of --days or --enabled is required")
			}

			return withApp(cmd, root, func(ctx context.Context, a *app, out cli.Formatter) error {
				current := a.policies.Get(ctx)
				if !daysSet {
					days = current.RetentionDays
				}
				if !enabledSet {
					enabled = current.Enabled
				}

				policy, err := a.policies.Update(ctx, days, enabled)
				var policyErr *retention.PolicyError
				if errors.As(err, &policyErr) {
					return cli.NewConfigError("--days", policyErr.Message)
				}
				if err != nil {
					return cli.NewCommandError(cmd.CommandPath(), err)
				}
				return out.FormatTo(cmd.OutOrStdout(), policyView{policy})
			})
		},
	}
	set.Flags().IntVar(&days, "days", 0, fmt.Sprintf("retention period in days (%d-%d)", retention.MinRetentionDays, retention.MaxRetentionDays))
	set.Flags().BoolVar(&enabled, "enabled", true, "enable automatic cleanup")

	cmd.AddCommand(get, set)
	return cmd
}

type policyView struct {
	retention.Policy
}

func (v policyView) Rows() []cli.Row {
	return []cli.Row{
		{Label: "Retention days", Value: fmt.Sprint(v.RetentionDays)},
		{Label: "Enabled", Value: fmt.Sprint(v.Enabled)},
		{Label: "Last run", Value: formatTime(v.LastRun, "never")},
	}
}

type statsView struct {
	retention.Stats
}

func (v statsView) Rows() []cli.Row {
	return []cli.Row{
		{Label: "Total records", Value: fmt.Sprint(v.TotalRecords)},
		{Label: "Oldest record", Value: formatTime(v.OldestRecord, "-")},
		{Label: "Newest record", Value: formatTime(v.NewestRecord, "-")},
		{Label: "Records to delete", Value: fmt.Sprint(v.RecordsToDelete)},
		{Label: "Retention days", Value: fmt.Sprint(v.RetentionDays)},
		{Label: "Enabled", Value: fmt.Sprint(v.Enabled)},
		{Label: "Cutoff", Value: formatTime(&v.Cutoff, "-")},
		{Label: "Last run", Value: formatTime(v.LastRun, "never")},
	}
}

type resultView struct {
	retention.Result
}

func (v resultView) Rows() []cli.Row {
	status := "completed"
	switch {
	case v.Failed():
		status = "failed: " + v.Error
	case v.Skipped:
		status = "skipped (retention disabled)"
	}
	return []cli.Row{
		{Label: "Run ID", Value: v.RunID},
		{Label: "Status", Value: status},
		{Label: "Deleted", Value: fmt.Sprint(v.DeletedCount)},
		{Label: "Cutoff", Value: formatTime(v.Cutoff, "-")},
		{Label: "Duration", Value: (time.Duration(v.DurationMs) * time.Millisecond).String()},
	}
}

func formatTime(t *time.Time, empty string) string {
	if t == nil || t.IsZero() {
		return empty
	}
	return t.Local().Format(time.RFC3339)
}

