package main

import (
	"fmt"
	"os"

	"github.com/afelipfo/alpr-dashboard/pkg/cli"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	cfgFile string
	verbose bool
	output  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "alprd",
		Short: "ALPR dashboard backend",
		Long: `alprd serves the ALPR dashboard API: detection ingest and browsing,
the data retention policy, retention statistics and manual cleanup.

A background scheduler deletes detections older than the retention period
once shortly after startup and then on a fixed interval or cron schedule.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path (defaults and ALPR_* environment variables when empty)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", string(cli.FormatText), "output format: text, json, yaml")

	cmd.AddCommand(
		newRunCmd(opts),
		newRetentionCmd(opts),
		newVersionCmd(opts),
		newCompletionCmd(),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

// formatter returns the formatter selected by --output.
func (o *rootOptions) formatter() (cli.Formatter, error) {
	return cli.NewFormatter(cli.OutputFormat(o.output))
}
