/*
Package cli provides command-line helpers for the alprd command.

Output Formatting:

Command results can be printed as aligned text, JSON or YAML:

	formatter, err := cli.NewFormatter(cli.FormatYAML)
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, stats)

Values implementing Tabular are printed as a two-column table in text mode.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Exit Codes:

ExitCode maps errors returned by commands onto process exit codes.
*/
package cli
