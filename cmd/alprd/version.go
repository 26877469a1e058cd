package main

import (
	"runtime"

	"github.com/afelipfo/alpr-dashboard/pkg/cli"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/health"

	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

func buildInfo() health.BuildInfo {
	return health.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
		GoVersion: runtime.Version(),
	}
}

type versionView struct {
	health.BuildInfo
}

func (v versionView) Rows() []cli.Row {
	return []cli.Row{
		{Label: "alprd", Value: v.Version},
		{Label: "Git Commit", Value: v.Commit},
		{Label: "Build Date", Value: v.BuildTime},
		{Label: "Go Version", Value: v.GoVersion},
		{Label: "OS/Arch", Value: runtime.GOOS + "/" + runtime.GOARCH},
	}
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including Git commit and build date.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := opts.formatter()
			if err != nil {
				return err
			}
			return formatter.FormatTo(cmd.OutOrStdout(), versionView{buildInfo()})
		},
	}
}
