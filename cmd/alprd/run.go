package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/afelipfo/alpr-dashboard/pkg/api"
	"github.com/afelipfo/alpr-dashboard/pkg/cli"
	"github.com/afelipfo/alpr-dashboard/pkg/config"
	"github.com/afelipfo/alpr-dashboard/pkg/retention"
	"github.com/afelipfo/alpr-dashboard/pkg/server"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/health"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/logging"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/metrics"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type runOptions struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noScheduler   bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the API server and retention scheduler",
		Long: `Start the HTTP API server and the background retention scheduler.

The first cleanup runs shortly after startup, then on the configured interval
or cron schedule. Changes to the log level in the config file are applied
without a restart.

Examples:
  # Start with defaults and ALPR_* environment variables
  alprd run

  # Start with a config file
  alprd run --config /etc/alprd/config.yaml

  # Override listen address
  alprd run --listen 0.0.0.0:8080

  # Validate config without starting the server
  alprd run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listenAddress, "listen", "l", "", "override listen address")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate config without starting server")
	cmd.Flags().BoolVar(&opts.noScheduler, "no-scheduler", false, "disable the background retention scheduler")
	return cmd
}

func runServer(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if opts.listenAddress != "" {
		cfg.Server.ListenAddress = opts.listenAddress
	}
	if opts.logLevel != "" {
		cfg.Telemetry.Logging.Level = opts.logLevel
	}
	if opts.noScheduler {
		cfg.Retention.DisableScheduler = true
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := newLogger(cfg, root, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger.Logger)

	if opts.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	a, err := newApp(ctx, cfg, logger, collector)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.Close()

	policy := a.policies.Get(ctx)
	collector.SetPolicy(policy.RetentionDays, policy.Enabled)
	logger.Info("retention policy loaded",
		"retention_days", policy.RetentionDays,
		"enabled", policy.Enabled,
	)

	checker := health.New(health.DefaultCheckTimeout)
	checker.Register("database", a.ping)

	if !cfg.Retention.DisableScheduler {
		scheduler := retention.NewScheduler(a.engine, retention.SchedulerConfigFrom(cfg.Retention),
			retention.WithLogger(logger.Logger),
		)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to start retention scheduler: %w", err))
		}
		defer scheduler.Stop()

		checker.Register("scheduler", func(context.Context) error {
			if !scheduler.IsRunning() {
				return errors.New("retention scheduler not running")
			}
			return nil
		})
		if next := scheduler.NextRun(); next != nil {
			logger.Info("first retention cleanup scheduled", "at", next)
		}
	} else {
		logger.Warn("retention scheduler disabled, only manual cleanups will run")
	}

	if root.cfgFile != "" {
		watchConfig(ctx, root.cfgFile, logger)
	}

	apiHandler := api.New(api.Config{
		Records:      a.records,
		Policies:     a.policies,
		Engine:       a.engine,
		Reporter:     a.reporter,
		Metrics:      collector,
		Logger:       logger.Logger,
		Clock:        clockwork.NewRealClock(),
		Publisher:    a.publisher,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}).Handler()

	srv := server.NewServer(&cfg.Server, server.Routes{
		API:         apiHandler,
		Health:      checker,
		Build:       buildInfo(),
		Metrics:     collector,
		MetricsPath: cfg.Telemetry.Metrics.Path,
	}, logger.Logger)

	fmt.Fprintf(cmd.OutOrStdout(), "alprd v%s listening on %s\n", Version, cfg.Server.ListenAddress)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

// watchConfig applies log level changes from the config file. Other
// settings take effect on restart.
func watchConfig(ctx context.Context, path string, logger *logging.Logger) {
	watcher, err := config.NewWatcher(path, 0)
	if err != nil {
		logger.Warn("config file watching disabled", "error", err)
		return
	}
	go func() {
		defer watcher.Stop()
		err := watcher.Watch(ctx, func(cfg *config.Config) {
			if err := logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
				logger.Warn("ignoring reloaded log level", "error", err)
				return
			}
			logger.Info("configuration reloaded", "log_level", cfg.Telemetry.Logging.Level)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()
}
