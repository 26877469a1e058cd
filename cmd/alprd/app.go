package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/afelipfo/alpr-dashboard/pkg/cli"
	"github.com/afelipfo/alpr-dashboard/pkg/config"
	"github.com/afelipfo/alpr-dashboard/pkg/database"
	"github.com/afelipfo/alpr-dashboard/pkg/detection"
	"github.com/afelipfo/alpr-dashboard/pkg/detection/storage"
	"github.com/afelipfo/alpr-dashboard/pkg/events"
	"github.com/afelipfo/alpr-dashboard/pkg/retention"
	"github.com/afelipfo/alpr-dashboard/pkg/sysconfig"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/logging"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/metrics"
)

// app holds the components shared by the server and the retention
// subcommands.
type app struct {
	cfg    *config.Config
	logger *logging.Logger

	db        *sql.DB
	records   detection.Storage
	configs   sysconfig.Store
	publisher events.Publisher
	metrics   *metrics.Collector

	policies *retention.PolicyStore
	engine   *retention.Engine
	reporter *retention.Reporter

	closers []io.Closer
}

// loadConfig reads the configuration named by --config and makes it the
// global configuration.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(opts.cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	config.SetConfig(cfg)
	return cfg, nil
}

// newLogger builds the process logger. --verbose forces debug level.
func newLogger(cfg *config.Config, opts *rootOptions, w io.Writer) (*logging.Logger, error) {
	logCfg := cfg.Telemetry.Logging
	if opts.verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg, w)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// newApp opens storage and builds the retention components. collector may
// be nil.
func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger, collector *metrics.Collector) (_ *app, err error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}

	a.publisher, err = events.New(&cfg.Events, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect event publisher: %w", err)
	}
	a.closers = append(a.closers, a.publisher)

	opts := []retention.Option{
		retention.WithLogger(logger.Logger),
		retention.WithMetrics(collector),
		retention.WithPublisher(a.publisher),
		retention.WithRunTimeout(cfg.Retention.RunTimeout),
	}
	a.policies = retention.NewPolicyStore(a.configs, cfg.Retention.DefaultDays, logger.Logger)
	a.engine = retention.NewEngine(a.records, a.policies, opts...)
	a.reporter = retention.NewReporter(a.records, a.policies, opts...)

	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	if a.cfg.Storage.Driver == "memory" {
		a.records = storage.NewMemoryStorage()
		a.configs = sysconfig.NewMemoryStore()
		a.closers = append(a.closers, a.records)
		a.logger.Warn("using in-memory storage, detections and the retention policy are lost on restart")
		return nil
	}

	db, err := database.Open(ctx, &database.Config{
		Driver:       a.cfg.Storage.Driver,
		Path:         a.cfg.Storage.Path,
		MaxOpenConns: a.cfg.Storage.MaxOpenConns,
		MaxIdleConns: a.cfg.Storage.MaxIdleConns,
		WALMode:      strings.EqualFold(a.cfg.Storage.JournalMode, "wal"),
		BusyTimeout:  a.cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, db)

	records, err := storage.NewSQLiteStorage(ctx, db)
	if err != nil {
		return err
	}
	a.records = records
	a.closers = append(a.closers, records)

	configs, err := sysconfig.NewSQLiteStore(ctx, db)
	if err != nil {
		return err
	}
	a.configs = configs
	a.closers = append(a.closers, configs)
	return nil
}

// ping checks both stores.
func (a *app) ping(ctx context.Context) error {
	return errors.Join(a.records.Ping(ctx), a.configs.Ping(ctx))
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
