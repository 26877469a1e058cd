// Package server hosts the HTTP API of the ALPR dashboard backend together
// with the health, version and metrics endpoints.
//
// # Routes
//
//	/api/...   dashboard API (see package api)
//	/health    liveness
//	/ready     readiness: database and retention scheduler
//	/version   build information
//	/metrics   Prometheus exposition, when metrics are enabled
//
// # Basic Usage
//
//	srv := server.NewServer(&cfg.Server, server.Routes{
//	    API:         api.New(apiCfg).Handler(),
//	    Health:      checker,
//	    Build:       health.BuildInfo{Version: version},
//	    Metrics:     collector,
//	    MetricsPath: cfg.Telemetry.Metrics.Path,
//	}, logger)
//
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// # Graceful Shutdown
//
// Start returns once ctx is cancelled and in-flight requests have finished,
// or ServerConfig.ShutdownTimeout has elapsed. Shutdown may also be called
// from another goroutine. A manual cleanup request that is still running is
// allowed to finish within that window.
package server
