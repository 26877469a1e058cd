// Package health implements the liveness, readiness and version probes.
//
// Liveness (/health) always answers 200 while the process can serve HTTP.
// Readiness (/ready) runs every registered CheckFunc concurrently, each
// bounded by the checker timeout, and answers 503 if any of them fails:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("database", db.PingContext)
//	checker.Register("scheduler", func(context.Context) error {
//		if !scheduler.IsRunning() {
//			return errors.New("retention scheduler not running")
//		}
//		return nil
//	})
//	checker.Mount(mux, health.BuildInfo{Version: version})
package health
