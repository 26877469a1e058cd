// Package api implements the HTTP API of the ALPR dashboard: retention
// policy, statistics and manual cleanup, plus detection ingest and
// browsing.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/api/middleware"
	"github.com/afelipfo/alpr-dashboard/pkg/detection"
	"github.com/afelipfo/alpr-dashboard/pkg/events"
	"github.com/afelipfo/alpr-dashboard/pkg/retention"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/metrics"

	"github.com/jonboulle/clockwork"
	"github.com/julienschmidt/httprouter"
)

// DefaultMaxBodyBytes caps request bodies when Config leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// Config wires the API to its collaborators. Records, Policies, Engine and
// Reporter are required.
type Config struct {
	Records  detection.Storage
	Policies *retention.PolicyStore
	Engine   *retention.Engine
	Reporter *retention.Reporter

	Metrics *metrics.Collector
	Logger  *slog.Logger
	Clock   clockwork.Clock

	// Publisher receives policy updates. Nil disables publishing.
	Publisher events.Publisher

	// MaxBodyBytes limits JSON request bodies.
	MaxBodyBytes int64
}

// API serves the /api routes.
type API struct {
	records   detection.Storage
	policies  *retention.PolicyStore
	engine    *retention.Engine
	reporter  *retention.Reporter
	publisher events.Publisher
	metrics   *metrics.Collector
	logger    *slog.Logger
	clock     clockwork.Clock
	maxBody   int64
	router    *httprouter.Router
}

// New creates the API and registers its routes.
func New(cfg Config) *API {
	a := &API{
		records:   cfg.Records,
		policies:  cfg.Policies,
		engine:    cfg.Engine,
		reporter:  cfg.Reporter,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		maxBody:   cfg.MaxBodyBytes,
		router:    httprouter.New(),
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "api")
	if a.publisher == nil {
		a.publisher = events.NoopPublisher{}
	}
	if a.clock == nil {
		a.clock = clockwork.NewRealClock()
	}
	if a.maxBody <= 0 {
		a.maxBody = DefaultMaxBodyBytes
	}

	a.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	a.router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	a.registerRetention()
	a.registerDetections()
	return a
}

// Handler returns the router wrapped in the standard middleware chain.
func (a *API) Handler() http.Handler {
	return middleware.Chain(a.router, a.logger)
}

// handle registers h and records request metrics under the route pattern.
func (a *API) handle(method, path string, h httprouter.Handle) {
	a.router.Handle(method, path, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		rec := middleware.NewStatusRecorder(w)
		h(rec, r, ps)
		a.metrics.RecordHTTPRequest(method, path, rec.Status, time.Since(start))
	})
}
