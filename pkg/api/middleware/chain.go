package middleware

import (
	"log/slog"
	"net/http"
)

// Chain wraps h with the standard API middleware. Recovery is outermost so
// that it also covers logging, and the request ID is assigned before the
// access log line is written.
func Chain(h http.Handler, logger *slog.Logger) http.Handler {
	h = Logging(logger)(h)
	h = RequestID(h)
	h = Recovery(logger)(h)
	return h
}
