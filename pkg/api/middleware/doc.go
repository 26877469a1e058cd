// Package middleware provides the HTTP middleware shared by the API:
// panic recovery, request IDs and access logging.
//
//	handler = middleware.Chain(router, logger)
package middleware
