// Package middleware provides the HTTP middleware chain for the API server:
// request IDs, structured access logging, OpenTelemetry tracing, Prometheus
// metrics, CORS, rate limiting, JWT authentication, idempotency replay, and
// optional pprof exposure.
//
// Handlers compose outside-in, so the outermost middleware observes
// everything the inner ones produce:
//
//	handler := middleware.RequestID(
//		middleware.Logging(logger)(
//			middleware.Tracing("vendormatch")(
//				middleware.HTTPMetrics(metrics)(mux))))
//
// Logging installs a per-request scope that later middleware and handlers
// write into via SetUserID and SetErrorCode; the access log entry picks the
// values up when the request completes. RequestID must wrap Logging for the
// request_id field to be populated.
package middleware
