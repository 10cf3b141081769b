// Package middleware holds the HTTP middleware shared by every route:
// request IDs, structured request logging, rate limiting, CORS, security
// headers, OpenTelemetry instrumentation and session authentication.
package middleware
