// Package api hosts the HTTP server, middleware, and REST handlers for
// running discoveries over HTTP. Routes:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/discover to run one discovery and return its report.
package api
