// Package api hosts the HTTP server, middleware, and REST handlers that let
// dashboards drive probes. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/probes to probe one URL; GET /v1/probes for the session records.
//   - POST /v1/exports to write a CSV export; GET /v1/exports/csv to download one.
package api
