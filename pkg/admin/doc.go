// Package admin serves the operator HTTP surface of realmd.
//
// Routes (paths come from the telemetry configuration):
//
//   - GET /metrics - Prometheus scrape endpoint
//   - GET /health - liveness, always 200 while the process runs
//   - GET /ready - readiness, 200 only while the game server is open and
//     every registered check passes
//   - GET /version - build information
//
// The admin server is started after the game server opens and shut down
// before it stops, so /ready flips to 503 before sockets close.
package admin
