// Package health provides liveness and readiness probes for realmd.
//
// # Endpoints
//
//   - /health: Liveness probe, reports the process is running
//   - /ready: Readiness probe, runs every registered component check
//   - /version: Build information
//
// # Usage
//
//	checker := health.New(5*time.Second, bootID)
//	checker.RegisterCheck("storage", store.Ping)
//	mux.HandleFunc("/ready", checker.ReadinessHandler())
package health
