// Package observability provides logging setup, Prometheus metrics, health
// checks and the status HTTP server used by cogwatch.
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ObserveSync("EssentialKit", "prebuild", err, time.Since(start))
//
// *Metrics implements assets.CacheObserver and journal.WriteObserver, so the
// same value is handed to the asset store and the artifact writer. A nil
// *Metrics records nothing.
//
// # Status server
//
//	checker := observability.NewHealthChecker(j, cfg.ProjectRoot, version)
//	router := observability.NewRouter(registry, metrics, checker, j)
//	srv := &http.Server{Addr: cfg.StatusAddr, Handler: router}
//
// Routes: /metrics, /healthz, /readyz and /status.
package observability
