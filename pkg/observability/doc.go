// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing and health probes.
//
// # Structured Logging
//
// Create a logger and attach it to the request context:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).WithField("school_id", id).Info("school updated")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.AuthzDecisionsTotal.WithLabelValues("school", "allow").Inc()
//
// # Tracing
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//	ctx, span := observability.Tracer("query").Start(ctx, "Assemble")
//
// # Health
//
// /healthz is liveness; /readyz pings Postgres and Redis.
package observability
