// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry setup, health probes and graceful shutdown for the billing server.
//
// Loggers travel in the request context:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	ctx = observability.WithLogger(ctx, logger.WithField("request_id", id))
//	observability.FromContext(ctx).Info("invoice paid")
//
// Metrics satisfies billing.Recorder so the service can count subscription
// changes and invoices without importing Prometheus:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	svc := billing.NewSQLService(db, dialect, billing.WithRecorder(metrics))
package observability
