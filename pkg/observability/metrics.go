package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the billing server
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Billing metrics
	SubscriptionChangesTotal *prometheus.CounterVec
	InvoicesIssuedTotal      *prometheus.CounterVec
	InvoiceAmountTotal       prometheus.Counter
	InvoicesPaidTotal        prometheus.Counter

	// Database pool metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitCount        prometheus.Gauge

	otel *OTelMetrics
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),
		SubscriptionChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_subscription_changes_total",
				Help: "Subscription mutations by operation and resulting plan",
			},
			[]string{"operation", "plan"},
		),
		InvoicesIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_invoices_issued_total",
				Help: "Invoices created by initial status",
			},
			[]string{"status"},
		),
		InvoiceAmountTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_invoice_amount_total",
				Help: "Sum of invoice amounts created",
			},
		),
		InvoicesPaidTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_invoices_paid_total",
				Help: "Invoices transitioned to paid",
			},
		),
		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "billing_db_connections_open",
				Help: "Number of open database connections",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "billing_db_connections_in_use",
				Help: "Number of database connections in use",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "billing_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "billing_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.SubscriptionChangesTotal,
		m.InvoicesIssuedTotal,
		m.InvoiceAmountTotal,
		m.InvoicesPaidTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitCount,
	)

	return m
}

// WithOTel mirrors billing counters into OpenTelemetry instruments.
func (m *Metrics) WithOTel(o *OTelMetrics) *Metrics {
	m.otel = o
	return m
}

// RecordSubscriptionChange counts an upsert, update or cancel.
func (m *Metrics) RecordSubscriptionChange(operation, plan string) {
	m.SubscriptionChangesTotal.WithLabelValues(operation, plan).Inc()
	if m.otel != nil {
		m.otel.RecordSubscriptionChange(operation, plan)
	}
}

// RecordInvoiceIssued counts a newly created invoice and its amount.
func (m *Metrics) RecordInvoiceIssued(status string, amount float64) {
	m.InvoicesIssuedTotal.WithLabelValues(status).Inc()
	if amount > 0 {
		m.InvoiceAmountTotal.Add(amount)
	}
	if m.otel != nil {
		m.otel.RecordInvoiceIssued(status, amount)
	}
}

// RecordInvoicePaid counts a successful pay transition.
func (m *Metrics) RecordInvoicePaid() {
	m.InvoicesPaidTotal.Inc()
	if m.otel != nil {
		m.otel.RecordInvoicePaid()
	}
}

// UpdateDBStats copies connection pool statistics into the gauges.
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBWaitCount.Set(float64(stats.WaitCount))
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the mux route template so ids do not explode label cardinality.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint. Each refresh func
// runs before a scrape is served.
func RegisterMetricsEndpoint(router *mux.Router, registry *prometheus.Registry, refresh ...func()) {
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		for _, fn := range refresh {
			fn()
		}
		handler.ServeHTTP(w, r)
	}).Methods(http.MethodGet)
}
