package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/AmiraaaF/Projet-Rust/billing"

// OTelMetrics holds OpenTelemetry instruments for billing events
type OTelMetrics struct {
	subscriptionChanges metric.Int64Counter
	invoicesIssued      metric.Int64Counter
	invoiceAmount       metric.Float64Counter
	invoicesPaid        metric.Int64Counter
}

// NewOTelMetrics creates instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter(meterName)

	m := &OTelMetrics{}
	var err error

	m.subscriptionChanges, err = meter.Int64Counter(
		"billing.subscription.changes",
		metric.WithDescription("Subscription mutations"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription changes counter: %w", err)
	}

	m.invoicesIssued, err = meter.Int64Counter(
		"billing.invoices.issued",
		metric.WithDescription("Invoices created"),
		metric.WithUnit("{invoice}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoices issued counter: %w", err)
	}

	m.invoiceAmount, err = meter.Float64Counter(
		"billing.invoices.amount",
		metric.WithDescription("Sum of invoice amounts created"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice amount counter: %w", err)
	}

	m.invoicesPaid, err = meter.Int64Counter(
		"billing.invoices.paid",
		metric.WithDescription("Invoices marked as paid"),
		metric.WithUnit("{invoice}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoices paid counter: %w", err)
	}

	return m, nil
}

func (m *OTelMetrics) RecordSubscriptionChange(operation, plan string) {
	m.subscriptionChanges.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("plan", plan),
	))
}

func (m *OTelMetrics) RecordInvoiceIssued(status string, amount float64) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.invoicesIssued.Add(context.Background(), 1, attrs)
	if amount > 0 {
		m.invoiceAmount.Add(context.Background(), amount, attrs)
	}
}

func (m *OTelMetrics) RecordInvoicePaid() {
	m.invoicesPaid.Add(context.Background(), 1)
}
