package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var billingTracer = otel.Tracer("billing/service")

// Archiver stores a copy of paid invoices outside the database
type Archiver interface {
	ArchiveInvoice(ctx context.Context, invoice *Invoice) error
}

// Recorder receives billing events for metrics
type Recorder interface {
	RecordSubscriptionChange(operation, plan string)
	RecordInvoiceIssued(status string, amount float64)
	RecordInvoicePaid()
}

type nopRecorder struct{}

func (nopRecorder) RecordSubscriptionChange(string, string) {}
func (nopRecorder) RecordInvoiceIssued(string, float64)     {}
func (nopRecorder) RecordInvoicePaid()                      {}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLService implements the billing Service interface on database/sql
type SQLService struct {
	db       *sql.DB
	dialect  storage.Dialect
	now      func() time.Time
	archiver Archiver
	recorder Recorder
}

// Option configures a SQLService
type Option func(*SQLService)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *SQLService) { s.now = now }
}

// WithArchiver archives invoices once they are paid
func WithArchiver(a Archiver) Option {
	return func(s *SQLService) { s.archiver = a }
}

// WithRecorder reports billing events to r
func WithRecorder(r Recorder) Option {
	return func(s *SQLService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewSQLService creates a new SQLService
func NewSQLService(db *sql.DB, dialect storage.Dialect, opts ...Option) *SQLService {
	s := &SQLService{
		db:       db,
		dialect:  dialect,
		now:      time.Now,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Service = (*SQLService)(nil)

// timestamp returns the current time in UTC at the precision both databases keep
func (s *SQLService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *SQLService) rebind(query string) string {
	return storage.Rebind(s.dialect, query)
}

// withTx runs fn in a transaction. The transaction commits only if fn succeeds.
func (s *SQLService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
