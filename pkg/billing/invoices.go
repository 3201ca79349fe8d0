package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/observability"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const invoiceColumns = `i.id, i.user_id, i.subscription_id, i.plan, COALESCE(i.plan, s.plan, 'free'),
		       i.amount, i.currency, i.status, i.issued_at, i.due_date, i.paid_at, i.created_at`

const invoiceFrom = `FROM invoices i
		LEFT JOIN subscriptions s ON s.id = i.subscription_id`

// CreateInvoice issues a manual invoice in the issued or draft state
func (s *SQLService) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (result *Invoice, err error) {
	ctx, span := billingTracer.Start(ctx, "CreateInvoice")
	defer func() { finishSpan(span, err) }()

	if req == nil {
		return nil, &ValidationError{Message: "request body is required"}
	}
	if req.UserID == uuid.Nil {
		return nil, &ValidationError{Field: "user_id", Message: "user_id is required"}
	}
	span.SetAttributes(attribute.String("user_id", req.UserID.String()))

	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "amount must be greater than zero"}
	}

	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	status := InvoiceStatusIssued
	if req.Status != "" {
		st, err := ParseInvoiceStatus(req.Status)
		if err != nil {
			return nil, err
		}
		if st != InvoiceStatusDraft && st != InvoiceStatusIssued {
			return nil, &ValidationError{Field: "status", Message: "new invoices must be draft or issued"}
		}
		status = st
	}

	now := s.timestamp()
	inv := &Invoice{
		ID:             uuid.New(),
		UserID:         req.UserID,
		SubscriptionID: req.SubscriptionID,
		Amount:         amount,
		Currency:       currency,
		Status:         status,
		IssuedAt:       now,
		DueDate:        req.DueDate,
		CreatedAt:      now,
	}
	if inv.DueDate != nil {
		due := inv.DueDate.UTC()
		inv.DueDate = &due
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if inv.SubscriptionID != nil {
			plan, err := s.subscriptionPlan(ctx, tx, *inv.SubscriptionID, inv.UserID)
			if err != nil {
				return err
			}
			inv.Plan = plan
		}
		if err := s.insertInvoice(ctx, tx, inv); err != nil {
			return err
		}
		stored, err := s.getInvoice(ctx, tx, inv.ID)
		if err != nil {
			return err
		}
		result = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.RecordInvoiceIssued(string(result.Status), result.Amount.InexactFloat64())
	return result, nil
}

// GetInvoice returns a single invoice
func (s *SQLService) GetInvoice(ctx context.Context, id uuid.UUID) (result *Invoice, err error) {
	ctx, span := billingTracer.Start(ctx, "GetInvoice",
		trace.WithAttributes(attribute.String("invoice_id", id.String())))
	defer func() { finishSpan(span, err) }()

	return s.getInvoice(ctx, s.db, id)
}

// ListInvoices returns a page of a user's invoices, newest first
func (s *SQLService) ListInvoices(ctx context.Context, userID uuid.UUID, params ListInvoicesParams) (result *PaginatedResponse[*Invoice], err error) {
	ctx, span := billingTracer.Start(ctx, "ListInvoices",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer func() { finishSpan(span, err) }()

	params = params.Normalize()

	where := "i.user_id = ?"
	args := []any{userID}
	if params.Status != "" {
		status, err := ParseInvoiceStatus(params.Status)
		if err != nil {
			return nil, err
		}
		where += " AND i.status = ?"
		args = append(args, status)
	}

	var total int64
	countQuery := s.rebind(`SELECT COUNT(*) FROM invoices i WHERE ` + where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	query := s.rebind(`
		SELECT ` + invoiceColumns + `
		` + invoiceFrom + `
		WHERE ` + where + `
		ORDER BY i.issued_at DESC
		LIMIT ? OFFSET ?
	`)
	rows, err := s.db.QueryContext(ctx, query, append(args, params.Limit, params.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*Invoice, 0, params.Limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	span.SetAttributes(attribute.Int64("total", total), attribute.Int("count", len(invoices)))
	return NewPaginatedResponse(invoices, total, params.Page, params.Limit), nil
}

// PayInvoice marks an unpaid invoice as paid. Paying twice fails with a NotFoundError.
func (s *SQLService) PayInvoice(ctx context.Context, id uuid.UUID) (result *Invoice, err error) {
	ctx, span := billingTracer.Start(ctx, "PayInvoice",
		trace.WithAttributes(attribute.String("invoice_id", id.String())))
	defer func() { finishSpan(span, err) }()

	now := s.timestamp()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		query := s.rebind(`
			UPDATE invoices
			SET status = ?, paid_at = ?
			WHERE id = ? AND status <> ?
		`)
		res, err := tx.ExecContext(ctx, query, InvoiceStatusPaid, now, id, InvoiceStatusPaid)
		if err != nil {
			return fmt.Errorf("failed to pay invoice: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to pay invoice: %w", err)
		}
		if n == 0 {
			return &NotFoundError{Resource: "invoice", ID: id.String(), Reason: "not found or already paid"}
		}

		result, err = s.getInvoice(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recorder.RecordInvoicePaid()
	s.archive(ctx, result)
	return result, nil
}

// DeleteInvoice removes a draft invoice
func (s *SQLService) DeleteInvoice(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := billingTracer.Start(ctx, "DeleteInvoice",
		trace.WithAttributes(attribute.String("invoice_id", id.String())))
	defer func() { finishSpan(span, err) }()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			s.rebind(`DELETE FROM invoices WHERE id = ? AND status = ?`), id, InvoiceStatusDraft)
		if err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		if n > 0 {
			return nil
		}

		var status InvoiceStatus
		err = tx.QueryRowContext(ctx, s.rebind(`SELECT status FROM invoices WHERE id = ?`), id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Resource: "invoice", ID: id.String()}
		}
		if err != nil {
			return fmt.Errorf("failed to get invoice status: %w", err)
		}
		return &ValidationError{Field: "status", Message: fmt.Sprintf("only draft invoices can be deleted, invoice is %s", status)}
	})
}

// billPlan records the paid invoice for a subscription landing on a paid plan
func (s *SQLService) billPlan(ctx context.Context, tx *sql.Tx, sub *Subscription, now time.Time) (*Invoice, error) {
	info := sub.Plan.Info()
	if !info.IsPaid() {
		return nil, nil
	}

	plan := sub.Plan
	subID := sub.ID
	due := now.Add(SubscriptionPeriod)
	paidAt := now
	inv := &Invoice{
		ID:             uuid.New(),
		UserID:         sub.UserID,
		SubscriptionID: &subID,
		Plan:           &plan,
		PlanName:       plan,
		Amount:         info.PriceMonthly,
		Currency:       info.Currency,
		Status:         InvoiceStatusPaid,
		IssuedAt:       now,
		DueDate:        &due,
		PaidAt:         &paidAt,
		CreatedAt:      now,
	}
	if err := s.insertInvoice(ctx, tx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *SQLService) insertInvoice(ctx context.Context, q queryer, inv *Invoice) error {
	query := s.rebind(`
		INSERT INTO invoices (id, user_id, subscription_id, plan, amount, currency, status,
		                      issued_at, due_date, paid_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := q.ExecContext(ctx, query,
		inv.ID, inv.UserID, inv.SubscriptionID, inv.Plan, inv.Amount, inv.Currency, inv.Status,
		inv.IssuedAt, inv.DueDate, inv.PaidAt, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (s *SQLService) getInvoice(ctx context.Context, q queryer, id uuid.UUID) (*Invoice, error) {
	query := s.rebind(`
		SELECT ` + invoiceColumns + `
		` + invoiceFrom + `
		WHERE i.id = ?
	`)
	inv, err := scanInvoice(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "invoice", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

// subscriptionPlan returns the plan of a linked subscription, or nil when the link is orphaned
func (s *SQLService) subscriptionPlan(ctx context.Context, q queryer, subscriptionID, userID uuid.UUID) (*Plan, error) {
	var plan Plan
	var owner uuid.UUID
	err := q.QueryRowContext(ctx, s.rebind(`SELECT plan, user_id FROM subscriptions WHERE id = ?`), subscriptionID).
		Scan(&plan, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription plan: %w", err)
	}
	if owner != userID {
		return nil, &ValidationError{Field: "subscription_id", Message: "subscription belongs to another user"}
	}
	return &plan, nil
}

func scanInvoice(row rowScanner) (*Invoice, error) {
	inv := &Invoice{}
	var subID uuid.NullUUID
	err := row.Scan(
		&inv.ID, &inv.UserID, &subID, &inv.Plan, &inv.PlanName,
		&inv.Amount, &inv.Currency, &inv.Status, &inv.IssuedAt, &inv.DueDate, &inv.PaidAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if subID.Valid {
		inv.SubscriptionID = &subID.UUID
	}
	inv.Currency = strings.TrimSpace(inv.Currency)
	return inv, nil
}

func normalizeCurrency(currency string) (string, error) {
	if currency == "" {
		return DefaultCurrency, nil
	}
	c := strings.ToUpper(strings.TrimSpace(currency))
	if len(c) != 3 {
		return "", &ValidationError{Field: "currency", Message: "currency must be a 3-letter code"}
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", &ValidationError{Field: "currency", Message: "currency must be a 3-letter code"}
		}
	}
	return c, nil
}

// archive hands a paid invoice to the archiver. Failures are logged, never returned.
func (s *SQLService) archive(ctx context.Context, inv *Invoice) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveInvoice(ctx, inv); err != nil {
		observability.FromContext(ctx).
			WithError(err).
			WithField("invoice_id", inv.ID.String()).
			Warn("failed to archive paid invoice")
	}
}
