package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const subscriptionColumns = `id, user_id, plan, status, started_at, expires_at, auto_renew,
		       max_projects, max_tasks, created_at, updated_at`

// UpsertSubscription moves a user onto plan. Paid plans are billed in the same transaction.
func (s *SQLService) UpsertSubscription(ctx context.Context, userID uuid.UUID, plan string) (result *SubscriptionWithPlan, err error) {
	ctx, span := billingTracer.Start(ctx, "UpsertSubscription",
		trace.WithAttributes(attribute.String("user_id", userID.String()), attribute.String("plan", plan)))
	defer func() { finishSpan(span, err) }()

	p, err := ParsePlan(plan)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	var stored *Subscription
	var invoice *Invoice
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.upsertSubscription(ctx, tx, newPlanState(userID, p, now)); err != nil {
			return err
		}
		sub, err := s.getSubscription(ctx, tx, userID)
		if err != nil {
			return err
		}
		stored = sub

		invoice, err = s.billPlan(ctx, tx, sub, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordChange("upsert", stored, invoice)
	return &SubscriptionWithPlan{Subscription: stored, PlanInfo: stored.Plan.Info()}, nil
}

// GetSubscription returns the stored subscription or a free virtual default
func (s *SQLService) GetSubscription(ctx context.Context, userID uuid.UUID) (result *Subscription, err error) {
	ctx, span := billingTracer.Start(ctx, "GetSubscription",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer func() { finishSpan(span, err) }()

	sub, err := s.getSubscription(ctx, s.db, userID)
	if errors.Is(err, ErrNotFound) {
		span.SetAttributes(attribute.Bool("virtual_default", true))
		return virtualDefault(userID, s.timestamp()), nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// UpdateSubscription applies a partial update. A plan in the request resets the
// subscription as UpsertSubscription would before status and auto_renew apply, and
// a resulting paid plan is billed again even when it did not change.
func (s *SQLService) UpdateSubscription(ctx context.Context, userID uuid.UUID, req *UpdateSubscriptionRequest) (result *SubscriptionWithPlan, err error) {
	ctx, span := billingTracer.Start(ctx, "UpdateSubscription",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer func() { finishSpan(span, err) }()

	if req == nil {
		req = &UpdateSubscriptionRequest{}
	}

	var plan *Plan
	if req.Plan != nil {
		p, err := ParsePlan(*req.Plan)
		if err != nil {
			return nil, err
		}
		plan = &p
		span.SetAttributes(attribute.String("plan", p.String()))
	}

	var status *SubscriptionStatus
	if req.Status != nil {
		st, err := ParseSubscriptionStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		status = &st
	}

	now := s.timestamp()
	var stored *Subscription
	var invoice *Invoice
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getSubscription(ctx, tx, userID)
		if errors.Is(err, ErrNotFound) {
			current = newPlanState(userID, PlanFree, now)
			current.AutoRenew = false
		} else if err != nil {
			return err
		}

		next := *current
		if plan != nil {
			next = *newPlanState(userID, *plan, now)
			next.ID = current.ID
			next.CreatedAt = current.CreatedAt
		}
		if status != nil {
			next.Status = *status
		}
		if req.AutoRenew != nil {
			next.AutoRenew = *req.AutoRenew
		}
		next.UpdatedAt = now

		if err := s.upsertSubscription(ctx, tx, &next); err != nil {
			return err
		}
		sub, err := s.getSubscription(ctx, tx, userID)
		if err != nil {
			return err
		}
		stored = sub

		if plan != nil {
			invoice, err = s.billPlan(ctx, tx, sub, now)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordChange("update", stored, invoice)
	return &SubscriptionWithPlan{Subscription: stored, PlanInfo: stored.Plan.Info()}, nil
}

// CancelSubscription downgrades the user to the free plan, creating the row if needed
func (s *SQLService) CancelSubscription(ctx context.Context, userID uuid.UUID) (result *SubscriptionWithPlan, err error) {
	ctx, span := billingTracer.Start(ctx, "CancelSubscription",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer func() { finishSpan(span, err) }()

	now := s.timestamp()
	var stored *Subscription
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		sub := newPlanState(userID, PlanFree, now)
		sub.AutoRenew = false
		if err := s.upsertSubscription(ctx, tx, sub); err != nil {
			return err
		}
		stored, err = s.getSubscription(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordChange("cancel", stored, nil)
	return &SubscriptionWithPlan{Subscription: stored, PlanInfo: stored.Plan.Info()}, nil
}

// newPlanState is the subscription row written when a user selects plan at now
func newPlanState(userID uuid.UUID, plan Plan, now time.Time) *Subscription {
	info := plan.Info()
	sub := &Subscription{
		ID:          uuid.New(),
		UserID:      userID,
		Plan:        plan,
		Status:      SubscriptionStatusActive,
		StartedAt:   now,
		AutoRenew:   true,
		MaxProjects: info.MaxProjects,
		MaxTasks:    info.MaxTasks,
		CreatedAt:   now,
		UpdatedAt:   now,
		Source:      SourceStored,
	}
	if info.IsPaid() {
		expires := now.Add(SubscriptionPeriod)
		sub.ExpiresAt = &expires
	}
	return sub
}

// virtualDefault is returned for users without a stored subscription
func virtualDefault(userID uuid.UUID, now time.Time) *Subscription {
	info := PlanFree.Info()
	return &Subscription{
		UserID:      userID,
		Plan:        PlanFree,
		Status:      SubscriptionStatusActive,
		StartedAt:   now,
		AutoRenew:   false,
		MaxProjects: info.MaxProjects,
		MaxTasks:    info.MaxTasks,
		CreatedAt:   now,
		UpdatedAt:   now,
		Source:      SourceVirtualDefault,
	}
}

func (s *SQLService) upsertSubscription(ctx context.Context, q queryer, sub *Subscription) error {
	query := s.rebind(`
		INSERT INTO subscriptions (id, user_id, plan, status, started_at, expires_at, auto_renew,
		                           max_projects, max_tasks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET plan = excluded.plan, status = excluded.status,
		    started_at = excluded.started_at, expires_at = excluded.expires_at,
		    auto_renew = excluded.auto_renew, max_projects = excluded.max_projects,
		    max_tasks = excluded.max_tasks, updated_at = excluded.updated_at
	`)
	_, err := q.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.Plan, sub.Status, sub.StartedAt, sub.ExpiresAt, sub.AutoRenew,
		sub.MaxProjects, sub.MaxTasks, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *SQLService) getSubscription(ctx context.Context, q queryer, userID uuid.UUID) (*Subscription, error) {
	query := s.rebind(`
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = ?
	`)
	sub, err := scanSubscription(q.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "subscription", ID: userID.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	sub := &Subscription{Source: SourceStored}
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.Plan, &sub.Status, &sub.StartedAt, &sub.ExpiresAt,
		&sub.AutoRenew, &sub.MaxProjects, &sub.MaxTasks, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SQLService) recordChange(operation string, sub *Subscription, invoice *Invoice) {
	s.recorder.RecordSubscriptionChange(operation, sub.Plan.String())
	if invoice != nil {
		s.recorder.RecordInvoiceIssued(string(invoice.Status), invoice.Amount.InexactFloat64())
	}
}
