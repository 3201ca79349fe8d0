package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// ParseSubscriptionStatus validates a caller-supplied subscription status
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch st := SubscriptionStatus(s); st {
	case SubscriptionStatusActive, SubscriptionStatusCancelled:
		return st, nil
	default:
		return "", &ValidationError{Field: "status", Message: "status must be one of: active, cancelled"}
	}
}

// Source tells whether a read came from storage or was synthesized
type Source string

const (
	SourceStored         Source = "stored"
	SourceVirtualDefault Source = "virtual_default"
)

// SubscriptionPeriod is the billing period of paid plans
const SubscriptionPeriod = 30 * 24 * time.Hour

// Subscription is the single per-user plan record
type Subscription struct {
	ID          uuid.UUID          `json:"id"`
	UserID      uuid.UUID          `json:"user_id"`
	Plan        Plan               `json:"plan"`
	Status      SubscriptionStatus `json:"status"`
	StartedAt   time.Time          `json:"started_at"`
	ExpiresAt   *time.Time         `json:"expires_at"`
	AutoRenew   bool               `json:"auto_renew"`
	MaxProjects int                `json:"max_projects"`
	MaxTasks    int                `json:"max_tasks"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Source      Source             `json:"source"`
}

// IsVirtual reports whether the subscription was synthesized rather than read from storage
func (s *Subscription) IsVirtual() bool {
	return s.Source == SourceVirtualDefault
}

// SubscriptionWithPlan is a subscription together with its plan metadata
type SubscriptionWithPlan struct {
	*Subscription
	PlanInfo PlanInfo `json:"plan_info"`
}

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusIssued  InvoiceStatus = "issued"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// ParseInvoiceStatus validates an invoice status filter or request value
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch st := InvoiceStatus(s); st {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusOverdue:
		return st, nil
	default:
		return "", &ValidationError{Field: "status", Message: "status must be one of: draft, issued, paid, overdue"}
	}
}

// Invoice is a billing record for one charge
type Invoice struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	SubscriptionID *uuid.UUID      `json:"subscription_id,omitempty"`
	Plan           *Plan           `json:"plan,omitempty"`
	PlanName       Plan            `json:"plan_name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         InvoiceStatus   `json:"status"`
	IssuedAt       time.Time       `json:"issued_at"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CreateInvoiceRequest represents a request to issue an invoice manually
type CreateInvoiceRequest struct {
	UserID         uuid.UUID       `json:"user_id" validate:"required"`
	SubscriptionID *uuid.UUID      `json:"subscription_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	Status         string          `json:"status,omitempty" validate:"omitempty,oneof=draft issued"`
}

// CreateSubscriptionRequest represents a request to select a plan
type CreateSubscriptionRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Plan   string    `json:"plan" validate:"required"`
}

// UpdateSubscriptionRequest represents a partial subscription update.
// Nil fields are left unchanged.
type UpdateSubscriptionRequest struct {
	Plan      *string `json:"plan,omitempty"`
	Status    *string `json:"status,omitempty"`
	AutoRenew *bool   `json:"auto_renew,omitempty"`
}

// Quotas holds resource limits
type Quotas struct {
	MaxProjects int `json:"max_projects"`
	MaxTasks    int `json:"max_tasks"`
}

// QuotaSnapshot is the derived enforcement view of a user's limits
type QuotaSnapshot struct {
	UserID             uuid.UUID `json:"user_id"`
	Plan               Plan      `json:"plan"`
	SubscriptionActive bool      `json:"subscription_active"`
	Source             Source    `json:"source"`
	Quotas             Quotas    `json:"quotas"`
}

// AllowsProjects reports whether a user with count projects may create another
func (q *QuotaSnapshot) AllowsProjects(count int) bool {
	return q.SubscriptionActive && (q.Quotas.MaxProjects == Unlimited || count < q.Quotas.MaxProjects)
}

// AllowsTasks reports whether a user with count tasks may create another
func (q *QuotaSnapshot) AllowsTasks(count int) bool {
	return q.SubscriptionActive && (q.Quotas.MaxTasks == Unlimited || count < q.Quotas.MaxTasks)
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListInvoicesParams controls invoice pagination and filtering
type ListInvoicesParams struct {
	Page   int
	Limit  int
	Status string
}

// Normalize applies pagination defaults and bounds
func (p ListInvoicesParams) Normalize() ListInvoicesParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	switch {
	case p.Limit == 0:
		p.Limit = DefaultLimit
	case p.Limit < 1:
		p.Limit = 1
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset of the page
func (p ListInvoicesParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PaginatedResponse is a page of results
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"total_pages"`
}

// NewPaginatedResponse builds a page and computes the page count
func NewPaginatedResponse[T any](data []T, total int64, page, limit int) *PaginatedResponse[T] {
	if data == nil {
		data = []T{}
	}
	var pages int64
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return &PaginatedResponse[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pages,
	}
}

// Service defines the interface for billing operations
type Service interface {
	// Subscription management
	UpsertSubscription(ctx context.Context, userID uuid.UUID, plan string) (*SubscriptionWithPlan, error)
	GetSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	UpdateSubscription(ctx context.Context, userID uuid.UUID, req *UpdateSubscriptionRequest) (*SubscriptionWithPlan, error)
	CancelSubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionWithPlan, error)

	// Invoice management
	CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, userID uuid.UUID, params ListInvoicesParams) (*PaginatedResponse[*Invoice], error)
	PayInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	DeleteInvoice(ctx context.Context, id uuid.UUID) error

	// Quotas
	CheckQuota(ctx context.Context, userID uuid.UUID) (*QuotaSnapshot, error)
}
