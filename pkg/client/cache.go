package client

import (
	"context"
	"errors"
	"sync"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNoPendingChange is returned when a confirmation has nothing to confirm
var ErrNoPendingChange = errors.New("no plan change awaiting confirmation")

// BillingAPI is what the cache needs from the server
type BillingAPI interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error)
	UpdateSubscription(ctx context.Context, userID uuid.UUID, req *billing.UpdateSubscriptionRequest) (*billing.SubscriptionWithPlan, error)
	CancelSubscription(ctx context.Context, userID uuid.UUID) (*billing.SubscriptionWithPlan, error)
	ListAllInvoices(ctx context.Context, userID uuid.UUID, status string) ([]*billing.Invoice, error)
}

var _ BillingAPI = (*Client)(nil)

// BillingState is the locally mirrored billing data
type BillingState struct {
	CurrentPlan    billing.Plan
	PendingPlan    *billing.Plan
	Invoices       []*billing.Invoice
	InvoicesLoaded bool
	LastError      string
}

// Dialogs holds confirmation visibility. It never influences BillingState.
type Dialogs struct {
	ShowUpgradeConfirm bool
	ShowCancelConfirm  bool
}

// BillingCache mirrors the server's view of one user's billing. CurrentPlan
// only ever takes a value the server returned. Every successful mutation
// invalidates the invoice list. Calls are serialized and never retried.
type BillingCache struct {
	mu      sync.Mutex
	api     BillingAPI
	userID  uuid.UUID
	state   BillingState
	dialogs Dialogs
	log     *logrus.Logger
}

// NewBillingCache creates an empty cache for userID. The current plan starts
// as free until Refresh reads the server.
func NewBillingCache(api BillingAPI, userID uuid.UUID, log *logrus.Logger) *BillingCache {
	if log == nil {
		log = logrus.New()
	}
	return &BillingCache{
		api:    api,
		userID: userID,
		state:  BillingState{CurrentPlan: billing.PlanFree},
		log:    log,
	}
}

// Snapshot returns a copy of the cached state and dialog flags
func (c *BillingCache) Snapshot() (BillingState, Dialogs) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state
	if c.state.PendingPlan != nil {
		p := *c.state.PendingPlan
		state.PendingPlan = &p
	}
	if c.state.Invoices != nil {
		state.Invoices = append([]*billing.Invoice(nil), c.state.Invoices...)
	}
	return state, c.dialogs
}

// Refresh reloads the current plan from the server
func (c *BillingCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.api.GetSubscription(ctx, c.userID)
	if err != nil {
		return c.failLocked("refresh", err)
	}
	c.state.CurrentPlan = sub.Plan
	c.state.LastError = ""
	return nil
}

// RequestPlanChange stages plan and asks for confirmation. CurrentPlan is untouched.
func (c *BillingCache) RequestPlanChange(plan billing.Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.PendingPlan = &plan
	c.dialogs.ShowUpgradeConfirm = true
}

// DismissPlanChange drops the staged plan
func (c *BillingCache) DismissPlanChange() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.PendingPlan = nil
	c.dialogs.ShowUpgradeConfirm = false
}

// ConfirmPlanChange sends the staged plan to the server. On success the
// server's plan becomes current and the staged plan is cleared. On failure
// CurrentPlan is unchanged, the plan stays staged and LastError is set.
func (c *BillingCache) ConfirmPlanChange(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.PendingPlan == nil {
		return ErrNoPendingChange
	}

	plan := c.state.PendingPlan.String()
	sub, err := c.api.UpdateSubscription(ctx, c.userID, &billing.UpdateSubscriptionRequest{Plan: &plan})
	if err != nil {
		return c.failLocked("confirm plan change", err)
	}

	c.commitLocked(sub)
	c.state.PendingPlan = nil
	c.dialogs.ShowUpgradeConfirm = false
	return nil
}

// RequestCancel asks for cancellation confirmation
func (c *BillingCache) RequestCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialogs.ShowCancelConfirm = true
}

// DismissCancel hides the cancellation confirmation
func (c *BillingCache) DismissCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialogs.ShowCancelConfirm = false
}

// CancelSubscription cancels on the server with the same commit rules as
// ConfirmPlanChange.
func (c *BillingCache) CancelSubscription(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.api.CancelSubscription(ctx, c.userID)
	if err != nil {
		return c.failLocked("cancel subscription", err)
	}

	c.commitLocked(sub)
	c.dialogs.ShowCancelConfirm = false
	return nil
}

// LoadInvoices fetches the invoice list unless it is already loaded
func (c *BillingCache) LoadInvoices(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.InvoicesLoaded {
		return nil
	}

	invoices, err := c.api.ListAllInvoices(ctx, c.userID, "")
	if err != nil {
		return c.failLocked("load invoices", err)
	}
	c.state.Invoices = invoices
	c.state.InvoicesLoaded = true
	c.state.LastError = ""
	return nil
}

// commitLocked takes the server echo as truth. Caller holds c.mu.
func (c *BillingCache) commitLocked(sub *billing.SubscriptionWithPlan) {
	if sub != nil && sub.Subscription != nil {
		c.state.CurrentPlan = sub.Plan
	}
	c.state.InvoicesLoaded = false
	c.state.LastError = ""
}

// failLocked records err for display and returns it. Caller holds c.mu.
func (c *BillingCache) failLocked(op string, err error) error {
	c.state.LastError = userMessage(err)
	c.log.WithError(err).WithField("operation", op).Warn("billing call failed")
	return err
}

func userMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
