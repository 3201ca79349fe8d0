package api

import (
	"errors"
	"net/http"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/AmiraaaF/Projet-Rust/pkg/httputil"
	"github.com/gorilla/mux"
)

// BillingHandlers handles billing-related HTTP requests
type BillingHandlers struct {
	billingService billing.Service
}

// NewBillingHandlers creates a new BillingHandlers
func NewBillingHandlers(billingService billing.Service) *BillingHandlers {
	return &BillingHandlers{
		billingService: billingService,
	}
}

// RegisterRoutes registers billing routes on a router already scoped to /billing
func (h *BillingHandlers) RegisterRoutes(router *mux.Router) {
	// Plans
	router.HandleFunc("/plans", h.ListPlans).Methods(http.MethodGet)
	router.HandleFunc("/plans/{plan_id}", h.GetPlan).Methods(http.MethodGet)

	// Subscriptions
	router.HandleFunc("/subscriptions", h.CreateSubscription).Methods(http.MethodPost)
	router.HandleFunc("/subscriptions/{user_id}", h.GetSubscription).Methods(http.MethodGet)
	router.HandleFunc("/subscriptions/{user_id}", h.UpdateSubscription).Methods(http.MethodPatch)
	router.HandleFunc("/subscriptions/{user_id}/cancel", h.CancelSubscription).Methods(http.MethodPost)
	router.HandleFunc("/quota/{user_id}", h.CheckQuota).Methods(http.MethodGet)

	// Invoices
	router.HandleFunc("/invoices", h.CreateInvoice).Methods(http.MethodPost)
	router.HandleFunc("/invoices/{user_id}", h.ListInvoices).Methods(http.MethodGet)
	router.HandleFunc("/invoice/{invoice_id}", h.GetInvoice).Methods(http.MethodGet)
	router.HandleFunc("/invoice/{invoice_id}/pay", h.PayInvoice).Methods(http.MethodPost)
	router.HandleFunc("/invoice/{invoice_id}", h.DeleteInvoice).Methods(http.MethodDelete)
}

// writeServiceError maps the billing error taxonomy onto status codes
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *billing.ValidationError
	if errors.As(err, &ve) {
		httputil.WriteFieldError(w, ve.Field, ve.Message)
		return
	}
	var nf *billing.NotFoundError
	if errors.As(err, &nf) {
		httputil.WriteNotFoundError(w, nf.Error())
		return
	}
	httputil.WriteInternalError(w, r, err)
}

// ListPlans returns the plan catalog
func (h *BillingHandlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteSuccess(w, billing.Plans())
}

// GetPlan returns one catalog entry. Unknown ids fall back to the free plan.
func (h *BillingHandlers) GetPlan(w http.ResponseWriter, r *http.Request) {
	info, _ := billing.LookupPlan(mux.Vars(r)["plan_id"])
	_ = httputil.WriteSuccess(w, info)
}

// CreateSubscription selects a plan for a user
func (h *BillingHandlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req billing.CreateSubscriptionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	sub, err := h.billingService.UpsertSubscription(r.Context(), req.UserID, req.Plan)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, sub)
}

// GetSubscription retrieves a subscription or the virtual free default
func (h *BillingHandlers) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathUUIDOrError(w, r, "user_id")
	if !ok {
		return
	}

	sub, err := h.billingService.GetSubscription(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, sub)
}

// UpdateSubscription applies a partial update
func (h *BillingHandlers) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathUUIDOrError(w, r, "user_id")
	if !ok {
		return
	}

	var req billing.UpdateSubscriptionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	sub, err := h.billingService.UpdateSubscription(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, sub)
}

// CancelSubscription returns the user to the free plan
func (h *BillingHandlers) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathUUIDOrError(w, r, "user_id")
	if !ok {
		return
	}

	sub, err := h.billingService.CancelSubscription(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, sub)
}

// CheckQuota returns the user's enforcement snapshot
func (h *BillingHandlers) CheckQuota(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathUUIDOrError(w, r, "user_id")
	if !ok {
		return
	}

	snapshot, err := h.billingService.CheckQuota(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, snapshot)
}

// CreateInvoice issues a manual invoice
func (h *BillingHandlers) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req billing.CreateInvoiceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	invoice, err := h.billingService.CreateInvoice(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, invoice)
}

// ListInvoices returns a page of the user's invoices, newest first
func (h *BillingHandlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathUUIDOrError(w, r, "user_id")
	if !ok {
		return
	}

	page, err := httputil.ParseQueryInt(r, "page", billing.DefaultPage)
	if err != nil {
		httputil.WriteFieldError(w, "page", err.Error())
		return
	}
	limit, err := httputil.ParseQueryInt(r, "limit", billing.DefaultLimit)
	if err != nil {
		httputil.WriteFieldError(w, "limit", err.Error())
		return
	}

	params := billing.ListInvoicesParams{
		Page:   page,
		Limit:  limit,
		Status: httputil.ParseQueryString(r, "status", ""),
	}

	result, err := h.billingService.ListInvoices(r.Context(), userID, params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, result)
}

// GetInvoice retrieves one invoice
func (h *BillingHandlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := httputil.ParsePathUUIDOrError(w, r, "invoice_id")
	if !ok {
		return
	}

	invoice, err := h.billingService.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, invoice)
}

// paidInvoiceResponse is the paid invoice with a confirmation message beside its fields
type paidInvoiceResponse struct {
	Message string `json:"message"`
	*billing.Invoice
}

// PayInvoice marks an unpaid invoice as paid
func (h *BillingHandlers) PayInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := httputil.ParsePathUUIDOrError(w, r, "invoice_id")
	if !ok {
		return
	}

	invoice, err := h.billingService.PayInvoice(r.Context(), invoiceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, paidInvoiceResponse{Message: "Invoice marked as paid", Invoice: invoice})
}

// DeleteInvoice removes a draft invoice
func (h *BillingHandlers) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := httputil.ParsePathUUIDOrError(w, r, "invoice_id")
	if !ok {
		return
	}

	if err := h.billingService.DeleteInvoice(r.Context(), invoiceID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteMessage(w, "Invoice deleted")
}
