package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBillingService implements billing.Service for testing
type mockBillingService struct {
	upsertSubscriptionFunc func(ctx context.Context, userID uuid.UUID, plan string) (*billing.SubscriptionWithPlan, error)
	getSubscriptionFunc    func(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error)
	updateSubscriptionFunc func(ctx context.Context, userID uuid.UUID, req *billing.UpdateSubscriptionRequest) (*billing.SubscriptionWithPlan, error)
	cancelSubscriptionFunc func(ctx context.Context, userID uuid.UUID) (*billing.SubscriptionWithPlan, error)
	createInvoiceFunc      func(ctx context.Context, req *billing.CreateInvoiceRequest) (*billing.Invoice, error)
	getInvoiceFunc         func(ctx context.Context, id uuid.UUID) (*billing.Invoice, error)
	listInvoicesFunc       func(ctx context.Context, userID uuid.UUID, params billing.ListInvoicesParams) (*billing.PaginatedResponse[*billing.Invoice], error)
	payInvoiceFunc         func(ctx context.Context, id uuid.UUID) (*billing.Invoice, error)
	deleteInvoiceFunc      func(ctx context.Context, id uuid.UUID) error
	checkQuotaFunc         func(ctx context.Context, userID uuid.UUID) (*billing.QuotaSnapshot, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockBillingService) UpsertSubscription(ctx context.Context, userID uuid.UUID, plan string) (*billing.SubscriptionWithPlan, error) {
	if m.upsertSubscriptionFunc != nil {
		return m.upsertSubscriptionFunc(ctx, userID, plan)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) GetSubscription(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	if m.getSubscriptionFunc != nil {
		return m.getSubscriptionFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) UpdateSubscription(ctx context.Context, userID uuid.UUID, req *billing.UpdateSubscriptionRequest) (*billing.SubscriptionWithPlan, error) {
	if m.updateSubscriptionFunc != nil {
		return m.updateSubscriptionFunc(ctx, userID, req)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) CancelSubscription(ctx context.Context, userID uuid.UUID) (*billing.SubscriptionWithPlan, error) {
	if m.cancelSubscriptionFunc != nil {
		return m.cancelSubscriptionFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) CreateInvoice(ctx context.Context, req *billing.CreateInvoiceRequest) (*billing.Invoice, error) {
	if m.createInvoiceFunc != nil {
		return m.createInvoiceFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	if m.getInvoiceFunc != nil {
		return m.getInvoiceFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) ListInvoices(ctx context.Context, userID uuid.UUID, params billing.ListInvoicesParams) (*billing.PaginatedResponse[*billing.Invoice], error) {
	if m.listInvoicesFunc != nil {
		return m.listInvoicesFunc(ctx, userID, params)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) PayInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	if m.payInvoiceFunc != nil {
		return m.payInvoiceFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	if m.deleteInvoiceFunc != nil {
		return m.deleteInvoiceFunc(ctx, id)
	}
	return errNotImplemented
}

func (m *mockBillingService) CheckQuota(ctx context.Context, userID uuid.UUID) (*billing.QuotaSnapshot, error) {
	if m.checkQuotaFunc != nil {
		return m.checkQuotaFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func newTestSubscription(userID uuid.UUID, plan billing.Plan) *billing.SubscriptionWithPlan {
	info := plan.Info()
	now := time.Now().UTC()
	return &billing.SubscriptionWithPlan{
		Subscription: &billing.Subscription{
			ID:          uuid.New(),
			UserID:      userID,
			Plan:        plan,
			Status:      billing.SubscriptionStatusActive,
			StartedAt:   now,
			AutoRenew:   true,
			MaxProjects: info.MaxProjects,
			MaxTasks:    info.MaxTasks,
			CreatedAt:   now,
			UpdatedAt:   now,
			Source:      billing.SourceStored,
		},
		PlanInfo: info,
	}
}

// serve routes the request through a /billing subrouter so path variables resolve
func serve(handlers *BillingHandlers, req *http.Request) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	handlers.RegisterRoutes(router.PathPrefix("/billing").Subrouter())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestNewBillingHandlers(t *testing.T) {
	mockService := &mockBillingService{}
	handlers := NewBillingHandlers(mockService)

	assert.NotNil(t, handlers)
	assert.NotNil(t, handlers.billingService)
}

// TestBillingHandlers_RegisterRoutes verifies all routes are registered
func TestBillingHandlers_RegisterRoutes(t *testing.T) {
	handlers := NewBillingHandlers(&mockBillingService{})
	router := mux.NewRouter()
	handlers.RegisterRoutes(router.PathPrefix("/billing").Subrouter())

	id := uuid.New().String()
	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/billing/plans"},
		{"GET", "/billing/plans/pro"},
		{"POST", "/billing/subscriptions"},
		{"GET", "/billing/subscriptions/" + id},
		{"PATCH", "/billing/subscriptions/" + id},
		{"POST", "/billing/subscriptions/" + id + "/cancel"},
		{"GET", "/billing/quota/" + id},
		{"POST", "/billing/invoices"},
		{"GET", "/billing/invoices/" + id},
		{"GET", "/billing/invoice/" + id},
		{"POST", "/billing/invoice/" + id + "/pay"},
		{"DELETE", "/billing/invoice/" + id},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			var match mux.RouteMatch
			matched := router.Match(req, &match)
			assert.True(t, matched, "Route %s %s should be registered", tt.method, tt.path)
		})
	}
}

func TestListPlans(t *testing.T) {
	w := serve(NewBillingHandlers(&mockBillingService{}), httptest.NewRequest("GET", "/billing/plans", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var plans []map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&plans))
	require.Len(t, plans, 4)
	assert.Equal(t, "free", plans[0]["id"])
	assert.Equal(t, "enterprise", plans[3]["id"])
	assert.Equal(t, 29.99, plans[2]["price_monthly"])
}

func TestGetPlan(t *testing.T) {
	handlers := NewBillingHandlers(&mockBillingService{})

	t.Run("known plan", func(t *testing.T) {
		w := serve(handlers, httptest.NewRequest("GET", "/billing/plans/starter", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "starter", body["id"])
		assert.Equal(t, float64(10), body["max_projects"])
	})

	t.Run("unknown plan falls back to free", func(t *testing.T) {
		w := serve(handlers, httptest.NewRequest("GET", "/billing/plans/platinum", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "free", decodeError(t, w)["id"])
	})
}

// TestCreateSubscription_InvalidJSON tests with invalid JSON body
func TestCreateSubscription_InvalidJSON(t *testing.T) {
	handlers := NewBillingHandlers(&mockBillingService{})

	req := httptest.NewRequest("POST", "/billing/subscriptions", bytes.NewBufferString("invalid json"))
	w := serve(handlers, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSubscription_MissingFields(t *testing.T) {
	handlers := NewBillingHandlers(&mockBillingService{})

	req := httptest.NewRequest("POST", "/billing/subscriptions", bytes.NewBufferString(`{"plan":"pro"}`))
	w := serve(handlers, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "user_id")
}

func TestCreateSubscription_UnknownPlan(t *testing.T) {
	mockService := &mockBillingService{
		upsertSubscriptionFunc: func(_ context.Context, _ uuid.UUID, plan string) (*billing.SubscriptionWithPlan, error) {
			_, err := billing.ParsePlan(plan)
			return nil, err
		},
	}
	handlers := NewBillingHandlers(mockService)

	reqBody, _ := json.Marshal(billing.CreateSubscriptionRequest{UserID: uuid.New(), Plan: "bogus"})
	w := serve(handlers, httptest.NewRequest("POST", "/billing/subscriptions", bytes.NewBuffer(reqBody)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "plan", decodeError(t, w)["field"])
}

// TestCreateSubscription_ServiceError tests that internal failures are not leaked
func TestCreateSubscription_ServiceError(t *testing.T) {
	mockService := &mockBillingService{
		upsertSubscriptionFunc: func(context.Context, uuid.UUID, string) (*billing.SubscriptionWithPlan, error) {
			return nil, errors.New("pq: connection reset by peer")
		},
	}
	handlers := NewBillingHandlers(mockService)

	reqBody, _ := json.Marshal(billing.CreateSubscriptionRequest{UserID: uuid.New(), Plan: "pro"})
	w := serve(handlers, httptest.NewRequest("POST", "/billing/subscriptions", bytes.NewBuffer(reqBody)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeError(t, w)["error"])
}

// TestCreateSubscription_Success tests successful subscription creation
func TestCreateSubscription_Success(t *testing.T) {
	userID := uuid.New()
	mockService := &mockBillingService{
		upsertSubscriptionFunc: func(_ context.Context, id uuid.UUID, plan string) (*billing.SubscriptionWithPlan, error) {
			assert.Equal(t, userID, id)
			assert.Equal(t, "pro", plan)
			return newTestSubscription(id, billing.PlanPro), nil
		},
	}
	handlers := NewBillingHandlers(mockService)

	reqBody, _ := json.Marshal(billing.CreateSubscriptionRequest{UserID: userID, Plan: "pro"})
	w := serve(handlers, httptest.NewRequest("POST", "/billing/subscriptions", bytes.NewBuffer(reqBody)))

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "pro", body["plan"])
	assert.Equal(t, float64(50), body["max_projects"])
	planInfo, ok := body["plan_info"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Pro", planInfo["name"])
}

// TestGetSubscription_InvalidUserID tests with a malformed user id
func TestGetSubscription_InvalidUserID(t *testing.T) {
	handlers := NewBillingHandlers(&mockBillingService{})

	w := serve(handlers, httptest.NewRequest("GET", "/billing/subscriptions/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user_id", decodeError(t, w)["field"])
}

func TestGetSubscription_VirtualDefault(t *testing.T) {
	mockService := &mockBillingService{
		getSubscriptionFunc: func(_ context.Context, userID uuid.UUID) (*billing.Subscription, error) {
			return &billing.Subscription{
				UserID:      userID,
				Plan:        billing.PlanFree,
				Status:      billing.SubscriptionStatusActive,
				MaxProjects: 3,
				MaxTasks:    100,
				Source:      billing.SourceVirtualDefault,
			}, nil
		},
	}
	handlers := NewBillingHandlers(mockService)

	w := serve(handlers, httptest.NewRequest("GET", "/billing/subscriptions/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "free", body["plan"])
	assert.Equal(t, "virtual_default", body["source"])
	assert.Nil(t, body["expires_at"])
}

func TestUpdateSubscription(t *testing.T) {
	userID := uuid.New()
	mockService := &mockBillingService{
		updateSubscriptionFunc: func(_ context.Context, id uuid.UUID, req *billing.UpdateSubscriptionRequest) (*billing.SubscriptionWithPlan, error) {
			require.NotNil(t, req.Plan)
			assert.Equal(t, "starter", *req.Plan)
			assert.Nil(t, req.Status)
			require.NotNil(t, req.AutoRenew)
			assert.False(t, *req.AutoRenew)
			sub := newTestSubscription(id, billing.PlanStarter)
			sub.AutoRenew = false
			return sub, nil
		},
	}
	handlers := NewBillingHandlers(mockService)

	req := httptest.NewRequest("PATCH", "/billing/subscriptions/"+userID.String(),
		bytes.NewBufferString(`{"plan":"starter","auto_renew":false}`))
	w := serve(handlers, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "starter", body["plan"])
	assert.Equal(t, false, body["auto_renew"])
}

func TestUpdateSubscription_InvalidStatus(t *testing.T) {
	mockService := &mockBillingService{
		updateSubscriptionFunc: func(context.Context, uuid.UUID, *billing.UpdateSubscriptionRequest) (*billing.SubscriptionWithPlan, error) {
			return nil, &billing.ValidationError{Field: "status", Message: "status must be one of: active, cancelled"}
		},
	}
	handlers := NewBillingHandlers(mockService)

	req := httptest.NewRequest("PATCH", "/billing/subscriptions/"+uuid.NewString(), bytes.NewBufferString(`{"status":"paused"}`))
	w := serve(handlers, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "status", body["field"])
	assert.Contains(t, body["error"], "active, cancelled")
}

func TestCancelSubscription(t *testing.T) {
	mockService := &mockBillingService{
		cancelSubscriptionFunc: func(_ context.Context, id uuid.UUID) (*billing.SubscriptionWithPlan, error) {
			sub := newTestSubscription(id, billing.PlanFree)
			sub.AutoRenew = false
			return sub, nil
		},
	}
	handlers := NewBillingHandlers(mockService)

	w := serve(handlers, httptest.NewRequest("POST", "/billing/subscriptions/"+uuid.NewString()+"/cancel", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "free", body["plan"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, false, body["auto_renew"])
}

func TestCheckQuota(t *testing.T) {
	mockService := &mockBillingService{
		checkQuotaFunc: func(_ context.Context, userID uuid.UUID) (*billing.QuotaSnapshot, error) {
			return &billing.QuotaSnapshot{
				UserID:             userID,
				Plan:               billing.PlanFree,
				SubscriptionActive: false,
				Source:             billing.SourceVirtualDefault,
				Quotas:             billing.Quotas{MaxProjects: 3, MaxTasks: 100},
			}, nil
		},
	}
	handlers := NewBillingHandlers(mockService)

	w := serve(handlers, httptest.NewRequest("GET", "/billing/quota/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, false, body["subscription_active"])
	quotas := body["quotas"].(map[string]interface{})
	assert.Equal(t, float64(3), quotas["max_projects"])
	assert.Equal(t, float64(100), quotas["max_tasks"])
}

func TestCreateInvoice(t *testing.T) {
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		mockService := &mockBillingService{
			createInvoiceFunc: func(_ context.Context, req *billing.CreateInvoiceRequest) (*billing.Invoice, error) {
				assert.True(t, req.Amount.Equal(decimal.RequireFromString("12.50")))
				assert.Equal(t, "eur", req.Currency)
				return &billing.Invoice{
					ID:       uuid.New(),
					UserID:   req.UserID,
					PlanName: billing.PlanFree,
					Amount:   req.Amount,
					Currency: "EUR",
					Status:   billing.InvoiceStatusIssued,
				}, nil
			},
		}
		body := `{"user_id":"` + userID.String() + `","amount":12.50,"currency":"eur"}`
		w := serve(NewBillingHandlers(mockService), httptest.NewRequest("POST", "/billing/invoices", bytes.NewBufferString(body)))

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "EUR", resp["currency"])
		assert.Equal(t, "issued", resp["status"])
		assert.Equal(t, 12.5, resp["amount"])
	})

	t.Run("rejects unsupported status before reaching the service", func(t *testing.T) {
		body := `{"user_id":"` + userID.String() + `","amount":5,"status":"paid"}`
		w := serve(NewBillingHandlers(&mockBillingService{}), httptest.NewRequest("POST", "/billing/invoices", bytes.NewBufferString(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		details := decodeError(t, w)["details"].(map[string]interface{})
		assert.Contains(t, details, "status")
	})

	t.Run("non-positive amount", func(t *testing.T) {
		mockService := &mockBillingService{
			createInvoiceFunc: func(context.Context, *billing.CreateInvoiceRequest) (*billing.Invoice, error) {
				return nil, &billing.ValidationError{Field: "amount", Message: "amount must be greater than zero"}
			},
		}
		body := `{"user_id":"` + userID.String() + `","amount":0}`
		w := serve(NewBillingHandlers(mockService), httptest.NewRequest("POST", "/billing/invoices", bytes.NewBufferString(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "amount", decodeError(t, w)["field"])
	})
}

func TestListInvoices(t *testing.T) {
	userID := uuid.New()

	t.Run("passes pagination and filter", func(t *testing.T) {
		mockService := &mockBillingService{
			listInvoicesFunc: func(_ context.Context, id uuid.UUID, params billing.ListInvoicesParams) (*billing.PaginatedResponse[*billing.Invoice], error) {
				assert.Equal(t, userID, id)
				assert.Equal(t, 2, params.Page)
				assert.Equal(t, 5, params.Limit)
				assert.Equal(t, "paid", params.Status)
				return billing.NewPaginatedResponse([]*billing.Invoice{}, 7, params.Page, params.Limit), nil
			},
		}
		w := serve(NewBillingHandlers(mockService),
			httptest.NewRequest("GET", "/billing/invoices/"+userID.String()+"?page=2&limit=5&status=paid", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, float64(7), body["total"])
		assert.Equal(t, float64(2), body["total_pages"])
		assert.Equal(t, []interface{}{}, body["data"])
	})

	t.Run("defaults", func(t *testing.T) {
		mockService := &mockBillingService{
			listInvoicesFunc: func(_ context.Context, _ uuid.UUID, params billing.ListInvoicesParams) (*billing.PaginatedResponse[*billing.Invoice], error) {
				assert.Equal(t, billing.DefaultPage, params.Page)
				assert.Equal(t, billing.DefaultLimit, params.Limit)
				assert.Empty(t, params.Status)
				return billing.NewPaginatedResponse[*billing.Invoice](nil, 0, params.Page, params.Limit), nil
			},
		}
		w := serve(NewBillingHandlers(mockService), httptest.NewRequest("GET", "/billing/invoices/"+userID.String(), nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("malformed page", func(t *testing.T) {
		w := serve(NewBillingHandlers(&mockBillingService{}),
			httptest.NewRequest("GET", "/billing/invoices/"+userID.String()+"?page=abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "page", decodeError(t, w)["field"])
	})

	t.Run("invalid status filter", func(t *testing.T) {
		mockService := &mockBillingService{
			listInvoicesFunc: func(_ context.Context, _ uuid.UUID, params billing.ListInvoicesParams) (*billing.PaginatedResponse[*billing.Invoice], error) {
				_, err := billing.ParseInvoiceStatus(params.Status)
				return nil, err
			},
		}
		w := serve(NewBillingHandlers(mockService),
			httptest.NewRequest("GET", "/billing/invoices/"+userID.String()+"?status=void", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetInvoice_NotFound(t *testing.T) {
	mockService := &mockBillingService{
		getInvoiceFunc: func(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
			return nil, &billing.NotFoundError{Resource: "invoice", ID: id.String()}
		},
	}
	w := serve(NewBillingHandlers(mockService), httptest.NewRequest("GET", "/billing/invoice/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeError(t, w)["error"], "not found")
}

func TestPayInvoice(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		invoiceID := uuid.New()
		paidAt := time.Now().UTC()
		mockService := &mockBillingService{
			payInvoiceFunc: func(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
				return &billing.Invoice{ID: id, Status: billing.InvoiceStatusPaid, PaidAt: &paidAt, Amount: decimal.NewFromInt(10)}, nil
			},
		}
		w := serve(NewBillingHandlers(mockService), httptest.NewRequest("POST", "/billing/invoice/"+invoiceID.String()+"/pay", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "Invoice marked as paid", body["message"])
		assert.Equal(t, "paid", body["status"])
		assert.Equal(t, invoiceID.String(), body["id"])
		assert.Equal(t, float64(10), body["amount"])
		assert.NotNil(t, body["paid_at"])
		assert.NotContains(t, body, "invoice")
	})

	t.Run("already paid", func(t *testing.T) {
		mockService := &mockBillingService{
			payInvoiceFunc: func(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
				return nil, &billing.NotFoundError{Resource: "invoice", ID: id.String(), Reason: "not found or already paid"}
			},
		}
		w := serve(NewBillingHandlers(mockService), httptest.NewRequest("POST", "/billing/invoice/"+uuid.NewString()+"/pay", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, decodeError(t, w)["error"], "already paid")
	})
}

func TestDeleteInvoice(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "draft deleted", err: nil, wantStatus: http.StatusOK},
		{name: "missing", err: &billing.NotFoundError{Resource: "invoice"}, wantStatus: http.StatusNotFound},
		{name: "not a draft", err: &billing.ValidationError{Field: "status", Message: "only draft invoices can be deleted"}, wantStatus: http.StatusBadRequest},
		{name: "storage failure", err: errors.New("disk full"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &mockBillingService{
				deleteInvoiceFunc: func(context.Context, uuid.UUID) error { return tt.err },
			}
			w := serve(NewBillingHandlers(mockService), httptest.NewRequest("DELETE", "/billing/invoice/"+uuid.NewString(), nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.err == nil {
				body := decodeError(t, w)
				assert.Equal(t, "Invoice deleted", body["message"])
				assert.Len(t, body, 1)
			}
		})
	}
}
