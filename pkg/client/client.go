package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every request
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the billing API
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("billing api: status %d: %s (%s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("billing api: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client is the billing API client
type Client struct {
	baseURL    string
	session    Session
	base       *http.Client
	httpClient *http.Client
	log        *logrus.Logger
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client the bearer transport wraps
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.base = c
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(log *logrus.Logger) Option {
	return func(client *Client) {
		client.log = log
	}
}

// New creates a client that authenticates every request with the session token
func New(baseURL string, session Session, opts ...Option) (*Client, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		base:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logrus.New()
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: session.Token, TokenType: "Bearer"})
	c.httpClient = oauth2.NewClient(ctx, src)
	c.httpClient.Timeout = c.base.Timeout

	return c, nil
}

// Session returns the identity the client acts for
func (c *Client) Session() Session {
	return c.session
}

// ListPlans returns the plan catalog
func (c *Client) ListPlans(ctx context.Context) ([]billing.PlanInfo, error) {
	var plans []billing.PlanInfo
	if err := c.doRequest(ctx, http.MethodGet, "/billing/plans", nil, &plans); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// GetPlan returns one catalog entry; the server answers free for unknown ids
func (c *Client) GetPlan(ctx context.Context, planID string) (*billing.PlanInfo, error) {
	var plan billing.PlanInfo
	if err := c.doRequest(ctx, http.MethodGet, "/billing/plans/"+url.PathEscape(planID), nil, &plan); err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &plan, nil
}

// CreateSubscription selects a plan for the user
func (c *Client) CreateSubscription(ctx context.Context, userID uuid.UUID, plan string) (*billing.SubscriptionWithPlan, error) {
	req := billing.CreateSubscriptionRequest{UserID: userID, Plan: plan}
	var sub billing.SubscriptionWithPlan
	if err := c.doRequest(ctx, http.MethodPost, "/billing/subscriptions", req, &sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return &sub, nil
}

// GetSubscription returns the user's subscription or the virtual free default
func (c *Client) GetSubscription(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := c.doRequest(ctx, http.MethodGet, "/billing/subscriptions/"+userID.String(), nil, &sub); err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

// UpdateSubscription applies a partial update
func (c *Client) UpdateSubscription(ctx context.Context, userID uuid.UUID, req *billing.UpdateSubscriptionRequest) (*billing.SubscriptionWithPlan, error) {
	var sub billing.SubscriptionWithPlan
	if err := c.doRequest(ctx, http.MethodPatch, "/billing/subscriptions/"+userID.String(), req, &sub); err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return &sub, nil
}

// CancelSubscription returns the user to the free plan
func (c *Client) CancelSubscription(ctx context.Context, userID uuid.UUID) (*billing.SubscriptionWithPlan, error) {
	var sub billing.SubscriptionWithPlan
	if err := c.doRequest(ctx, http.MethodPost, "/billing/subscriptions/"+userID.String()+"/cancel", nil, &sub); err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
	return &sub, nil
}

// CheckQuota returns the user's quota snapshot
func (c *Client) CheckQuota(ctx context.Context, userID uuid.UUID) (*billing.QuotaSnapshot, error) {
	var snapshot billing.QuotaSnapshot
	if err := c.doRequest(ctx, http.MethodGet, "/billing/quota/"+userID.String(), nil, &snapshot); err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	return &snapshot, nil
}

// CreateInvoice issues a manual invoice
func (c *Client) CreateInvoice(ctx context.Context, req *billing.CreateInvoiceRequest) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := c.doRequest(ctx, http.MethodPost, "/billing/invoices", req, &invoice); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &invoice, nil
}

// ListInvoices returns one page of the user's invoices
func (c *Client) ListInvoices(ctx context.Context, userID uuid.UUID, params billing.ListInvoicesParams) (*billing.PaginatedResponse[*billing.Invoice], error) {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.Limit != 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	path := "/billing/invoices/" + userID.String()
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page billing.PaginatedResponse[*billing.Invoice]
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return &page, nil
}

// ListAllInvoices follows pagination until every invoice has been read
func (c *Client) ListAllInvoices(ctx context.Context, userID uuid.UUID, status string) ([]*billing.Invoice, error) {
	var all []*billing.Invoice
	for page := 1; ; page++ {
		resp, err := c.ListInvoices(ctx, userID, billing.ListInvoicesParams{Page: page, Limit: billing.MaxLimit, Status: status})
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)
		if int64(page) >= resp.TotalPages || len(resp.Data) == 0 {
			return all, nil
		}
	}
}

// GetInvoice returns one invoice
func (c *Client) GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := c.doRequest(ctx, http.MethodGet, "/billing/invoice/"+id.String(), nil, &invoice); err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &invoice, nil
}

// PayInvoice marks an invoice as paid
func (c *Client) PayInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := c.doRequest(ctx, http.MethodPost, "/billing/invoice/"+id.String()+"/pay", nil, &invoice); err != nil {
		return nil, fmt.Errorf("pay invoice: %w", err)
	}
	return &invoice, nil
}

// DeleteInvoice removes a draft invoice
func (c *Client) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/billing/invoice/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("billing api call")

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Field = payload.Field
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
