package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPutObject struct {
	putFn func(ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error)
}

func (m *mockPutObject) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.putFn(ctx, in)
}

func paidInvoice() *billing.Invoice {
	paidAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	plan := billing.PlanPro
	return &billing.Invoice{
		ID:        uuid.MustParse("7d3f0a52-8f7e-4c1f-9a65-2b1b8c0f4e11"),
		UserID:    uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427"),
		Plan:      &plan,
		PlanName:  billing.PlanPro,
		Amount:    decimal.RequireFromString("29.99"),
		Currency:  "USD",
		Status:    billing.InvoiceStatusPaid,
		IssuedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		PaidAt:    &paidAt,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestS3Archiver_ObjectKey(t *testing.T) {
	a := newS3Archiver(nil, "bucket", "prod")
	assert.Equal(t,
		"prod/invoices/1b4e28ba-2fa1-11d2-883f-0016d3cca427/2026-03/7d3f0a52-8f7e-4c1f-9a65-2b1b8c0f4e11.json",
		a.ObjectKey(paidInvoice()))

	assert.Equal(t,
		"invoices/1b4e28ba-2fa1-11d2-883f-0016d3cca427/2026-03/7d3f0a52-8f7e-4c1f-9a65-2b1b8c0f4e11.json",
		newS3Archiver(nil, "bucket", "").ObjectKey(paidInvoice()))
}

func TestS3Archiver_ArchiveInvoice(t *testing.T) {
	var got *s3.PutObjectInput
	mock := &mockPutObject{putFn: func(_ context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		got = in
		return &s3.PutObjectOutput{}, nil
	}}

	a := newS3Archiver(mock, "billing-archive", "")
	require.NoError(t, a.ArchiveInvoice(context.Background(), paidInvoice()))

	require.NotNil(t, got)
	assert.Equal(t, "billing-archive", aws.ToString(got.Bucket))
	assert.Equal(t, "application/json", aws.ToString(got.ContentType))
	assert.Len(t, got.Metadata["checksum-sha256"], 64)
	assert.Equal(t, "paid", got.Metadata["invoice-status"])

	body, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "pro", doc["plan_name"])
}

func TestS3Archiver_ArchiveInvoice_Error(t *testing.T) {
	mock := &mockPutObject{putFn: func(context.Context, *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return nil, errors.New("access denied")
	}}

	err := newS3Archiver(mock, "b", "").ArchiveInvoice(context.Background(), paidInvoice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3Archiver_RequiresBucket(t *testing.T) {
	_, err := NewS3Archiver(context.Background(), Config{Region: "us-east-1"})
	assert.Error(t, err)
}

// The SDK client talks to an in-process S3 stand-in over path-style URLs.
func TestNewS3Archiver_PutsObject(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, data
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := NewS3Archiver(context.Background(), Config{
		Bucket:          "invoices",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	inv := paidInvoice()
	require.NoError(t, a.ArchiveInvoice(context.Background(), inv))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/invoices/"+a.ObjectKey(inv), path)
	assert.Contains(t, string(body), inv.ID.String())
}
