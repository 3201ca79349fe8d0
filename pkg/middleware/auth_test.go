package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/auth"
	"github.com/AmiraaaF/Projet-Rust/pkg/contextkeys"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockVerifier struct {
	calls    int32
	verifyFn func(ctx context.Context, token string) (*auth.Identity, error)
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.verifyFn(ctx, token)
}

func okHandler(seen *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := auth.IdentityFromContext(r.Context()); ok {
			*seen = id.UserID.String()
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticator_Handler(t *testing.T) {
	userID := uuid.New()
	verifier := &mockVerifier{verifyFn: func(_ context.Context, token string) (*auth.Identity, error) {
		if token == "good" {
			return &auth.Identity{UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
		}
		return nil, auth.ErrInvalidToken
	}}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"rejected token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := NewAuthenticator(verifier, 0, 0).Handler(okHandler(&seen))

			req := httptest.NewRequest(http.MethodGet, "/billing/plans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, userID.String(), seen)
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuthenticator_SetsUserID(t *testing.T) {
	userID := uuid.New()
	verifier := &mockVerifier{verifyFn: func(context.Context, string) (*auth.Identity, error) {
		return &auth.Identity{UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
	}}

	var got string
	h := NewAuthenticator(verifier, 0, 0).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = contextkeys.GetUserID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, userID.String(), got)
}

func TestAuthenticator_CachesVerifiedTokens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier := &mockVerifier{verifyFn: func(context.Context, string) (*auth.Identity, error) {
		return &auth.Identity{UserID: uuid.New(), ExpiresAt: now.Add(time.Minute)}, nil
	}}
	a := NewAuthenticator(verifier, 16, time.Hour)
	a.now = func() time.Time { return now }

	var seen string
	h := a.Handler(okHandler(&seen))
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer cached")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&verifier.calls))

	// once the token itself expires the cache entry is not trusted
	a.now = func() time.Time { return now.Add(2 * time.Minute) }
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer cached")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, int32(2), atomic.LoadInt32(&verifier.calls))
}

func TestAuthenticator_DoesNotCacheFailures(t *testing.T) {
	verifier := &mockVerifier{verifyFn: func(context.Context, string) (*auth.Identity, error) {
		return nil, errors.New("boom")
	}}
	h := NewAuthenticator(verifier, 0, 0).Handler(http.NotFoundHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer x")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&verifier.calls))
}
