package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/auth"
	"github.com/AmiraaaF/Projet-Rust/pkg/httputil"
	"github.com/AmiraaaF/Projet-Rust/pkg/observability"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultIdentityCacheSize = 4096
	defaultIdentityCacheTTL  = time.Minute
)

// Authenticator resolves the bearer token of every request into an auth.Identity.
// Verified tokens are cached by hash so repeated calls skip signature checks.
type Authenticator struct {
	verifier auth.TokenVerifier
	cache    *expirable.LRU[string, *auth.Identity]
	now      func() time.Time
}

// NewAuthenticator creates the middleware. Non-positive size or ttl use defaults.
func NewAuthenticator(verifier auth.TokenVerifier, cacheSize int, cacheTTL time.Duration) *Authenticator {
	if cacheSize <= 0 {
		cacheSize = defaultIdentityCacheSize
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultIdentityCacheTTL
	}
	return &Authenticator{
		verifier: verifier,
		cache:    expirable.NewLRU[string, *auth.Identity](cacheSize, nil, cacheTTL),
		now:      time.Now,
	}
}

// Handler rejects requests without a valid bearer token with 401
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			httputil.WriteUnauthorized(w, err.Error())
			return
		}

		identity, err := a.identify(r, token)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Debug("bearer token rejected")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := auth.WithIdentity(r.Context(), identity)
		ctx = observability.WithLogger(ctx, observability.FromContext(ctx).WithField("user_id", identity.UserID.String()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) identify(r *http.Request, token string) (*auth.Identity, error) {
	key := tokenKey(token)
	if identity, ok := a.cache.Get(key); ok {
		if a.now().Before(identity.ExpiresAt) {
			return identity, nil
		}
		a.cache.Remove(key)
	}

	identity, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		return nil, err
	}
	a.cache.Add(key, identity)
	return identity, nil
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
