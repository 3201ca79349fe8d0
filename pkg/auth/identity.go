package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/contextkeys"
	"github.com/google/uuid"
)

// ErrInvalidToken is wrapped by every verification failure
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller of a request
type Identity struct {
	UserID    uuid.UUID `json:"user_id"`
	Subject   string    `json:"subject"`
	Email     string    `json:"email,omitempty"`
	Issuer    string    `json:"issuer,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenVerifier validates a raw bearer token
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// WithIdentity stores the identity and its user id in ctx
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	ctx = contextkeys.WithIdentity(ctx, id)
	return contextkeys.WithUserID(ctx, id.UserID.String())
}

// IdentityFromContext returns the identity set by the authentication middleware
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextkeys.IdentityKey).(*Identity)
	return id, ok && id != nil
}

func subjectToUserID(subject string) (uuid.UUID, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return id, nil
}
