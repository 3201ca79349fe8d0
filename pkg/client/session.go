package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Session is the identity the client acts for. It is produced upstream by
// whatever signed the user in; the client only carries it.
type Session struct {
	UserID uuid.UUID
	Token  string
}

// NewSession parses a user id and pairs it with a bearer token
func NewSession(userID, token string) (Session, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return Session{}, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	s := Session{UserID: id, Token: strings.TrimSpace(token)}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Validate reports whether the session can authenticate requests
func (s Session) Validate() error {
	if s.UserID == uuid.Nil {
		return errors.New("session user id is required")
	}
	if s.Token == "" {
		return errors.New("session token is required")
	}
	return nil
}
