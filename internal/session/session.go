// Package session holds the per-request session handle. It is built by the
// HTTP middleware from the session cookie and passed explicitly to services,
// so nothing in the service layer reads ambient auth state.
package session

import (
	"time"

	"maderalink/internal/apperrors"
)

type Session struct {
	// ID identifies the browser session, signed in or not.
	ID          string
	UserID      int64
	Username    string
	AccessToken string
	Expiry      time.Time
}

// Anonymous returns a handle for a visitor that is not signed in.
func Anonymous(id string) *Session {
	return &Session{ID: id}
}

// Authenticated reports whether the session carries a usable access token.
func (s *Session) Authenticated() bool {
	if s == nil || s.AccessToken == "" || s.UserID == 0 {
		return false
	}
	return s.Expiry.IsZero() || time.Now().Before(s.Expiry)
}

// Token returns the bearer token to send, empty when not signed in.
func (s *Session) Token() string {
	if !s.Authenticated() {
		return ""
	}
	return s.AccessToken
}

// Owns is a UX guard for owner-only actions. The backend enforces the real
// permission check.
func (s *Session) Owns(ownerID int64) bool {
	return s.Authenticated() && ownerID != 0 && s.UserID == ownerID
}

// RequireUser returns ErrUnauthenticated when the session is not signed in.
func (s *Session) RequireUser() error {
	if !s.Authenticated() {
		return apperrors.ErrUnauthenticated
	}
	return nil
}
