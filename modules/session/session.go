// Package session issues and validates the cookie based user session.
package session

import (
	"errors"
	"net/http"
)

var (
	// ErrNoSession is returned when the request carries no session cookie.
	ErrNoSession = errors.New("no session token found in cookies")
	// ErrInvalidSession is returned for expired, tampered or malformed tokens.
	ErrInvalidSession = errors.New("invalid session")
)

// Session is the validated state attached to a request.
type Session struct {
	UserID     string
	Additional map[string]any
}

// Manager is the contract of session modules. Other modules depend on it
// under the "session" alias.
type Manager interface {
	// Start creates a session for userID and writes it to the response.
	Start(w http.ResponseWriter, userID string, extra map[string]any) error
	// Validate returns the session carried by the request.
	Validate(r *http.Request) (Session, error)
	// End invalidates the session on the client.
	End(w http.ResponseWriter)
}
