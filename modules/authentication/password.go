// Package authentication provides the password based login flow.
package authentication

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kilianp07/modai/core/module"
	"github.com/kilianp07/modai/infra/logger"
	"github.com/kilianp07/modai/modules/audit"
	"github.com/kilianp07/modai/modules/session"
	"github.com/kilianp07/modai/modules/userstore"
)

// Config is the nested config of authentication.password.
type Config struct {
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int `json:"bcrypt_cost"`
	// SignupEnabled exposes POST /api/v1/auth/signup; defaults to true.
	SignupEnabled *bool `json:"signup_enabled"`
}

// LoginRequest is the body of the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// PasswordModule authenticates users against bcrypt hashes kept in the user store.
type PasswordModule struct {
	sessions session.Manager
	users    userstore.Store
	cost     int
	signup   bool
	audit    audit.Publisher
	log      logger.Logger

	// dummyHash is compared against when the account cannot be found so
	// unknown emails cost the same bcrypt work as wrong passwords.
	dummyHash []byte
	compare   func(hash, password []byte) error
}

// NewPassword is the module constructor for authentication.password. It
// requires the "session" and "user_store" dependencies; "audit" is optional.
func NewPassword(deps module.Dependencies, conf map[string]any) (module.Module, error) {
	sessions, err := module.Require[session.Manager](deps, "session")
	if err != nil {
		return nil, err
	}
	users, err := module.Require[userstore.Store](deps, "user_store")
	if err != nil {
		return nil, err
	}
	var pub audit.Publisher
	if _, ok := deps.Get("audit"); ok {
		if pub, err = module.Require[audit.Publisher](deps, "audit"); err != nil {
			return nil, err
		}
	}
	var c Config
	if err := module.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt_cost out of range")
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), c.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &PasswordModule{
		sessions:  sessions,
		users:     users,
		cost:      c.BcryptCost,
		signup:    c.SignupEnabled == nil || *c.SignupEnabled,
		audit:     pub,
		log:       logger.New("authentication"),
		dummyHash: dummy,
		compare:   bcrypt.CompareHashAndPassword,
	}, nil
}

// RegisterRoutes mounts the authentication endpoints.
func (m *PasswordModule) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/auth/login", m.handleLogin)
	r.Post("/api/v1/auth/logout", m.handleLogout)
	if m.signup {
		r.Post("/api/v1/auth/signup", m.handleSignup)
	}
}

// HashPassword returns the bcrypt hash of password with the configured cost.
func (m *PasswordModule) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (m *PasswordModule) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}
	ctx := r.Context()
	email := strings.TrimSpace(req.Email)
	user, err := m.users.UserByEmail(ctx, email)
	if err != nil {
		_ = m.compare(m.dummyHash, []byte(req.Password))
		m.unauthorized(w, email, err)
		return
	}
	creds, err := m.users.Credentials(ctx, user.ID)
	if err != nil {
		_ = m.compare(m.dummyHash, []byte(req.Password))
		m.unauthorized(w, email, err)
		return
	}
	if err := m.compare([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		m.unauthorized(w, email, err)
		return
	}
	if err := m.sessions.Start(w, user.ID, map[string]any{"email": user.Email}); err != nil {
		m.log.Errorf("start session: %v", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "could not start session"})
		return
	}
	m.publish(audit.EventLogin, user.ID, user.Email)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Successfully logged in"})
}

func (m *PasswordModule) unauthorized(w http.ResponseWriter, email string, err error) {
	m.publish(audit.EventLoginFailed, "", email)
	switch {
	case errors.Is(err, userstore.ErrNotFound),
		errors.Is(err, userstore.ErrInvalidEmail),
		errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
	default:
		m.log.Errorf("login: %v", err)
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Invalid email or password"})
}

func (m *PasswordModule) handleLogout(w http.ResponseWriter, r *http.Request) {
	s, err := m.sessions.Validate(r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Invalid token"})
		return
	}
	m.sessions.End(w)
	m.publish(audit.EventLogout, s.UserID, "")
	writeJSON(w, http.StatusOK, messageResponse{Message: "Successfully logged out"})
}

func (m *PasswordModule) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "password is required"})
		return
	}
	hash, err := m.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid password"})
		return
	}
	ctx := r.Context()
	user, err := m.users.CreateUser(ctx, req.Email, req.FullName)
	switch {
	case errors.Is(err, userstore.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, messageResponse{Message: "email already registered"})
		return
	case errors.Is(err, userstore.ErrInvalidEmail):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid email"})
		return
	case err != nil:
		m.log.Errorf("signup: %v", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "could not create user"})
		return
	}
	if err := m.users.SetPassword(ctx, user.ID, hash); err != nil {
		m.log.Errorf("signup set password: %v", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "could not create user"})
		return
	}
	m.publish(audit.EventSignup, user.ID, user.Email)
	writeJSON(w, http.StatusCreated, user)
}

func (m *PasswordModule) publish(typ, userID, email string) {
	if m.audit == nil {
		return
	}
	m.audit.Publish(audit.Event{Type: typ, UserID: userID, Email: email})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
