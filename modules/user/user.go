// Package user exposes the profile of the authenticated user.
package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/modai/core/module"
	"github.com/kilianp07/modai/infra/logger"
	"github.com/kilianp07/modai/modules/session"
	"github.com/kilianp07/modai/modules/userstore"
)

// Module serves the current user resource.
type Module struct {
	sessions session.Manager
	users    userstore.Store
	log      logger.Logger
}

// New is the module constructor for user.simple. It requires the "session"
// and "user_store" dependencies.
func New(deps module.Dependencies, _ map[string]any) (module.Module, error) {
	sessions, err := module.Require[session.Manager](deps, "session")
	if err != nil {
		return nil, err
	}
	users, err := module.Require[userstore.Store](deps, "user_store")
	if err != nil {
		return nil, err
	}
	return &Module{sessions: sessions, users: users, log: logger.New("user")}, nil
}

// RegisterRoutes mounts the user endpoints.
func (m *Module) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/user", m.handleCurrentUser)
}

func (m *Module) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	s, err := m.sessions.Validate(r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	u, err := m.users.UserByID(r.Context(), s.UserID)
	if errors.Is(err, userstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		m.log.Errorf("load user %s: %v", s.UserID, err)
		writeError(w, http.StatusInternalServerError, "could not load user")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(u)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
