package usersettings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/modai/core/module"
	"github.com/kilianp07/modai/infra/logger"
	"github.com/kilianp07/modai/modules/session"
)

// SettingsResponse is the body of the all-settings endpoints.
type SettingsResponse struct {
	Settings Settings `json:"settings"`
}

// ModuleSettingsResponse is the body of the per-module endpoints.
type ModuleSettingsResponse struct {
	Settings map[string]any `json:"settings"`
}

// Module serves the settings of the authenticated user.
type Module struct {
	sessions session.Manager
	store    Store
	log      logger.Logger
}

// New is the module constructor for usersettings.simple. It requires the
// "session" and "user_settings_store" dependencies.
func New(deps module.Dependencies, _ map[string]any) (module.Module, error) {
	sessions, err := module.Require[session.Manager](deps, "session")
	if err != nil {
		return nil, err
	}
	store, err := module.Require[Store](deps, "user_settings_store")
	if err != nil {
		return nil, err
	}
	return &Module{sessions: sessions, store: store, log: logger.New("usersettings")}, nil
}

// RegisterRoutes mounts the settings endpoints.
func (m *Module) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/user/{user_id}/settings", func(r chi.Router) {
		r.Get("/", m.handleGetSettings)
		r.Put("/", m.handlePutSettings)
		r.Get("/{setting_type}", m.handleGetModuleSettings)
		r.Put("/{setting_type}", m.handlePutModuleSettings)
	})
}

// authorize validates the session and restricts access to the owner.
func (m *Module) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	s, err := m.sessions.Validate(r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return "", false
	}
	userID := chi.URLParam(r, "user_id")
	if s.UserID != userID {
		writeError(w, http.StatusForbidden, "You can only access your own data")
		return "", false
	}
	return userID, true
}

func (m *Module) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := m.authorize(w, r)
	if !ok {
		return
	}
	settings, err := m.store.Settings(r.Context(), userID)
	if err != nil {
		m.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
}

func (m *Module) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := m.authorize(w, r)
	if !ok {
		return
	}
	var req SettingsResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Settings == nil {
		writeError(w, http.StatusBadRequest, "settings must be an object of objects")
		return
	}
	settings, err := m.store.UpdateSettings(r.Context(), userID, req.Settings)
	if err != nil {
		m.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
}

func (m *Module) handleGetModuleSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := m.authorize(w, r)
	if !ok {
		return
	}
	data, err := m.store.ModuleSettings(r.Context(), userID, chi.URLParam(r, "setting_type"))
	if err != nil {
		m.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ModuleSettingsResponse{Settings: data})
}

func (m *Module) handlePutModuleSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := m.authorize(w, r)
	if !ok {
		return
	}
	var req ModuleSettingsResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Settings == nil {
		writeError(w, http.StatusBadRequest, "settings must be an object")
		return
	}
	data, err := m.store.UpdateModuleSettings(r.Context(), userID, chi.URLParam(r, "setting_type"), req.Settings)
	if err != nil {
		m.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ModuleSettingsResponse{Settings: data})
}

func (m *Module) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidUserID) || errors.Is(err, ErrInvalidModuleName) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.log.Errorf("settings store: %v", err)
	writeError(w, http.StatusInternalServerError, "could not access settings")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
