// Package health exposes the liveness endpoint of the backend.
package health

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/modai/core/module"
)

// StatusHealthy is the only status reported today.
const StatusHealthy = "healthy"

// Module answers GET /api/v1/health.
type Module struct{}

// New builds the health module. It takes no dependencies nor configuration.
func New(module.Dependencies, map[string]any) (module.Module, error) {
	return &Module{}, nil
}

// RegisterRoutes mounts the health endpoint.
func (m *Module) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/health", m.handleHealth)
}

// Health returns the current health report.
func (m *Module) Health() map[string]string {
	return map[string]string{"status": StatusHealthy}
}

func (m *Module) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m.Health()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
