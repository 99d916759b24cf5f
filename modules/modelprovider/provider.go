// Package modelprovider exposes LLM provider configurations over HTTP and
// aggregates the models they offer behind a single listing.
package modelprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/modai/modules/session"
)

var (
	// ErrUpstreamUnauthorized is returned when the provider rejects the API key.
	ErrUpstreamUnauthorized = errors.New("provider rejected the api key")
	// ErrMissingAPIKey is returned when a provider has no api_key configured.
	ErrMissingAPIKey = errors.New("provider has no api key configured")
	// ErrUpstream wraps any other failure talking to a provider.
	ErrUpstream = errors.New("provider request failed")
)

// Model is one entry of an OpenAI-compatible model listing.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// Summary describes a configured provider without its credentials.
type Summary struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is implemented by provider type modules so the router can
// aggregate them.
type Provider interface {
	// TypeName is the prefix used in aggregated model ids.
	TypeName() string
	Providers(ctx context.Context) ([]Summary, error)
	Models(ctx context.Context, providerID string) ([]Model, error)
}

// authenticate rejects requests without a valid session.
func authenticate(sessions session.Manager, w http.ResponseWriter, r *http.Request) bool {
	if _, err := sessions.Validate(r); err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return false
	}
	return true
}

// pagination reads limit and offset. A missing limit is returned as 0.
func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil || limit < 0 || limit > maxPageLimit || (r.URL.Query().Has("limit") && limit == 0) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxPageLimit))
		return 0, 0, false
	}
	offset, err = queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return 0, 0, false
	}
	return limit, offset, true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
