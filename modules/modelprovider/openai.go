package modelprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/modai/core/module"
	"github.com/kilianp07/modai/infra/logger"
	"github.com/kilianp07/modai/modules/providerstore"
	"github.com/kilianp07/modai/modules/session"
)

const (
	openAITypeName       = "openai"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultTimeout       = 30 * time.Second
	apiKeyProperty       = "api_key"
)

// OpenAIConfig is the nested config of modelprovider.openai.
type OpenAIConfig struct {
	DefaultBaseURL string `json:"default_base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// OpenAIProviderRequest is the body of create and update calls.
type OpenAIProviderRequest struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// OpenAIProviderResponse is a stored OpenAI-compatible provider.
type OpenAIProviderResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url"`
	APIKey    string    `json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpenAIModule manages OpenAI-compatible providers and lists their models.
type OpenAIModule struct {
	sessions session.Manager
	store    providerstore.Store
	client   *http.Client
	baseURL  string
	log      logger.Logger
}

// NewOpenAI is the module constructor for modelprovider.openai. It requires
// the "session" and "provider_store" dependencies.
func NewOpenAI(deps module.Dependencies, conf map[string]any) (module.Module, error) {
	var c OpenAIConfig
	if err := module.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.DefaultBaseURL == "" {
		c.DefaultBaseURL = defaultOpenAIBaseURL
	}
	timeout := defaultTimeout
	if c.TimeoutSeconds > 0 {
		timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	sessions, err := module.Require[session.Manager](deps, "session")
	if err != nil {
		return nil, err
	}
	store, err := module.Require[providerstore.Store](deps, "provider_store")
	if err != nil {
		return nil, err
	}
	return &OpenAIModule{
		sessions: sessions,
		store:    store,
		client:   &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(c.DefaultBaseURL, "/"),
		log:      logger.New("modelprovider.openai"),
	}, nil
}

// TypeName implements Provider.
func (m *OpenAIModule) TypeName() string { return openAITypeName }

// RegisterRoutes mounts the provider management endpoints.
func (m *OpenAIModule) RegisterRoutes(r chi.Router) {
	r.Route("/api/models/providers/openai", func(r chi.Router) {
		r.Get("/", m.handleList)
		r.Post("/", m.handleCreate)
		r.Get("/{provider_id}", m.handleGet)
		r.Put("/{provider_id}", m.handleUpdate)
		r.Delete("/{provider_id}", m.handleDelete)
		r.Get("/{provider_id}/models", m.handleModels)
	})
}

// Providers implements Provider.
func (m *OpenAIModule) Providers(ctx context.Context) ([]Summary, error) {
	list, err := m.store.ListProviders(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(list))
	for _, p := range list {
		out = append(out, Summary{
			ID: p.ID, Type: openAITypeName, Name: p.Name, BaseURL: p.URL,
			CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
		})
	}
	return out, nil
}

// Models implements Provider by calling GET {base_url}/models.
func (m *OpenAIModule) Models(ctx context.Context, providerID string) ([]Model, error) {
	p, err := m.store.Provider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	key := apiKey(p.Properties)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.URL, "/")+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	res, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusUnauthorized {
		return nil, ErrUpstreamUnauthorized
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, res.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Data []Model `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode models: %v", ErrUpstream, err)
	}
	if payload.Data == nil {
		payload.Data = []Model{}
	}
	return payload.Data, nil
}

func (m *OpenAIModule) handleList(w http.ResponseWriter, r *http.Request) {
	if !authenticate(m.sessions, w, r) {
		return
	}
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	list, err := m.store.ListProviders(r.Context(), limit, offset)
	if err != nil {
		m.storeError(w, err)
		return
	}
	out := make([]OpenAIProviderResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (m *OpenAIModule) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !authenticate(m.sessions, w, r) {
		return
	}
	req, ok := m.decodeRequest(w, r)
	if !ok {
		return
	}
	p, err := m.store.AddProvider(r.Context(), req.Name, req.BaseURL, map[string]any{apiKeyProperty: req.APIKey})
	if err != nil {
		m.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(p))
}

func (m *OpenAIModule) handleGet(w http.ResponseWriter, r *http.Request) {
	if !authenticate(m.sessions, w, r) {
		return
	}
	p, err := m.store.Provider(r.Context(), chi.URLParam(r, "provider_id"))
	if err != nil {
		m.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p))
}

func (m *OpenAIModule) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !authenticate(m.sessions, w, r) {
		return
	}
	req, ok := m.decodeRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "provider_id")
	current, err := m.store.Provider(r.Context(), id)
	if err != nil {
		m.storeError(w, err)
		return
	}
	props := current.Properties
	props[apiKeyProperty] = req.APIKey
	p, err := m.store.UpdateProvider(r.Context(), id, req.Name, req.BaseURL, props)
	if err != nil {
		m.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p))
}

func (m *OpenAIModule) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !authenticate(m.sessions, w, r) {
		return
	}
	if err := m.store.DeleteProvider(r.Context(), chi.URLParam(r, "provider_id")); err != nil {
		m.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *OpenAIModule) handleModels(w http.ResponseWriter, r *http.Request) {
	if !authenticate(m.sessions, w, r) {
		return
	}
	models, err := m.Models(r.Context(), chi.URLParam(r, "provider_id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": models})
	case errors.Is(err, providerstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "Provider not found")
	case errors.Is(err, ErrMissingAPIKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUpstreamUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid API key")
	default:
		m.log.Errorf("list models: %v", err)
		writeError(w, http.StatusInternalServerError, "could not fetch models")
	}
}

func (m *OpenAIModule) decodeRequest(w http.ResponseWriter, r *http.Request) (OpenAIProviderRequest, bool) {
	var req OpenAIProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if strings.TrimSpace(req.BaseURL) == "" {
		req.BaseURL = m.baseURL
	}
	return req, true
}

func (m *OpenAIModule) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, providerstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "Provider not found")
	case errors.Is(err, providerstore.ErrNameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, providerstore.ErrInvalidProvider):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		m.log.Errorf("provider store: %v", err)
		writeError(w, http.StatusInternalServerError, "could not access providers")
	}
}

func toResponse(p providerstore.Provider) OpenAIProviderResponse {
	return OpenAIProviderResponse{
		ID: p.ID, Type: openAITypeName, Name: p.Name, BaseURL: p.URL,
		APIKey: apiKey(p.Properties), CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func apiKey(props map[string]any) string {
	s, _ := props[apiKeyProperty].(string)
	return s
}
