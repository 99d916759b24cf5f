package modelprovider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/modai/core/module"
	"github.com/kilianp07/modai/infra/logger"
	"github.com/kilianp07/modai/modules/session"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// ProvidersResponse is the paginated body of the aggregated provider listing.
type ProvidersResponse struct {
	Providers []Summary `json:"providers"`
	Total     int       `json:"total"`
	Limit     int       `json:"limit"`
	Offset    int       `json:"offset"`
}

// ModelsResponse is an OpenAI-compatible model listing.
type ModelsResponse struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// Router aggregates every provider module wired as a dependency.
type Router struct {
	sessions  session.Manager
	providers []Provider
	log       logger.Logger
}

// NewRouter is the module constructor for modelprovider.router. It requires
// "session"; every other dependency must implement Provider.
func NewRouter(deps module.Dependencies, _ map[string]any) (module.Module, error) {
	sessions, err := module.Require[session.Manager](deps, "session")
	if err != nil {
		return nil, err
	}
	var providers []Provider
	for _, alias := range deps.Aliases() {
		if alias == "session" {
			continue
		}
		p, err := module.Require[Provider](deps, alias)
		if err != nil {
			return nil, fmt.Errorf("dependency %q is not a model provider: %w", alias, err)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, errors.New("modelprovider.router needs at least one provider dependency")
	}
	return &Router{sessions: sessions, providers: providers, log: logger.New("modelprovider.router")}, nil
}

// RegisterRoutes mounts the aggregated endpoints.
func (rt *Router) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/models/providers", rt.handleProviders)
	r.Get("/api/v1/models", rt.handleModels)
}

func (rt *Router) handleProviders(w http.ResponseWriter, r *http.Request) {
	if !authenticate(rt.sessions, w, r) {
		return
	}
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultPageLimit
	}

	all := []Summary{}
	for _, p := range rt.providers {
		list, err := p.Providers(r.Context())
		if err != nil {
			rt.log.Warnf("list %s providers: %v", p.TypeName(), err)
			continue
		}
		all = append(all, list...)
	}
	page := []Summary{}
	if offset < len(all) {
		end := min(offset+limit, len(all))
		page = all[offset:end]
	}
	writeJSON(w, http.StatusOK, ProvidersResponse{Providers: page, Total: len(all), Limit: limit, Offset: offset})
}

// handleModels lists every model of every configured provider. Ids take the
// form type/provider-name/model-id; failing providers are skipped.
func (rt *Router) handleModels(w http.ResponseWriter, r *http.Request) {
	if !authenticate(rt.sessions, w, r) {
		return
	}
	data := []Model{}
	for _, p := range rt.providers {
		list, err := p.Providers(r.Context())
		if err != nil {
			rt.log.Warnf("list %s providers: %v", p.TypeName(), err)
			continue
		}
		for _, s := range list {
			models, err := p.Models(r.Context(), s.ID)
			if err != nil {
				rt.log.Warnf("list models of %s/%s: %v", p.TypeName(), s.Name, err)
				continue
			}
			for _, m := range models {
				m.ID = p.TypeName() + "/" + s.Name + "/" + m.ID
				if m.Object == "" {
					m.Object = "model"
				}
				data = append(data, m)
			}
		}
	}
	writeJSON(w, http.StatusOK, ModelsResponse{Object: "list", Data: data})
}
