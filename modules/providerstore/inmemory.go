package providerstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/modai/core/module"
)

type storedProvider struct {
	Provider
	properties []byte
}

// InMemoryStore keeps providers in process memory. Data is lost on restart.
type InMemoryStore struct {
	mu        sync.RWMutex
	providers map[string]storedProvider
	order     []string
	now       func() time.Time
}

// NewInMemory is the module constructor for providerstore.inmemory.
func NewInMemory(module.Dependencies, map[string]any) (module.Module, error) {
	return NewInMemoryStore(), nil
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		providers: make(map[string]storedProvider),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryStore) ListProviders(_ context.Context, limit, offset int) ([]Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.order) {
		return []Provider{}, nil
	}
	ids := s.order[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]Provider, 0, len(ids))
	for _, id := range ids {
		p, err := s.materialize(s.providers[id])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *InMemoryStore) Provider(_ context.Context, id string) (Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.providers[id]
	if !ok {
		return Provider{}, ErrNotFound
	}
	return s.materialize(sp)
}

func (s *InMemoryStore) AddProvider(_ context.Context, name, url string, properties map[string]any) (Provider, error) {
	name, url, err := validate(name, url)
	if err != nil {
		return Provider{}, err
	}
	props, err := encodeProperties(properties)
	if err != nil {
		return Provider{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTakenLocked(name, "") {
		return Provider{}, ErrNameTaken
	}
	now := s.now()
	sp := storedProvider{
		Provider:   Provider{ID: uuid.NewString(), Name: name, URL: url, CreatedAt: now, UpdatedAt: now},
		properties: props,
	}
	s.providers[sp.ID] = sp
	s.order = append(s.order, sp.ID)
	return s.materialize(sp)
}

func (s *InMemoryStore) UpdateProvider(_ context.Context, id, name, url string, properties map[string]any) (Provider, error) {
	name, url, err := validate(name, url)
	if err != nil {
		return Provider{}, err
	}
	props, err := encodeProperties(properties)
	if err != nil {
		return Provider{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.providers[id]
	if !ok {
		return Provider{}, ErrNotFound
	}
	if s.nameTakenLocked(name, id) {
		return Provider{}, ErrNameTaken
	}
	sp.Name, sp.URL, sp.properties, sp.UpdatedAt = name, url, props, s.now()
	s.providers[id] = sp
	return s.materialize(sp)
}

func (s *InMemoryStore) DeleteProvider(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[id]; !ok {
		return nil
	}
	delete(s.providers, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) nameTakenLocked(name, except string) bool {
	for id, sp := range s.providers {
		if id != except && sp.Name == name {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) materialize(sp storedProvider) (Provider, error) {
	props, err := decodeProperties(sp.properties)
	if err != nil {
		return Provider{}, err
	}
	p := sp.Provider
	p.Properties = props
	return p, nil
}
