package usersettings

import (
	"context"
	"sync"

	"github.com/kilianp07/modai/core/module"
)

// InMemoryStore keeps settings as encoded JSON in process memory so callers
// never share maps with the store.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]map[string][]byte
}

// NewInMemory is the module constructor for usersettings.inmemory.
func NewInMemory(module.Dependencies, map[string]any) (module.Module, error) {
	return NewInMemoryStore(), nil
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]map[string][]byte)}
}

func (s *InMemoryStore) Settings(_ context.Context, userID string) (Settings, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settingsLocked(userID)
}

func (s *InMemoryStore) settingsLocked(userID string) (Settings, error) {
	out := Settings{}
	for name, raw := range s.users[userID] {
		data, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, nil
}

func (s *InMemoryStore) ModuleSettings(_ context.Context, userID, moduleName string) (map[string]any, error) {
	if err := validateKey(userID, moduleName); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.users[userID][moduleName]
	if !ok {
		return map[string]any{}, nil
	}
	return decode(raw)
}

func (s *InMemoryStore) UpdateSettings(_ context.Context, userID string, settings Settings) (Settings, error) {
	if err := validateSettings(userID, settings); err != nil {
		return nil, err
	}
	encoded := make(map[string][]byte, len(settings))
	for name, data := range settings {
		b, err := encode(data)
		if err != nil {
			return nil, err
		}
		encoded[name] = b
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(encoded) > 0 && s.users[userID] == nil {
		s.users[userID] = make(map[string][]byte)
	}
	for name, b := range encoded {
		s.users[userID][name] = b
	}
	return s.settingsLocked(userID)
}

func (s *InMemoryStore) UpdateModuleSettings(_ context.Context, userID, moduleName string, data map[string]any) (map[string]any, error) {
	if err := validateKey(userID, moduleName); err != nil {
		return nil, err
	}
	b, err := encode(data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.users[userID] == nil {
		s.users[userID] = make(map[string][]byte)
	}
	s.users[userID][moduleName] = b
	s.mu.Unlock()
	return decode(b)
}

func (s *InMemoryStore) DeleteSettings(_ context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.users, userID)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) DeleteModuleSettings(_ context.Context, userID, moduleName string) error {
	if err := validateKey(userID, moduleName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users[userID], moduleName)
	if len(s.users[userID]) == 0 {
		delete(s.users, userID)
	}
	return nil
}

func (s *InMemoryStore) HasSettings(_ context.Context, userID string) (bool, error) {
	if err := validateUserID(userID); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID]) > 0, nil
}
