package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/modai/core/module"
)

// InMemoryStore keeps users in process memory. Data is lost on restart.
type InMemoryStore struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
	creds   map[string]Credentials
	order   []string
	now     func() time.Time
}

// NewInMemory is the module constructor for userstore.inmemory.
func NewInMemory(module.Dependencies, map[string]any) (module.Module, error) {
	return NewInMemoryStore(), nil
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
		creds:   make(map[string]Credentials),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryStore) CreateUser(_ context.Context, email, fullName string) (User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return User{}, ErrEmailTaken
	}
	now := s.now()
	u := User{ID: uuid.NewString(), Email: email, FullName: fullName, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	s.order = append(s.order, u.ID)
	return u, nil
}

func (s *InMemoryStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *InMemoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *InMemoryStore) ListUsers(_ context.Context, limit, offset int) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.order) {
		return []User{}, nil
	}
	ids := s.order[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]User, len(ids))
	for i, id := range ids {
		out[i] = s.users[id]
	}
	return out, nil
}

func (s *InMemoryStore) UpdateUser(_ context.Context, id string, upd UserUpdate) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return User{}, err
		}
		if owner, ok := s.byEmail[email]; ok && owner != id {
			return User{}, ErrEmailTaken
		}
		delete(s.byEmail, u.Email)
		s.byEmail[email] = id
		u.Email = email
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	u.UpdatedAt = s.now()
	s.users[id] = u
	return u, nil
}

func (s *InMemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, u.Email)
	delete(s.creds, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) SetPassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	now := s.now()
	c, ok := s.creds[userID]
	if !ok {
		c = Credentials{UserID: userID, CreatedAt: now}
	}
	c.PasswordHash = passwordHash
	c.UpdatedAt = now
	s.creds[userID] = c
	return nil
}

func (s *InMemoryStore) Credentials(_ context.Context, userID string) (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[userID]
	if !ok {
		return Credentials{}, ErrNotFound
	}
	return c, nil
}
