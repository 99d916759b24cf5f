// Package providerstore persists model provider configurations: a named
// endpoint URL plus free-form properties such as the API key.
package providerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a provider does not exist.
	ErrNotFound = errors.New("provider not found")
	// ErrNameTaken is returned when another provider already uses the name.
	ErrNameTaken = errors.New("provider name already exists")
	// ErrInvalidProvider is returned for an empty name or URL.
	ErrInvalidProvider = errors.New("invalid provider")
)

// Provider is a stored model provider configuration.
type Provider struct {
	ID         string
	Name       string
	URL        string
	Properties map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is the contract of provider store modules. Provider modules depend on
// it under the "provider_store" alias.
type Store interface {
	// ListProviders returns providers in creation order. A limit <= 0 returns all.
	ListProviders(ctx context.Context, limit, offset int) ([]Provider, error)
	Provider(ctx context.Context, id string) (Provider, error)
	AddProvider(ctx context.Context, name, url string, properties map[string]any) (Provider, error)
	UpdateProvider(ctx context.Context, id, name, url string, properties map[string]any) (Provider, error)
	// DeleteProvider is idempotent.
	DeleteProvider(ctx context.Context, id string) error
}

func validate(name, url string) (string, string, error) {
	name, url = strings.TrimSpace(name), strings.TrimSpace(url)
	if name == "" {
		return "", "", fmt.Errorf("%w: name is required", ErrInvalidProvider)
	}
	if url == "" {
		return "", "", fmt.Errorf("%w: url is required", ErrInvalidProvider)
	}
	return name, url, nil
}

func encodeProperties(p map[string]any) ([]byte, error) {
	if p == nil {
		p = map[string]any{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}
	return b, nil
}

func decodeProperties(b []byte) (map[string]any, error) {
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
