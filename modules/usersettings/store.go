// Package usersettings stores per-user settings grouped by module name and
// exposes them over HTTP.
//
// Settings are free-form JSON objects. A user has at most one object per
// module name; UpdateSettings merges module names, UpdateModuleSettings
// replaces one object entirely.
package usersettings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidUserID is returned for an empty user id.
	ErrInvalidUserID = errors.New("user_id cannot be empty")
	// ErrInvalidModuleName is returned for an empty module name.
	ErrInvalidModuleName = errors.New("module_name cannot be empty")
)

// Settings maps module names to their settings object.
type Settings map[string]map[string]any

// Store is the contract of user settings store modules. Other modules depend
// on it under the "user_settings_store" alias.
type Store interface {
	// Settings returns every settings object of the user, empty when none exist.
	Settings(ctx context.Context, userID string) (Settings, error)
	// ModuleSettings returns one settings object, empty when it does not exist.
	ModuleSettings(ctx context.Context, userID, moduleName string) (map[string]any, error)
	// UpdateSettings replaces the given module names and keeps the others.
	UpdateSettings(ctx context.Context, userID string, settings Settings) (Settings, error)
	// UpdateModuleSettings replaces one settings object.
	UpdateModuleSettings(ctx context.Context, userID, moduleName string, data map[string]any) (map[string]any, error)
	DeleteSettings(ctx context.Context, userID string) error
	DeleteModuleSettings(ctx context.Context, userID, moduleName string) error
	HasSettings(ctx context.Context, userID string) (bool, error)
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}
	return nil
}

func validateKey(userID, moduleName string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if strings.TrimSpace(moduleName) == "" {
		return ErrInvalidModuleName
	}
	return nil
}

func validateSettings(userID string, settings Settings) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	for name := range settings {
		if strings.TrimSpace(name) == "" {
			return ErrInvalidModuleName
		}
	}
	return nil
}

// encode stores nil objects as {} so reads never return null.
func encode(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return b, nil
}

func decode(b []byte) (map[string]any, error) {
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
