package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/modai/core/factory"
	"github.com/kilianp07/modai/core/loader"
	"github.com/kilianp07/modai/core/module"
)

func TestBuiltinModulesRegistered(t *testing.T) {
	assert.Equal(t, []string{
		"audit.log",
		"authentication.password",
		"health.simple",
		"modelprovider.openai",
		"modelprovider.router",
		"providerstore.inmemory",
		"providerstore.sqlite",
		"session.jwt",
		"user.simple",
		"usersettings.inmemory",
		"usersettings.simple",
		"usersettings.sqlite",
		"userstore.inmemory",
		"userstore.sqlite",
	}, Modules.Names())
}

func TestRegisterModule_Duplicate(t *testing.T) {
	err := RegisterModule("health.simple", func(module.Dependencies, map[string]any) (module.Module, error) {
		return struct{}{}, nil
	})
	assert.Error(t, err)

	_, err = Modules.Lookup("chat.openai")
	assert.ErrorIs(t, err, factory.ErrUnknownType)
}

func TestBuiltinGraphLoads(t *testing.T) {
	descs := []loader.Descriptor{
		{
			Name:  "user",
			Class: "user.simple",
			Dependencies: map[string]string{
				"session":    "session",
				"user_store": "user_store",
			},
		},
		{
			Name:   "authentication",
			Class:  "authentication.password",
			Config: map[string]any{"bcrypt_cost": 4},
			Dependencies: map[string]string{
				"session":    "session",
				"user_store": "user_store",
			},
		},
		{Name: "session", Class: "session.jwt", Config: map[string]any{"jwt_secret": "secret"}},
		{Name: "user_store", Class: "userstore.inmemory"},
		{Name: "health", Class: "health.simple"},
	}
	l := loader.New(descs, Modules)
	require.NoError(t, l.Load())

	for _, o := range l.Outcomes() {
		assert.Equal(t, loader.StatusLoaded, o.Status, o.Name)
	}
	names := make([]string, 0)
	for _, e := range l.Modules() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"session", "user_store", "health", "user", "authentication"}, names)
	assert.Len(t, l.WebModules(), 3)
}

func TestSettingsAndModelProviderGraphLoads(t *testing.T) {
	descs := []loader.Descriptor{
		{
			Name:  "models",
			Class: "modelprovider.router",
			Dependencies: map[string]string{
				"session": "session",
				"openai":  "openai",
			},
		},
		{
			Name:  "openai",
			Class: "modelprovider.openai",
			Dependencies: map[string]string{
				"session":        "session",
				"provider_store": "provider_store",
			},
		},
		{Name: "provider_store", Class: "providerstore.inmemory"},
		{Name: "session", Class: "session.jwt", Config: map[string]any{"jwt_secret": "secret"}},
		{
			Name:  "user_settings",
			Class: "usersettings.simple",
			Dependencies: map[string]string{
				"session":             "session",
				"user_settings_store": "user_settings_store",
			},
		},
		{Name: "user_settings_store", Class: "usersettings.sqlite", Config: map[string]any{"path": ":memory:"}},
	}
	l := loader.New(descs, Modules)
	require.NoError(t, l.Load())

	names := make([]string, 0)
	for _, e := range l.Modules() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"provider_store", "session", "user_settings_store", "openai", "user_settings", "models"}, names)
	assert.Len(t, l.WebModules(), 3)
	for _, e := range l.Modules() {
		if c, ok := e.Module.(interface{ Close() error }); ok {
			assert.NoError(t, c.Close())
		}
	}
}
