package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	t.Setenv("MODAI_TEST_SECRET", "s3cr3t")
	path := writeConfig(t, "config.yaml", `server:
  address: ":9000"
logging:
  level: "debug"
metrics:
  prometheus_enabled: true
  sinks:
    - type: "nop"
modules:
  user:
    class: "user.simple"
    module_dependencies:
      session: "session"
      user_store: "user_store"
  session:
    class: "session.jwt"
    config:
      jwt_secret: "${MODAI_TEST_SECRET}"
      jwt_expiration_hours: 12
  user_store:
    class: "userstore.inmemory"
  chat:
    class: "chat.openai"
    enabled: false
  health:
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"server.address", cfg.Server.Address, ":9000"},
		{"server.shutdown_timeout_seconds", cfg.Server.ShutdownTimeoutSeconds, 5},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"metrics.prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"session.class", cfg.Modules["session"].Class, "session.jwt"},
		{"session.jwt_secret", cfg.Modules["session"].Config["jwt_secret"], "s3cr3t"},
		{"user.deps", cfg.Modules["user"].Dependencies["user_store"], "user_store"},
		{"chat.enabled", cfg.Modules["chat"].IsEnabled(), false},
		{"user.enabled", cfg.Modules["user"].IsEnabled(), true},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}

	descs := cfg.ModuleDescriptors()
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"user", "session", "user_store", "chat", "health"}, names)
	assert.Equal(t, "", descs[4].Class, "null module entry decodes to an empty descriptor")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "config.yaml", `modules:
  health:
    class: "health.simple"
`)
	t.Setenv("K_SERVER__ADDRESS", ":7000")
	t.Setenv("K_MODULES__HEALTH__ENABLED", "false")
	t.Setenv("K_MODULES__EXTRA__CLASS", "health.simple")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.False(t, cfg.Modules["health"].IsEnabled())

	descs := cfg.ModuleDescriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "health", descs[0].Name)
	assert.Equal(t, "extra", descs[1].Name)
}

func TestLoad_JSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "modules": {
    "zeta": {"class": "health.simple"},
    "alpha": {"class": "health.simple", "module_dependencies": {"z": "zeta"}}
  }
}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	descs := cfg.ModuleDescriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "zeta", descs[0].Name)
	assert.Equal(t, "alpha", descs[1].Name)
	assert.Equal(t, map[string]string{"z": "zeta"}, descs[1].Dependencies)
}

func TestParse_SingleSnapshot(t *testing.T) {
	// The file on disk differs from the bytes handed to parse; only the
	// bytes may be used.
	path := writeConfig(t, "config.yaml", "modules:\n  stale:\n    class: health.simple\n")
	data := []byte(`server:
  address: ":9100"
modules:
  second:
    class: user.simple
  first:
    class: health.simple
`)
	cfg, err := parse(data, yaml.Parser(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Address)
	assert.NotContains(t, cfg.Modules, "stale")

	descs := cfg.ModuleDescriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "second", descs[0].Name)
	assert.Equal(t, "user.simple", descs[0].Class)
	assert.Equal(t, "first", descs[1].Name)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "config.toml", "a = 1"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "config.yaml", ""))
	assert.ErrorContains(t, err, "empty")

	_, err = Load(writeConfig(t, "config.yaml", "logging:\n  level: loud\n"))
	assert.ErrorContains(t, err, "logging.level")
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MODAI_TEST_KEY", "value")
	in := map[string]any{
		"exact":   "${MODAI_TEST_KEY}",
		"unset":   "${MODAI_TEST_UNSET_VARIABLE}",
		"partial": "prefix-${MODAI_TEST_KEY}",
		"list":    []any{"${MODAI_TEST_KEY}", 3},
		"nested":  map[string]any{"k": "${MODAI_TEST_KEY}"},
		"number":  42,
	}
	out := ExpandEnv(in).(map[string]any)
	assert.Equal(t, "value", out["exact"])
	assert.Equal(t, "${MODAI_TEST_UNSET_VARIABLE}", out["unset"])
	assert.Equal(t, "prefix-${MODAI_TEST_KEY}", out["partial"])
	assert.Equal(t, []any{"value", 3}, out["list"])
	assert.Equal(t, map[string]any{"k": "value"}, out["nested"])
	assert.Equal(t, 42, out["number"])
	assert.Equal(t, "${MODAI_TEST_KEY}", in["exact"], "input must not be modified")
}
