package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/modai/core/loader"
	"github.com/kilianp07/modai/core/metrics"
)

// EnvPrefix selects the environment variables overriding file values.
// K_SERVER__ADDRESS=:9000 overrides server.address.
const EnvPrefix = "K_"

type Config struct {
	Server  ServerConfig                 `json:"server"`
	Logging LoggingConfig                `json:"logging"`
	Metrics metrics.Config               `json:"metrics"`
	Modules map[string]loader.Descriptor `json:"modules"`

	moduleOrder []string
}

func Load(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	data, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("config file not found at %s: %w", path, err)
	}
	return parse(data, parser, path)
}

// parse builds the config from one snapshot of the file so that values and
// module declaration order always agree.
func parse(data []byte, parser koanf.Parser, path string) (*Config, error) {
	raw := koanf.New(".")
	if err := raw.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, err
	}
	if len(raw.Keys()) == 0 {
		return nil, fmt.Errorf("config file is empty or invalid: %s", path)
	}

	k := koanf.New(".")
	expanded, _ := ExpandEnv(raw.Raw()).(map[string]any)
	if err := k.Load(confmap.Provider(expanded, "."), nil); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	order, err := moduleOrder(data)
	if err != nil {
		return nil, fmt.Errorf("read module order: %w", err)
	}
	cfg.moduleOrder = order

	cfg.Server.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	return errors.Join(c.Server.Validate(), c.Logging.Validate(), validateMetrics(c.Metrics))
}

// ModuleDescriptors returns the module declarations in file order. Modules
// only introduced through environment overrides follow in name order.
func (c *Config) ModuleDescriptors() []loader.Descriptor {
	out := make([]loader.Descriptor, 0, len(c.Modules))
	seen := make(map[string]bool, len(c.Modules))
	add := func(name string) {
		d, ok := c.Modules[name]
		if !ok || seen[name] {
			return
		}
		seen[name] = true
		d.Name = name
		out = append(out, d)
	}
	for _, name := range c.moduleOrder {
		add(name)
	}
	rest := make([]string, 0, len(c.Modules))
	for name := range c.Modules {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		add(name)
	}
	return out
}

func validateMetrics(c metrics.Config) error {
	if c.PrometheusEnabled && c.PrometheusAddr == "" {
		return fmt.Errorf("metrics.prometheus_addr is required")
	}
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d].type is required", i)
		}
	}
	return nil
}
