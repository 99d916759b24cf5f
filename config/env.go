package config

import (
	"os"
	"regexp"
)

var envVarPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// ExpandEnv replaces every string value that is exactly ${NAME} with the
// environment variable NAME. Unset variables leave the value unchanged.
// Maps and lists are walked recursively.
func ExpandEnv(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = ExpandEnv(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = ExpandEnv(val)
		}
		return out
	case string:
		m := envVarPattern.FindStringSubmatch(t)
		if m == nil {
			return t
		}
		if val, ok := os.LookupEnv(m[1]); ok {
			return val
		}
		return t
	default:
		return v
	}
}
