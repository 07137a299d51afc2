// config/appconfig.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AppKey defines an application configuration key. Keys are loaded with the
// same precedence as the core settings: flags > env > config files > defaults.
type AppKey struct {
	// Name is the key name (e.g., "notify_to", "redis_url"). It is used as-is
	// for config files and flags; the env var is SORPASSO_ + upper(Name).
	Name string

	// Default is the value used when nothing else sets the key.
	// Supported types: string, int, int64, bool, []string, time.Duration.
	Default any

	// Desc is a short description for --help output.
	Desc string
}

// AppConfigValues holds the loaded app configuration values, keyed by
// AppKey.Name.
type AppConfigValues map[string]any

// String returns a string value or empty string if not found/wrong type.
func (a AppConfigValues) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

// Int returns an int value or 0 if not found/wrong type.
// Handles int, int64 (TOML) and float64 (JSON) decodes.
func (a AppConfigValues) Int(key string) int {
	return int(a.Int64(key))
}

// Int64 returns an int64 value or 0 if not found/wrong type.
func (a AppConfigValues) Int64(key string) int64 {
	switch v := a[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		var n int64
		if _, err := fmt.Sscan(strings.TrimSpace(v), &n); err == nil {
			return n
		}
	}
	return 0
}

// Bool returns a bool value or false if not found/wrong type.
// Env vars arrive as strings, so "true"/"1" are accepted.
func (a AppConfigValues) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}

// StringSlice returns a []string value or nil if not found/wrong type.
func (a AppConfigValues) StringSlice(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return nil
}

// Duration parses a duration value from the config.
// Accepts:
//   - Duration strings: "10m", "1h30m", "90s"
//   - Numeric values: interpreted as seconds (e.g., 600 = 10 minutes)
//   - Plain numeric strings: "600" = 600 seconds
//
// Zero is allowed and means "disabled" to callers that support it.
// Returns def if the key is missing, empty, or invalid.
func (a AppConfigValues) Duration(key string, def time.Duration) time.Duration {
	raw := a[key]
	if raw == nil {
		return def
	}
	dur, err := parseDurationFlexible(raw, def, true)
	if err != nil {
		return def
	}
	return dur
}

// LogFields renders the values of keys as zap fields. Keys whose names
// look like credentials are redacted.
func (a AppConfigValues) LogFields(keys []AppKey) []zap.Field {
	fields := make([]zap.Field, 0, len(keys))
	for _, key := range keys {
		if isSecretKey(key.Name) {
			if a.String(key.Name) == "" {
				fields = append(fields, zap.String(key.Name, ""))
			} else {
				fields = append(fields, zap.String(key.Name, "[REDACTED]"))
			}
			continue
		}
		fields = append(fields, zap.Any(key.Name, a[key.Name]))
	}
	return fields
}

func isSecretKey(name string) bool {
	n := strings.ToLower(name)
	for _, s := range [...]string{"key", "secret", "password", "token"} {
		if strings.Contains(n, s) {
			return true
		}
	}
	return false
}

// registerAppFlags registers flags for app config keys on fs.
// Must be called before fs.Parse.
func registerAppFlags(fs *pflag.FlagSet, keys []AppKey) error {
	for _, key := range keys {
		if fs.Lookup(key.Name) != nil {
			return fmt.Errorf("config key %q conflicts with existing flag", key.Name)
		}

		switch d := key.Default.(type) {
		case string:
			fs.String(key.Name, d, key.Desc)
		case int:
			fs.Int(key.Name, d, key.Desc)
		case int64:
			fs.Int64(key.Name, d, key.Desc)
		case bool:
			fs.Bool(key.Name, d, key.Desc)
		case time.Duration:
			fs.String(key.Name, d.String(), key.Desc)
		case []string:
			// Lists accept a JSON array or a comma-separated string.
			fs.String(key.Name, "", key.Desc+" (JSON array or comma list)")
		default:
			return fmt.Errorf("config key %q has unsupported default type %T", key.Name, key.Default)
		}
	}
	return nil
}

// collectAppConfig reads every key from v after flags, env, files and
// defaults have been merged into it.
func collectAppConfig(v *viper.Viper, keys []AppKey) AppConfigValues {
	out := make(AppConfigValues, len(keys))
	for _, key := range keys {
		if _, ok := key.Default.([]string); ok {
			out[key.Name] = v.GetStringSlice(key.Name)
			continue
		}
		out[key.Name] = v.Get(key.Name)
	}
	return out
}
