// logging/logging.go
package logging

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvProd selects the JSON encoder.
const EnvProd = "prod"

// Config describes the service logger.
type Config struct {
	Level string
	Env   string

	// Service and Version are attached to every entry when set.
	Service string
	Version string

	// Output defaults to stderr.
	Output []string
}

// BootstrapLogger returns a development logger for startup, before config
// is loaded. It logs to stderr at info level.
func BootstrapLogger(service string) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if service != "" {
		cfg.InitialFields = map[string]any{"service": service}
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ValidLogLevels lists the accepted log_level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}

// IsValidLogLevel reports whether level is one of ValidLogLevels, ignoring case.
func IsValidLogLevel(level string) bool {
	level = strings.ToLower(level)
	for _, valid := range ValidLogLevels {
		if level == valid {
			return true
		}
	}
	return false
}

// Build constructs the service logger. Env "prod" logs JSON without
// stack traces on warnings; anything else uses the development encoder.
func Build(c Config) (*zap.Logger, error) {
	var cfg zap.Config
	if c.Env == EnvProd {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
		cfg.EncoderConfig.TimeKey = "ts"
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := strings.ToLower(strings.TrimSpace(c.Level))
	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: valid levels are %s", c.Level, strings.Join(ValidLogLevels, ", "))
	}

	fields := map[string]any{}
	if c.Service != "" {
		fields["service"] = c.Service
	}
	if c.Version != "" {
		fields["version"] = c.Version
	}
	if len(fields) > 0 {
		cfg.InitialFields = fields
	}

	cfg.OutputPaths = []string{"stderr"}
	if len(c.Output) > 0 {
		cfg.OutputPaths = c.Output
	}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// ForRequest returns logger annotated with the chi request ID of r.
func ForRequest(logger *zap.Logger, r *http.Request) *zap.Logger {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}
