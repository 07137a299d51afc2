// app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/sorpasso/config"
	"github.com/dalemusser/sorpasso/logging"
	"github.com/dalemusser/sorpasso/metrics"
	"github.com/dalemusser/sorpasso/server"
	"github.com/dalemusser/sorpasso/version"
	"go.uber.org/zap"
)

// Hooks are the integration points an application provides to Run.
// C is the typed app config and D the bundle of connected backends.
type Hooks[C any, D any] struct {
	// Name labels the service in logs and build info.
	Name string

	// LoadConfig returns the core config and the validated app config.
	LoadConfig func(logger *zap.Logger) (*config.CoreConfig, C, error)

	// Connect builds stores, clients and transports.
	Connect func(ctx context.Context, core *config.CoreConfig, appCfg C, logger *zap.Logger) (D, error)

	// BuildHandler constructs the final http.Handler: router, middleware, routes.
	BuildHandler func(core *config.CoreConfig, appCfg C, backends D, logger *zap.Logger) (http.Handler, error)

	// Close releases what Connect acquired. Optional.
	Close func(backends D) error
}

// Run executes the startup sequence and blocks until shutdown:
//
//  1. Bootstrap logger
//  2. Load core + app config (Hooks.LoadConfig)
//  3. Build final logger from core config
//  4. Register default metrics
//  5. Connect backends (Hooks.Connect)
//  6. Wire shutdown signals to a context
//  7. Build the HTTP handler (Hooks.BuildHandler)
//  8. Serve until ctx is canceled, then close backends (Hooks.Close)
func Run[C any, D any](ctx context.Context, hooks Hooks[C, D]) error {
	bootstrap := logging.BootstrapLogger(hooks.Name)
	defer func() { _ = bootstrap.Sync() }()
	bootstrap.Info("bootstrap logger initialized")

	coreCfg, appCfg, err := hooks.LoadConfig(bootstrap)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.Build(logging.Config{
		Level:   coreCfg.LogLevel,
		Env:     coreCfg.Env,
		Service: hooks.Name,
		Version: version.Get(hooks.Name).Version,
	})
	if err != nil {
		bootstrap.Error("logger build failed", zap.Error(err))
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("logger initialized",
		zap.String("env", coreCfg.Env),
		zap.String("log_level", coreCfg.LogLevel),
	)

	metrics.RegisterDefault(logger)

	backends, err := hooks.Connect(ctx, coreCfg, appCfg, logger)
	if err != nil {
		logger.Error("backend connect failed", zap.Error(err))
		return fmt.Errorf("connect: %w", err)
	}
	if hooks.Close != nil {
		defer func() {
			if err := hooks.Close(backends); err != nil {
				logger.Warn("backend close failed", zap.Error(err))
			}
		}()
	}

	ctx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	handler, err := hooks.BuildHandler(coreCfg, appCfg, backends, logger)
	if err != nil {
		logger.Error("handler build failed", zap.Error(err))
		return fmt.Errorf("build handler: %w", err)
	}

	if err := server.ListenAndServeWithContext(ctx, coreCfg, handler, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
