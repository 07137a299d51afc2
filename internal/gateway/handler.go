// internal/gateway/handler.go
package gateway

import (
	"net/http"
	"time"

	"github.com/dalemusser/sorpasso/auth/apikey"
	"github.com/dalemusser/sorpasso/config"
	"github.com/dalemusser/sorpasso/guard"
	"github.com/dalemusser/sorpasso/health"
	"github.com/dalemusser/sorpasso/httputil"
	"github.com/dalemusser/sorpasso/metrics"
	"github.com/dalemusser/sorpasso/notify"
	"github.com/dalemusser/sorpasso/ratelimit"
	"github.com/dalemusser/sorpasso/router"
	"github.com/dalemusser/sorpasso/verify"
	"github.com/dalemusser/sorpasso/version"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServiceName identifies the service in health answers and logs.
const ServiceName = "sorpasso"

const verifyWindow = time.Minute

// BuildHandler wires the router, the domain handlers, health and metrics.
func BuildHandler(core *config.CoreConfig, s Settings, b *Backends, logger *zap.Logger) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	httputil.SetJSONLogger(logger)

	r := router.New(core, logger)

	health.Mount(r, ServiceName, b.HealthChecks(), logger)
	version.Mount(r, ServiceName)
	r.With(apikey.Require(s.MetricsToken, ServiceName, logger)).
		Method(http.MethodGet, "/metrics", metrics.Handler())

	verifier := verify.New(verify.Config{
		Resolver: b.Resolver,
		Timeout:  s.DNSTimeout,
		Logger:   logger.Named("verify"),
	})
	verifyHandler := verify.NewHandler(verifier, logger.Named("verify"))
	r.Group(func(r chi.Router) {
		// Over the limit the form still gets the fail-open answer.
		r.Use(ratelimit.Middleware(ratelimit.MiddlewareConfig{
			Store:     b.IPLimiter,
			Policy:    ratelimit.Policy{Max: s.VerifyRateLimit, Window: verifyWindow},
			Prefix:    "verify:",
			OnLimited: verifyHandler.Throttled,
			OnError: func(r *http.Request, err error) {
				logger.Warn("verify rate limiter failed; admitting", zap.Error(err))
			},
		}))
		verifyHandler.Mount(r)
	})

	notifier := notify.New(notify.Config{
		Transport: b.Transport,
		Fallback:  b.Fallback,
		Retry:     s.Retry,
		To:        s.NotifyTo,
		From:      s.NotifyFrom,
		FromName:  s.NotifyFromName,
		Limiter:   b.Limiter,
		Policy:    s.RateLimit,
		Timeout:   s.TransportTimeout,
		Logger:    logger.Named("notify"),
	})
	notify.NewHandler(notifier, logger.Named("notify")).Mount(r)

	g := guard.New(guard.Config{
		Sessions:   b.Sessions,
		AdminEmail: s.AdminEmail,
		Logger:     logger.Named("guard"),
	})
	guard.NewHandler(g, guard.NewLocales(s.SupportedLocales()...), logger.Named("guard")).Mount(r)

	fallback := ""
	if b.Fallback != nil {
		fallback = b.Fallback.Name()
	}
	logger.Info("routes mounted",
		zap.String("version", version.Get(ServiceName).Version),
		zap.String("transport", b.Transport.Name()),
		zap.String("transport_fallback", fallback),
		zap.String("ratelimit_store", s.RateLimitStore),
		zap.String("doh_mode", s.DoHMode),
		zap.Bool("admin_enabled", s.AdminEnabled()),
	)
	return r, nil
}
