// internal/gateway/backends.go
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/sorpasso/config"
	"github.com/dalemusser/sorpasso/guard"
	"github.com/dalemusser/sorpasso/health"
	"github.com/dalemusser/sorpasso/notify"
	"github.com/dalemusser/sorpasso/ratelimit"
	"github.com/dalemusser/sorpasso/verify"
	"go.uber.org/zap"
)

// Backends holds everything the handlers depend on.
type Backends struct {
	// Limiter backs the contact rate limit.
	Limiter ratelimit.Store

	// IPLimiter backs the per-IP verification limit. It is always a local
	// Memory store.
	IPLimiter *ratelimit.Memory

	Resolver  verify.MXResolver
	Transport notify.Transport

	// Fallback is nil unless transport_fallback is set.
	Fallback notify.Transport

	// Sessions is nil when the admin pages are disabled.
	Sessions guard.SessionProvider

	redis  *ratelimit.Redis
	cancel context.CancelFunc
}

// Connect builds the backends described by s. Janitors started here stop
// when Close is called.
func Connect(ctx context.Context, s Settings, logger *zap.Logger) (*Backends, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bgCtx, cancel := context.WithCancel(context.Background())
	b := &Backends{cancel: cancel, IPLimiter: ratelimit.NewMemory()}
	b.IPLimiter.StartJanitor(bgCtx, verifyWindow)

	switch s.RateLimitStore {
	case StoreRedis:
		r, err := ratelimit.ConnectRedis(ctx, ratelimit.RedisConfig{URL: s.RedisURL, KeyPrefix: "sorpasso:contact:"})
		if err != nil {
			cancel()
			return nil, err
		}
		b.redis = r
		b.Limiter = r
		logger.Info("rate limiter using redis")
	default:
		m := ratelimit.NewMemory()
		if s.RateLimitPruneInterval > 0 {
			m.StartJanitor(bgCtx, s.RateLimitPruneInterval)
		}
		b.Limiter = m
		logger.Info("rate limiter using memory", zap.Duration("prune_interval", s.RateLimitPruneInterval))
	}

	switch s.DoHMode {
	case DoHWire:
		b.Resolver = verify.NewWireResolver(s.DoHURL, nil, s.DNSTimeout)
	default:
		b.Resolver = verify.NewJSONResolver(s.DoHURL, nil, s.DNSTimeout)
	}

	t, err := newTransport(s.Transport, s, logger)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Transport = t
	if s.TransportFallback != "" {
		if b.Fallback, err = newTransport(s.TransportFallback, s, logger); err != nil {
			_ = b.Close()
			return nil, err
		}
	}

	if s.AdminEnabled() {
		sessions, err := guard.NewJWTSessions(s.JWTSecret)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Sessions = sessions
	} else {
		logger.Warn("admin pages disabled: admin_email/auth_jwt_secret not set")
	}

	return b, nil
}

func newTransport(name string, s Settings, logger *zap.Logger) (notify.Transport, error) {
	switch name {
	case TransportResend:
		return notify.NewResend(notify.ResendConfig{
			APIKey:   s.ResendAPIKey,
			Endpoint: s.ResendEndpoint,
			Timeout:  s.TransportTimeout,
		})
	case TransportSMTP:
		return notify.NewSMTP(notify.SMTPConfig{
			Host:       s.SMTPHost,
			Port:       s.SMTPPort,
			Username:   s.SMTPUsername,
			Password:   s.SMTPPassword,
			UseSSL:     s.SMTPUseSSL,
			RequireTLS: s.SMTPRequireTLS,
			Timeout:    s.TransportTimeout,
		})
	case TransportLog:
		return notify.NewLog(logger), nil
	}
	return nil, fmt.Errorf("unknown transport %q", name)
}

// HealthChecks returns the readiness probes of the connected backends.
func (b *Backends) HealthChecks() map[string]health.Check {
	checks := map[string]health.Check{}
	if b.redis != nil {
		checks["redis"] = b.redis.Ping
	}
	return checks
}

// Close stops janitors and closes connections.
func (b *Backends) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	var errs []error
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ConnectFromConfig is the app.Hooks Connect hook.
func ConnectFromConfig(ctx context.Context, _ *config.CoreConfig, s Settings, logger *zap.Logger) (*Backends, error) {
	return Connect(ctx, s, logger)
}
