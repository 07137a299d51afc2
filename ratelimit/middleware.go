// ratelimit/middleware.go
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
)

// KeyFunc extracts a key from an HTTP request for rate limiting.
type KeyFunc func(r *http.Request) string

// IPKeyFunc keys on the host part of RemoteAddr. Forwarding headers are
// not read here: behind a proxy, chi's RealIP middleware has already
// rewritten RemoteAddr, and a client-supplied X-Forwarded-For must not
// choose its own bucket.
func IPKeyFunc(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	Store  Store
	Policy Policy

	// KeyFunc defaults to IPKeyFunc. Keys are namespaced with Prefix.
	KeyFunc KeyFunc
	Prefix  string

	// OnLimited writes the rejection. Default: 429 with a plain-text body.
	OnLimited func(w http.ResponseWriter, r *http.Request)

	// OnError is called when the store fails. The request is admitted.
	OnError func(r *http.Request, err error)
}

// Middleware limits requests per key with the given store and policy.
// A Policy with Max <= 0 disables limiting.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.Store == nil || cfg.Policy.Max <= 0 || cfg.Policy.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPKeyFunc
	}
	if cfg.OnLimited == nil {
		retry := strconv.Itoa(int(cfg.Policy.Window.Seconds()))
		cfg.OnLimited = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Retry-After", retry)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("rate limit exceeded"))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Preflight never counts against the limit.
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ok, err := cfg.Policy.Admit(r.Context(), cfg.Store, cfg.Prefix+cfg.KeyFunc(r))
			if err != nil {
				if cfg.OnError != nil {
					cfg.OnError(r, err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				cfg.OnLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
