// health/health.go
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/sorpasso/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Check is a single health probe. It returns nil when the dependency is
// healthy. ctx is derived from the request and bounded by the check timeout.
type Check func(ctx context.Context) error

// Response is the JSON body of the health endpoint.
type Response struct {
	Status    string            `json:"status"`
	Service   string            `json:"service,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// DefaultTimeout bounds each check.
const DefaultTimeout = 2 * time.Second

// Handler runs checks concurrently on each request. With no checks it is a
// plain liveness probe answering {"status":"ok"}. Any failing check turns
// the answer into 503 with {"status":"error"} and the per-check results.
func Handler(service string, checks map[string]Check, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := Response{
			Status:    "ok",
			Service:   service,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}
		if len(checks) == 0 {
			httputil.WriteJSON(w, http.StatusOK, resp)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), DefaultTimeout)
		defer cancel()

		var (
			mu  sync.Mutex
			wg  sync.WaitGroup
			bad bool
		)
		resp.Checks = make(map[string]string, len(checks))
		for name, check := range checks {
			wg.Add(1)
			go func(name string, check Check) {
				defer wg.Done()
				result := "ok"
				if check != nil {
					if err := check(ctx); err != nil {
						result = "error: " + err.Error()
						logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
					}
				}
				mu.Lock()
				resp.Checks[name] = result
				if result != "ok" {
					bad = true
				}
				mu.Unlock()
			}(name, check)
		}
		wg.Wait()

		if bad {
			resp.Status = "error"
			httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	})
}

// Mount attaches GET /health to r.
//
//	health.Mount(r, "sorpasso", map[string]health.Check{
//	    "redis": store.Ping,
//	}, logger)
func Mount(r chi.Router, service string, checks map[string]Check, logger *zap.Logger) {
	r.Method(http.MethodGet, "/health", Handler(service, checks, logger))
}
