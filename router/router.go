// router/router.go
package router

import (
	"github.com/dalemusser/sorpasso/config"
	"github.com/dalemusser/sorpasso/logging"
	"github.com/dalemusser/sorpasso/metrics"
	"github.com/dalemusser/sorpasso/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// New creates a chi.Router with the standard middleware stack:
//   - RequestID, RealIP
//   - Recoverer (panic → JSON 500)
//   - CORS from coreCfg, then an empty 200 for any remaining OPTIONS
//   - API security headers
//   - body size limit (MaxRequestBodyBytes)
//   - metrics and request logging
//   - NotFound / MethodNotAllowed JSON handlers
//
// Routes, health and metrics endpoints are mounted by the caller.
func New(coreCfg *config.CoreConfig, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(logger))

	// CORS answers preflights before anything else sees them.
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.AnswerOptions)
	r.Use(middleware.SecurityHeaders(middleware.APISecurityHeaders()))
	r.Use(middleware.LimitBodySize(coreCfg.MaxRequestBodyBytes))

	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger))

	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}
