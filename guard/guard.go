// guard/guard.go
package guard

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Decision is the result of resolving a navigation.
type Decision struct {
	// Route is the page shown when Redirect is empty.
	Route Route

	// Redirect is the path to navigate to instead, if any.
	Redirect string
}

// Admitted reports whether the navigation proceeds to Route.
func (d Decision) Admitted() bool { return d.Redirect == "" }

// Config configures a Guard.
type Config struct {
	Routes   Table
	Sessions SessionProvider

	// AdminEmail is the only identity admitted to protected routes.
	AdminEmail string

	Logger *zap.Logger
}

// Guard resolves navigations against a route table.
type Guard struct {
	routes   Table
	sessions SessionProvider
	admin    string
	logger   *zap.Logger
}

// New creates a Guard. Without Routes the site table is used.
func New(cfg Config) *Guard {
	if cfg.Routes == nil {
		cfg.Routes = SiteRoutes
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Guard{
		routes:   cfg.Routes,
		sessions: cfg.Sessions,
		admin:    strings.TrimSpace(cfg.AdminEmail),
		logger:   cfg.Logger,
	}
}

// Routes returns the guard's route table.
func (g *Guard) Routes() Table { return g.routes }

// Resolve decides where a navigation to path ends up. Unknown paths
// redirect home; protected paths redirect to the login page unless the
// session belongs to the administrator. Session errors deny.
func (g *Guard) Resolve(ctx context.Context, r *http.Request, path string) Decision {
	route, ok := g.routes.Lookup(path)
	if !ok {
		home, _ := g.routes.Lookup(PathHome)
		return Decision{Route: home, Redirect: PathHome}
	}
	if !route.Protected {
		return Decision{Route: route}
	}

	if g.isAdmin(ctx, r) {
		return Decision{Route: route}
	}
	login, _ := g.routes.Lookup(PathLogin)
	return Decision{Route: login, Redirect: PathLogin}
}

func (g *Guard) isAdmin(ctx context.Context, r *http.Request) bool {
	if g.sessions == nil || g.admin == "" {
		return false
	}
	s, err := g.sessions.Session(ctx, r)
	if err != nil {
		g.logger.Warn("session lookup failed", zap.Error(err))
		return false
	}
	if s == nil {
		return false
	}
	return s.Email == g.admin
}
