// guard/handler.go
package guard

import (
	"net/http"

	"github.com/dalemusser/sorpasso/httputil"
	"github.com/dalemusser/sorpasso/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Navigation is the JSON answer of GET /navigate.
type Navigation struct {
	To       string `json:"to"`
	Page     string `json:"page"`
	Name     string `json:"name"`
	Redirect string `json:"redirect,omitempty"`
	Locale   string `json:"locale"`
}

// Handler exposes a Guard over HTTP.
type Handler struct {
	guard   *Guard
	locales *Locales
	logger  *zap.Logger
}

// NewHandler creates a Handler. A nil locales selects DefaultLocale only.
func NewHandler(g *Guard, locales *Locales, logger *zap.Logger) *Handler {
	if locales == nil {
		locales = NewLocales(DefaultLocale)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{guard: g, locales: locales, logger: logger}
}

// Mount registers GET /navigate, every page path of the route table, and
// a catch-all that sends unknown pages home. Page paths sit behind
// Middleware.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/navigate", h.Navigate)
	r.Group(func(r chi.Router) {
		r.Use(h.Middleware)
		for _, p := range h.guard.Routes().Paths() {
			r.Get(p, h.Page)
		}
		r.Get("/*", h.Page)
	})
}

// Navigate resolves the to query parameter without redirecting.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")
	if to == "" {
		to = PathHome
	}
	d := h.guard.Resolve(r.Context(), r, to)
	metrics.Navigation(result(d, to, h.guard.routes))
	httputil.WriteJSON(w, http.StatusOK, h.navigation(w, r, to, d))
}

// Page answers an admitted page path with its Navigation.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	route, _ := h.guard.routes.Lookup(r.URL.Path)
	httputil.WriteJSON(w, http.StatusOK, h.navigation(w, r, r.URL.Path, Decision{Route: route}))
}

// Middleware guards next with the route table: requests whose path resolves
// to a redirect get a 302 and never reach next.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := h.guard.Resolve(r.Context(), r, r.URL.Path)
		res := result(d, r.URL.Path, h.guard.routes)
		metrics.Navigation(res)
		if !d.Admitted() {
			h.logger.Debug("navigation redirected",
				zap.String("to", r.URL.Path), zap.String("redirect", d.Redirect))
			http.Redirect(w, r, d.Redirect, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// navigation applies the locale hook to a decision.
func (h *Handler) navigation(w http.ResponseWriter, r *http.Request, to string, d Decision) Navigation {
	locale := h.locales.Locale(r)

	// A locale chosen by query is saved for later navigations.
	if r.URL.Query().Get("lang") != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     LocaleCookie,
			Value:    locale,
			Path:     "/",
			MaxAge:   365 * 24 * 60 * 60,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return Navigation{
		To:       to,
		Page:     d.Route.Page,
		Name:     d.Route.Name,
		Redirect: d.Redirect,
		Locale:   locale,
	}
}

func result(d Decision, to string, t Table) string {
	if d.Admitted() {
		return "admit"
	}
	if _, ok := t.Lookup(to); !ok {
		return "unknown"
	}
	return "redirect"
}
