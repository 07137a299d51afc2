// guard/routes.go
// Package guard holds the site route table and decides, per navigation,
// whether the target page is shown or the visitor is redirected. Protected
// pages are admitted only for the configured administrator session.
package guard

import "strings"

// Well-known paths.
const (
	PathHome  = "/"
	PathLogin = "/admin/login"
)

// Route is one page of the site.
type Route struct {
	Path      string
	Name      string
	Page      string
	Protected bool
	Alias     string
}

// Table is the ordered list of known routes.
type Table []Route

// SiteRoutes is the route table of the site.
var SiteRoutes = Table{
	{Path: "/", Name: "home", Page: "Home", Alias: "/home"},
	{Path: "/admin/login", Name: "admin-login", Page: "AdminLogin"},
	{Path: "/admin/dashboard", Name: "admin-dashboard", Page: "AdminDashboard", Protected: true},
	{Path: "/admin/email-test", Name: "admin-email-test", Page: "AdminEmailTest", Protected: true},
	{Path: "/servizi/auto-epoca", Name: "auto-epoca", Page: "AutoEpoca"},
	{Path: "/servizi/mezzi-speciali", Name: "mezzi-speciali", Page: "MezziSpeciali"},
	{Path: "/servizi/mare-aria", Name: "mare-aria", Page: "MareAria"},
	{Path: "/servizi/personalizzazione", Name: "personalizzazione", Page: "Personalizzazione"},
	{Path: "/servizi/auto-matrimoni", Name: "auto-matrimoni", Page: "AutoMatrimoni"},
}

// Lookup finds the route serving path, matching either Path or Alias.
// A single trailing slash is ignored.
func (t Table) Lookup(path string) (Route, bool) {
	path = cleanPath(path)
	for _, r := range t {
		if r.Path == path || (r.Alias != "" && r.Alias == path) {
			return r, true
		}
	}
	return Route{}, false
}

// Paths returns every path and alias in the table.
func (t Table) Paths() []string {
	out := make([]string, 0, len(t)+1)
	for _, r := range t {
		out = append(out, r.Path)
		if r.Alias != "" {
			out = append(out, r.Alias)
		}
	}
	return out
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
