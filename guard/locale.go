// guard/locale.go
package guard

import (
	"net/http"

	"golang.org/x/text/language"
)

// LocaleCookie holds the visitor's saved locale.
const LocaleCookie = "preferred-locale"

// DefaultLocale is used when no preference matches.
const DefaultLocale = "it"

// Locales picks the visitor locale among a fixed set.
type Locales struct {
	tags    []language.Tag
	matcher language.Matcher
}

// NewLocales builds a selector. The first entry of supported is the
// fallback; unparsable entries are skipped and an empty list means
// DefaultLocale only.
func NewLocales(supported ...string) *Locales {
	var tags []language.Tag
	for _, s := range supported {
		t, err := language.Parse(s)
		if err != nil {
			continue
		}
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.Make(DefaultLocale)}
	}
	return &Locales{tags: tags, matcher: language.NewMatcher(tags)}
}

// Default returns the fallback locale.
func (l *Locales) Default() string {
	return l.tags[0].String()
}

// Locale reads the preference from the lang query parameter, then the
// preferred-locale cookie, and returns the best supported match.
func (l *Locales) Locale(r *http.Request) string {
	pref := r.URL.Query().Get("lang")
	if pref == "" {
		if c, err := r.Cookie(LocaleCookie); err == nil {
			pref = c.Value
		}
	}
	return l.Match(pref)
}

// Match maps pref onto a supported locale, falling back to Default.
func (l *Locales) Match(pref string) string {
	if pref == "" {
		return l.Default()
	}
	t, err := language.Parse(pref)
	if err != nil {
		return l.Default()
	}
	_, idx, conf := l.matcher.Match(t)
	if conf == language.No {
		return l.Default()
	}
	return l.tags[idx].String()
}
