// internal/gateway/settings.go
package gateway

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dalemusser/sorpasso/config"
	"github.com/dalemusser/sorpasso/guard"
	"github.com/dalemusser/sorpasso/notify"
	"github.com/dalemusser/sorpasso/ratelimit"
)

// Transport names accepted by the transport key.
const (
	TransportResend = "resend"
	TransportSMTP   = "smtp"
	TransportLog    = "log"
)

// Rate-limit store names accepted by the ratelimit_store key.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// DoH modes accepted by the doh_mode key.
const (
	DoHJSON = "json"
	DoHWire = "wire"
)

// AppKeys are the application configuration keys.
var AppKeys = []config.AppKey{
	{Name: "admin_email", Default: "", Desc: "Only account admitted to the admin pages"},
	{Name: "auth_jwt_secret", Default: "", Desc: "HS256 secret of the identity provider's access tokens"},

	{Name: "notify_to", Default: []string{}, Desc: "Recipients of contact notifications"},
	{Name: "notify_from", Default: "", Desc: "Sender address of contact notifications"},
	{Name: "notify_from_name", Default: "Il Sorpasso", Desc: "Sender display name"},
	{Name: "transport", Default: TransportLog, Desc: `Email transport: "resend", "smtp" or "log"`},
	{Name: "transport_fallback", Default: "", Desc: `Transport tried when the primary gives up: "resend", "smtp", "log" or empty`},
	{Name: "transport_attempts", Default: 2, Desc: "Delivery attempts per transport"},
	{Name: "transport_timeout", Default: 10 * time.Second, Desc: "Bound on a single delivery attempt"},

	{Name: "resend_api_key", Default: "", Desc: "Resend API key"},
	{Name: "resend_endpoint", Default: "", Desc: "Resend API base URL (default https://api.resend.com)"},

	{Name: "smtp_host", Default: "", Desc: "SMTP server host"},
	{Name: "smtp_port", Default: 0, Desc: "SMTP server port (0 = 587, or 465 with smtp_use_ssl)"},
	{Name: "smtp_username", Default: "", Desc: "SMTP username"},
	{Name: "smtp_password", Default: "", Desc: "SMTP password"},
	{Name: "smtp_use_ssl", Default: false, Desc: "Use implicit TLS"},
	{Name: "smtp_require_tls", Default: false, Desc: "Refuse to send without STARTTLS"},

	{Name: "ratelimit_store", Default: StoreMemory, Desc: `Contact rate-limit store: "memory" or "redis"`},
	{Name: "ratelimit_max", Default: ratelimit.ContactPolicy.Max, Desc: "Contact submissions per window"},
	{Name: "ratelimit_window", Default: ratelimit.ContactPolicy.Window, Desc: "Contact rate-limit window"},
	{Name: "ratelimit_prune_interval", Default: time.Duration(0), Desc: "Memory store cleanup interval (0 = never)"},
	{Name: "redis_url", Default: "", Desc: "redis:// URL for ratelimit_store=redis"},

	{Name: "verify_ratelimit_max", Default: 30, Desc: "Verification requests per minute per IP (0 = unlimited)"},

	{Name: "doh_mode", Default: DoHJSON, Desc: `DNS-over-HTTPS flavor: "json" or "wire"`},
	{Name: "doh_url", Default: "", Desc: "DNS-over-HTTPS endpoint (default depends on doh_mode)"},
	{Name: "dns_timeout", Default: 5 * time.Second, Desc: "Bound on an MX lookup"},

	{Name: "metrics_token", Default: "", Desc: "Bearer key required by /metrics (empty = open)"},

	{Name: "default_locale", Default: guard.DefaultLocale, Desc: "Fallback locale"},
	{Name: "locales", Default: []string{"it", "en"}, Desc: "Supported locales"},
}

// Settings is the typed form of AppKeys.
type Settings struct {
	AdminEmail string
	JWTSecret  string

	NotifyTo          []string
	NotifyFrom        string
	NotifyFromName    string
	Transport         string
	TransportFallback string
	Retry             notify.RetryPolicy
	TransportTimeout  time.Duration

	ResendAPIKey   string
	ResendEndpoint string

	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPUseSSL     bool
	SMTPRequireTLS bool

	RateLimitStore         string
	RateLimit              ratelimit.Policy
	RateLimitPruneInterval time.Duration
	RedisURL               string

	VerifyRateLimit int

	DoHMode    string
	DoHURL     string
	DNSTimeout time.Duration

	MetricsToken string

	DefaultLocale string
	Locales       []string
}

// LoadSettings converts loaded values into Settings and validates them.
// Every problem is reported in a single error.
func LoadSettings(v config.AppConfigValues) (Settings, error) {
	s := Settings{
		AdminEmail: v.String("admin_email"),
		JWTSecret:  v.String("auth_jwt_secret"),

		NotifyTo:          trimAll(v.StringSlice("notify_to")),
		NotifyFrom:        v.String("notify_from"),
		NotifyFromName:    v.String("notify_from_name"),
		Transport:         strings.ToLower(v.String("transport")),
		TransportFallback: strings.ToLower(v.String("transport_fallback")),
		Retry:             notify.RetryPolicy{Attempts: v.Int("transport_attempts"), Jitter: 0.1},
		TransportTimeout:  v.Duration("transport_timeout", 10*time.Second),

		ResendAPIKey:   v.String("resend_api_key"),
		ResendEndpoint: v.String("resend_endpoint"),

		SMTPHost:       v.String("smtp_host"),
		SMTPPort:       v.Int("smtp_port"),
		SMTPUsername:   v.String("smtp_username"),
		SMTPPassword:   v.String("smtp_password"),
		SMTPUseSSL:     v.Bool("smtp_use_ssl"),
		SMTPRequireTLS: v.Bool("smtp_require_tls"),

		RateLimitStore: strings.ToLower(v.String("ratelimit_store")),
		RateLimit: ratelimit.Policy{
			Max:    v.Int("ratelimit_max"),
			Window: v.Duration("ratelimit_window", ratelimit.ContactPolicy.Window),
		},
		RateLimitPruneInterval: v.Duration("ratelimit_prune_interval", 0),
		RedisURL:               v.String("redis_url"),

		VerifyRateLimit: v.Int("verify_ratelimit_max"),

		DoHMode:    strings.ToLower(v.String("doh_mode")),
		DoHURL:     v.String("doh_url"),
		DNSTimeout: v.Duration("dns_timeout", 5*time.Second),

		MetricsToken: v.String("metrics_token"),

		DefaultLocale: v.String("default_locale"),
		Locales:       trimAll(v.StringSlice("locales")),
	}
	return s, s.validate()
}

func (s Settings) validate() error {
	var missing, invalid []string

	if len(s.NotifyTo) == 0 {
		missing = append(missing, "notify_to")
	}
	for _, a := range s.NotifyTo {
		if _, err := mail.ParseAddress(a); err != nil {
			invalid = append(invalid, fmt.Sprintf("notify_to: %q is not an address", a))
		}
	}
	if s.NotifyFrom == "" {
		missing = append(missing, "notify_from")
	} else if _, err := mail.ParseAddress(s.NotifyFrom); err != nil {
		invalid = append(invalid, fmt.Sprintf("notify_from: %q is not an address", s.NotifyFrom))
	}

	switch s.Transport {
	case TransportResend, TransportSMTP, TransportLog:
	default:
		invalid = append(invalid, `transport must be "resend", "smtp" or "log"`)
	}
	switch s.TransportFallback {
	case "", TransportResend, TransportSMTP, TransportLog:
		if s.TransportFallback != "" && s.TransportFallback == s.Transport {
			invalid = append(invalid, "transport_fallback must differ from transport")
		}
	default:
		invalid = append(invalid, `transport_fallback must be "resend", "smtp", "log" or empty`)
	}
	if s.uses(TransportResend) && s.ResendAPIKey == "" {
		missing = append(missing, "resend_api_key (transport=resend)")
	}
	if s.uses(TransportSMTP) {
		if s.SMTPHost == "" {
			missing = append(missing, "smtp_host (transport=smtp)")
		}
		if s.SMTPPort < 0 || s.SMTPPort > 65535 {
			invalid = append(invalid, "smtp_port must be in 0..65535")
		}
	}
	if s.Retry.Attempts <= 0 {
		invalid = append(invalid, "transport_attempts must be > 0")
	}

	switch s.RateLimitStore {
	case StoreMemory:
	case StoreRedis:
		if s.RedisURL == "" {
			missing = append(missing, "redis_url (ratelimit_store=redis)")
		}
	default:
		invalid = append(invalid, `ratelimit_store must be "memory" or "redis"`)
	}
	if s.RateLimit.Max <= 0 {
		invalid = append(invalid, "ratelimit_max must be > 0")
	}
	if s.RateLimit.Window <= 0 {
		invalid = append(invalid, "ratelimit_window must be > 0")
	}
	if s.VerifyRateLimit < 0 {
		invalid = append(invalid, "verify_ratelimit_max must be >= 0")
	}

	switch s.DoHMode {
	case DoHJSON, DoHWire:
	default:
		invalid = append(invalid, `doh_mode must be "json" or "wire"`)
	}

	// The admin pages need both halves or neither.
	if (s.AdminEmail == "") != (s.JWTSecret == "") {
		missing = append(missing, "admin_email and auth_jwt_secret must be set together")
	}

	return config.JoinProblems("app", missing, invalid)
}

func (s Settings) uses(transport string) bool {
	return s.Transport == transport || s.TransportFallback == transport
}

// AdminEnabled reports whether the admin pages can ever be admitted.
func (s Settings) AdminEnabled() bool {
	return s.AdminEmail != "" && s.JWTSecret != ""
}

// SupportedLocales returns the locales with the default first.
func (s Settings) SupportedLocales() []string {
	def := s.DefaultLocale
	if def == "" {
		def = guard.DefaultLocale
	}
	out := []string{def}
	for _, l := range s.Locales {
		if l != def {
			out = append(out, l)
		}
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
