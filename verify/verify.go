// verify/verify.go
// Package verify classifies email addresses as legitimate, suspicious or
// unknown without sending mail. Unknown domains are probed for an MX record
// over DNS-over-HTTPS; a failing probe never rejects the address.
package verify

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of verifying one address.
type Result struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	Confidence int    `json:"confidence"`

	// Check names the rule that decided the result.
	Check Check `json:"-"`
}

// Check identifies the rule that produced a Result.
type Check string

const (
	CheckFormat      Check = "invalid_format"
	CheckSuspicious  Check = "suspicious"
	CheckLegitimate  Check = "legitimate"
	CheckNoMX        Check = "no_mx"
	CheckMX          Check = "mx"
	CheckUnavailable Check = "unavailable"
)

// Reasons reported to clients.
const (
	ReasonInvalidFormat = "Invalid email format"
	ReasonSuspicious    = "Temporary/suspicious email provider"
	ReasonNoMX          = "Domain has no MX record"
	ReasonUnavailable   = "Verification service unavailable"
)

var formatPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidFormat reports whether email looks like local@domain.tld.
func ValidFormat(email string) bool {
	return formatPattern.MatchString(email)
}

// MXResolver answers whether a domain publishes at least one MX record.
// An error means the answer is unknown.
type MXResolver interface {
	HasMX(ctx context.Context, domain string) (bool, error)
}

// Verifier checks addresses against the provider lists and an MXResolver.
type Verifier struct {
	resolver   MXResolver
	suspicious []string
	legitimate map[string]struct{}
	timeout    time.Duration
	logger     *zap.Logger
}

// Config configures a Verifier. Zero values fall back to defaults.
type Config struct {
	Resolver MXResolver

	// SuspiciousDomains defaults to SuspiciousDomains.
	SuspiciousDomains []string

	// LegitimateProviders defaults to LegitimateProviders.
	LegitimateProviders []string

	// Timeout bounds the MX lookup. Default: 5 seconds.
	Timeout time.Duration

	Logger *zap.Logger
}

// New creates a Verifier.
func New(cfg Config) *Verifier {
	if cfg.SuspiciousDomains == nil {
		cfg.SuspiciousDomains = SuspiciousDomains
	}
	if cfg.LegitimateProviders == nil {
		cfg.LegitimateProviders = LegitimateProviders
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	legit := make(map[string]struct{}, len(cfg.LegitimateProviders))
	for _, d := range cfg.LegitimateProviders {
		legit[strings.ToLower(d)] = struct{}{}
	}
	susp := make([]string, len(cfg.SuspiciousDomains))
	for i, d := range cfg.SuspiciousDomains {
		susp[i] = strings.ToLower(d)
	}

	return &Verifier{
		resolver:   cfg.Resolver,
		suspicious: susp,
		legitimate: legit,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// Verify classifies email. The first matching rule wins:
// format, suspicious provider, legitimate provider, MX lookup.
func (v *Verifier) Verify(ctx context.Context, email string) Result {
	if !ValidFormat(email) {
		return Result{Valid: false, Reason: ReasonInvalidFormat, Confidence: 100, Check: CheckFormat}
	}

	domain := Domain(email)

	if v.isSuspicious(domain) {
		return Result{Valid: false, Reason: ReasonSuspicious, Confidence: 90, Check: CheckSuspicious}
	}

	if _, ok := v.legitimate[domain]; ok {
		return Result{Valid: true, Confidence: 95, Check: CheckLegitimate}
	}

	if v.resolver == nil {
		return Unavailable()
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	hasMX, err := v.resolver.HasMX(lookupCtx, domain)
	if err != nil {
		v.logger.Warn("mx lookup failed", zap.String("domain", domain), zap.Error(err))
		return Unavailable()
	}
	if !hasMX {
		return Result{Valid: false, Reason: ReasonNoMX, Confidence: 85, Check: CheckNoMX}
	}
	return Result{Valid: true, Confidence: 70, Check: CheckMX}
}

// Unavailable is the fail-open result used whenever verification cannot complete.
func Unavailable() Result {
	return Result{Valid: true, Confidence: 50, Check: CheckUnavailable}
}

func (v *Verifier) isSuspicious(domain string) bool {
	for _, s := range v.suspicious {
		if strings.Contains(domain, s) {
			return true
		}
	}
	return false
}

// Domain returns the lowercased part after the first '@'.
func Domain(email string) string {
	parts := strings.SplitN(email, "@", 3)
	if len(parts) < 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}
