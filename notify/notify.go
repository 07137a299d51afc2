// notify/notify.go
// Package notify turns contact-form submissions into notification emails.
// Submit runs the full pipeline (validation, rate limit, spam score,
// delivery with logged fallback); Forward delivers without gating.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/sorpasso/metrics"
	"github.com/dalemusser/sorpasso/ratelimit"
	"github.com/dalemusser/sorpasso/spam"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Field bounds, in characters.
const (
	MinNameLen    = 2
	MaxNameLen    = 100
	MinMessageLen = 10
	MaxMessageLen = 2000
)

// ProviderFallback is reported when delivery failed and the submission was
// only logged.
const ProviderFallback = "fallback"

// Submission is one contact-form request.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Outcome describes a handled submission.
type Outcome struct {
	ID        string
	SpamScore int
	Verdict   spam.Verdict
	Provider  string
	EmailID   string
	Delivered bool
	Message   string
}

// Config configures a Notifier.
type Config struct {
	Transport Transport

	// Fallback, if set, is tried when Transport gives up.
	Fallback Transport

	// Retry applies to each transport in turn.
	Retry RetryPolicy

	// To receives every notification. Required.
	To []string

	// From and FromName are the sender identity.
	From     string
	FromName string

	// Limiter and Policy gate Submit per submitter email. A nil Limiter
	// disables rate limiting.
	Limiter ratelimit.Store
	Policy  ratelimit.Policy

	// Timeout bounds each delivery attempt. Default: 10 seconds.
	Timeout time.Duration

	Logger *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Notifier is safe for concurrent use.
type Notifier struct {
	transport Transport
	fallback  Transport
	retry     RetryPolicy
	to        []string
	from      string
	fromName  string
	limiter   ratelimit.Store
	policy    ratelimit.Policy
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Notifier.
func New(cfg Config) *Notifier {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Transport == nil {
		cfg.Transport = NewLog(cfg.Logger)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Policy == (ratelimit.Policy{}) {
		cfg.Policy = ratelimit.ContactPolicy
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Notifier{
		transport: cfg.Transport,
		fallback:  cfg.Fallback,
		retry:     cfg.Retry,
		to:        cfg.To,
		from:      cfg.From,
		fromName:  cfg.FromName,
		limiter:   cfg.Limiter,
		policy:    cfg.Policy,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

// Now returns the notifier's clock reading.
func (n *Notifier) Now() time.Time { return n.now() }

// limitKey folds case and padding so neither opens a fresh window.
func limitKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// complete reports whether every field is present. Fields are validated
// as sent; lengths count surrounding whitespace.
func (s Submission) complete() bool {
	return s.Name != "" && s.Email != "" && s.Message != ""
}

// Submit validates, rate limits, scores and delivers s. Transport failures
// are not returned: the submission is logged and the outcome reports
// ProviderFallback.
func (n *Notifier) Submit(ctx context.Context, s Submission) (Outcome, error) {
	out := Outcome{ID: uuid.NewString()}
	log := n.logger.With(zap.String("submission_id", out.ID))

	if !s.complete() {
		metrics.ContactOutcome("invalid")
		return out, validationError(MsgMissingFields)
	}
	if l := utf8.RuneCountInString(s.Name); l < MinNameLen || l > MaxNameLen {
		metrics.ContactOutcome("invalid")
		return out, validationError(MsgInvalidName)
	}
	if l := utf8.RuneCountInString(s.Message); l < MinMessageLen || l > MaxMessageLen {
		metrics.ContactOutcome("invalid")
		return out, validationError(MsgInvalidMessage)
	}

	if n.limiter != nil {
		ok, err := n.policy.Admit(ctx, n.limiter, limitKey(s.Email))
		if err != nil {
			// Store errors admit.
			log.Warn("rate limiter unavailable, admitting", zap.Error(err))
			ok = true
		}
		metrics.RateLimit(ok)
		if !ok {
			log.Info("contact rate limited", zap.String("email", s.Email))
			metrics.ContactOutcome("rate_limited")
			return out, rateLimitedError()
		}
	}

	a := spam.Assess(s.Name, s.Email, s.Message)
	out.SpamScore = a.Score
	out.Verdict = a.Verdict
	metrics.SpamScore(a.Score)

	if a.Verdict == spam.Blocked {
		log.Info("blocked spam submission",
			zap.String("email", s.Email),
			zap.Int("spam_score", a.Score),
			zap.Any("rules", a.Hits),
		)
		metrics.ContactOutcome("blocked")
		return out, spamBlockedError()
	}

	flagged := a.Verdict == spam.Flagged
	at := n.now()
	html, text, err := renderContact(s, a.Score, flagged, at)
	if err != nil {
		metrics.ContactOutcome("error")
		return out, internalError(err)
	}

	msg := Message{
		From:     n.from,
		FromName: n.fromName,
		To:       n.to,
		ReplyTo:  s.Email,
		Subject:  Subject(s.Name, flagged),
		HTMLBody: html,
		TextBody: text,
	}

	provider, id, err := n.deliver(ctx, log, msg)
	if err != nil {
		log.Error("email delivery failed, contact kept in log for manual delivery",
			zap.Error(err),
			zap.Strings("to", n.to),
			zap.String("from", s.Email),
			zap.String("subject", msg.Subject),
			zap.String("name", s.Name),
			zap.String("message", s.Message),
			zap.Int("spam_score", a.Score),
			zap.Time("received_at", at),
		)
		metrics.ContactOutcome("fallback")
		out.Provider = ProviderFallback
		out.Message = "Contact saved, email delivery pending"
		return out, nil
	}

	out.Provider = provider
	out.EmailID = id
	out.Delivered = true
	out.Message = "Email sent successfully via " + out.Provider

	if flagged {
		metrics.ContactOutcome("flagged")
	} else {
		metrics.ContactOutcome("delivered")
	}
	log.Info("contact delivered",
		zap.String("transport", out.Provider),
		zap.String("email_id", id),
		zap.Int("spam_score", a.Score),
		zap.String("verdict", string(a.Verdict)),
	)
	return out, nil
}

// Forward delivers s after only the required-field check. Unlike Submit,
// a transport failure is returned to the caller.
func (n *Notifier) Forward(ctx context.Context, s Submission) (Outcome, error) {
	out := Outcome{ID: uuid.NewString()}

	if !s.complete() {
		return out, validationError(MsgMissingFields)
	}

	html, text, err := renderForward(s, n.now())
	if err != nil {
		return out, internalError(err)
	}

	log := n.logger.With(zap.String("submission_id", out.ID))
	provider, id, err := n.deliver(ctx, log, Message{
		From:     n.from,
		FromName: n.fromName,
		To:       n.to,
		ReplyTo:  s.Email,
		Subject:  forwardSubject(s.Name),
		HTMLBody: html,
		TextBody: text,
	})
	if err != nil {
		log.Error("forward delivery failed", zap.Error(err))
		return out, transportError(err)
	}

	out.Provider = provider
	out.EmailID = id
	out.Delivered = true
	out.Message = "Email sent successfully"
	return out, nil
}

// deliver sends msg through the transport, then the fallback, retrying each
// under n.retry. It returns the name of the transport that accepted msg.
func (n *Notifier) deliver(ctx context.Context, log *zap.Logger, msg Message) (string, string, error) {
	var errs []error
	for _, t := range [...]Transport{n.transport, n.fallback} {
		if t == nil {
			continue
		}
		var id string
		err := n.retry.do(ctx, func(ctx context.Context) error {
			attemptCtx, cancel := context.WithTimeout(ctx, n.timeout)
			defer cancel()
			var err error
			id, err = t.Send(attemptCtx, msg)
			return err
		}, func(attempt int, err error, delay time.Duration) {
			log.Warn("email delivery attempt failed, retrying",
				zap.String("transport", t.Name()),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		})
		if err == nil {
			return t.Name(), id, nil
		}
		log.Warn("email transport gave up", zap.String("transport", t.Name()), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
	}
	return "", "", errors.Join(errs...)
}
