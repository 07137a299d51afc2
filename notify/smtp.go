// notify/smtp.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// UseSSL enables implicit TLS (port 465). Otherwise STARTTLS is used
	// when the server offers it.
	UseSSL bool

	// RequireTLS fails delivery when STARTTLS is unavailable.
	RequireTLS bool

	// Timeout for SMTP operations. Default: 30 seconds.
	Timeout time.Duration
}

// SMTP delivers through an SMTP relay using go-mail.
type SMTP struct {
	cfg SMTPConfig
}

// ErrMissingHost is returned by NewSMTP without a host.
var ErrMissingHost = errors.New("smtp: host is required")

// NewSMTP creates an SMTP transport.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, ErrMissingHost
	}
	if cfg.Port == 0 {
		cfg.Port = 587
		if cfg.UseSSL {
			cfg.Port = 465
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTP{cfg: cfg}, nil
}

// Name implements Transport.
func (*SMTP) Name() string { return "smtp" }

// Send implements Transport. The returned id is the Message-ID header.
func (s *SMTP) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}

	m := mail.NewMsg()

	if msg.FromName != "" {
		if err := m.FromFormat(msg.FromName, msg.From); err != nil {
			return "", fmt.Errorf("smtp: invalid from address: %w", err)
		}
	} else if err := m.From(msg.From); err != nil {
		return "", fmt.Errorf("smtp: invalid from address: %w", err)
	}

	if err := m.To(msg.To...); err != nil {
		return "", fmt.Errorf("smtp: invalid to address: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return "", fmt.Errorf("smtp: invalid reply-to address: %w", err)
		}
	}

	m.Subject(msg.Subject)
	m.SetMessageID()

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	switch {
	case s.cfg.UseSSL:
		opts = append(opts, mail.WithSSL())
	case s.cfg.RequireTLS:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return "", fmt.Errorf("smtp: create client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("smtp: send: %w", err)
	}

	return m.GetMessageID(), nil
}
