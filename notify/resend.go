// notify/resend.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// DefaultResendEndpoint is the Resend API base URL.
const DefaultResendEndpoint = "https://api.resend.com/"

// ResendConfig configures the Resend transport.
type ResendConfig struct {
	// APIKey is sent as a bearer token. Required.
	APIKey string

	// Endpoint overrides DefaultResendEndpoint (tests).
	Endpoint string

	// Client is used for requests. Default: client with Timeout.
	Client *http.Client

	// Timeout bounds each request when Client is nil. Default: 10 seconds.
	Timeout time.Duration
}

// Resend delivers through the Resend API.
type Resend struct {
	client *resend.Client
}

// ErrMissingAPIKey is returned by NewResend without an API key.
var ErrMissingAPIKey = errors.New("resend: api key is required")

// NewResend creates a Resend transport.
func NewResend(cfg ResendConfig) (*Resend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultResendEndpoint
	}
	base, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("resend: endpoint: %w", err)
	}

	hc := &http.Client{}
	if cfg.Client != nil {
		*hc = *cfg.Client
	} else {
		if cfg.Timeout <= 0 {
			cfg.Timeout = 10 * time.Second
		}
		hc.Timeout = cfg.Timeout
	}
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc.Transport = statusRecorder{next: next}

	client := resend.NewCustomClient(hc, cfg.APIKey)
	client.BaseURL = base
	return &Resend{client: client}, nil
}

// Name implements Transport.
func (*Resend) Name() string { return "resend" }

// Send implements Transport.
func (r *Resend) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}

	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}

	status := new(int)
	sent, err := r.client.Emails.SendWithContext(context.WithValue(ctx, statusKey{}, status), &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
		Text:    msg.TextBody,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		if *status == 0 {
			return "", fmt.Errorf("resend: %w", err)
		}
		err = fmt.Errorf("resend: api error %d: %w", *status, err)
		// Other 4xx answers will not change on retry.
		if *status >= 400 && *status < 500 && *status != http.StatusTooManyRequests {
			return "", Permanent(err)
		}
		return "", err
	}
	if sent == nil || sent.Id == "" {
		return "", errors.New("resend: response has no id")
	}
	return sent.Id, nil
}

type statusKey struct{}

// statusRecorder stores the response status in the *int the request
// context carries under statusKey. The SDK's errors do not expose it.
type statusRecorder struct {
	next http.RoundTripper
}

func (s statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := s.next.RoundTrip(req)
	if err == nil {
		if p, ok := req.Context().Value(statusKey{}).(*int); ok {
			*p = resp.StatusCode
		}
	}
	return resp, err
}
