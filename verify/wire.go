// verify/wire.go
package verify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
)

// DefaultWireEndpoint is Google's RFC 8484 DNS-over-HTTPS endpoint.
const DefaultWireEndpoint = "https://dns.google/dns-query"

const dnsMessageType = "application/dns-message"

// WireResolver speaks RFC 8484 (binary DNS messages over HTTPS POST).
type WireResolver struct {
	endpoint string
	client   *http.Client
}

// NewWireResolver creates a resolver for endpoint. A nil client gets a
// client with timeout.
func NewWireResolver(endpoint string, client *http.Client, timeout time.Duration) *WireResolver {
	if endpoint == "" {
		endpoint = DefaultWireEndpoint
	}
	if client == nil {
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &WireResolver{endpoint: endpoint, client: client}
}

// HasMX implements MXResolver. NXDOMAIN counts as "no MX", not as a failure.
func (r *WireResolver) HasMX(ctx context.Context, domain string) (bool, error) {
	q := new(mdns.Msg)
	q.SetQuestion(mdns.Fqdn(strings.TrimSuffix(domain, ".")), mdns.TypeMX)
	q.RecursionDesired = true
	// RFC 8484 4.1: use ID 0 so responses are cache friendly.
	q.Id = 0

	packed, err := q.Pack()
	if err != nil {
		return false, fmt.Errorf("%w: pack query: %v", ErrResolver, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(packed))
	if err != nil {
		return false, fmt.Errorf("%w: build request: %v", ErrResolver, err)
	}
	req.Header.Set("Content-Type", dnsMessageType)
	req.Header.Set("Accept", dnsMessageType)

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrResolver, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: unexpected status %d", ErrResolver, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, fmt.Errorf("%w: read body: %v", ErrResolver, err)
	}

	answer := new(mdns.Msg)
	if err := answer.Unpack(raw); err != nil {
		return false, fmt.Errorf("%w: unpack answer: %v", ErrResolver, err)
	}

	switch answer.Rcode {
	case mdns.RcodeSuccess:
	case mdns.RcodeNameError:
		return false, nil
	default:
		return false, fmt.Errorf("%w: rcode %s", ErrResolver, mdns.RcodeToString[answer.Rcode])
	}

	return len(answer.Answer) > 0, nil
}
