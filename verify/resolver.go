// verify/resolver.go
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultJSONEndpoint is Google's JSON DNS-over-HTTPS API.
const DefaultJSONEndpoint = "https://dns.google/resolve"

// maxResponseBytes caps how much of a resolver response is read.
const maxResponseBytes = 64 << 10

// ErrResolver is wrapped by every resolver failure.
var ErrResolver = errors.New("verify: resolver failure")

// JSONResolver queries a JSON DNS-over-HTTPS API (application/dns-json).
type JSONResolver struct {
	endpoint string
	client   *http.Client
}

// NewJSONResolver creates a resolver for endpoint. A nil client gets a
// client with timeout.
func NewJSONResolver(endpoint string, client *http.Client, timeout time.Duration) *JSONResolver {
	if endpoint == "" {
		endpoint = DefaultJSONEndpoint
	}
	if client == nil {
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &JSONResolver{endpoint: endpoint, client: client}
}

type jsonAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

type jsonResponse struct {
	Status int          `json:"Status"`
	Answer []jsonAnswer `json:"Answer"`
}

// HasMX implements MXResolver.
func (r *JSONResolver) HasMX(ctx context.Context, domain string) (bool, error) {
	q := url.Values{}
	q.Set("name", domain)
	q.Set("type", "MX")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("%w: build request: %v", ErrResolver, err)
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrResolver, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: unexpected status %d", ErrResolver, resp.StatusCode)
	}

	var body jsonResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return false, fmt.Errorf("%w: decode: %v", ErrResolver, err)
	}

	// Any answer counts, including a CNAME the resolver did not chase.
	return len(body.Answer) > 0, nil
}
