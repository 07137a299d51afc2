// ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Store admits or rejects requests per identifier using a fixed window.
//
// Admit creates a fresh window (count=1) when none exists or the current
// one has expired. Inside a live window a request is rejected, without
// mutating the window, once count has reached max; otherwise count is
// incremented and the request admitted.
type Store interface {
	Admit(ctx context.Context, id string, max int, window time.Duration) (bool, error)
	Reset(ctx context.Context, id string) error
}

// Policy bundles the limit applied to one kind of request.
type Policy struct {
	Max    int
	Window time.Duration
}

// ContactPolicy is the limit applied to contact submissions: three per
// submitter email every five minutes.
var ContactPolicy = Policy{Max: 3, Window: 5 * time.Minute}

// ErrInvalidPolicy is returned when max or window is not positive.
var ErrInvalidPolicy = errors.New("ratelimit: max and window must be > 0")

// Admit applies p to id using s.
func (p Policy) Admit(ctx context.Context, s Store, id string) (bool, error) {
	return s.Admit(ctx, id, p.Max, p.Window)
}

func validate(max int, window time.Duration) error {
	if max <= 0 || window <= 0 {
		return ErrInvalidPolicy
	}
	return nil
}
