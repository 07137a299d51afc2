// ratelimit/memory.go
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Record is the window state kept per identifier.
type Record struct {
	Count     int
	ResetTime time.Time
}

// Memory is a process-local Store. Records are never evicted unless Prune
// is called (directly or through StartJanitor); a restart resets all counters.
type Memory struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

// Option configures a Memory store.
type Option func(*Memory)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		records: make(map[string]*Record),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Admit implements Store.
func (m *Memory) Admit(_ context.Context, id string, max int, window time.Duration) (bool, error) {
	if err := validate(max, window); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	rec, ok := m.records[id]
	if !ok || now.After(rec.ResetTime) {
		m.records[id] = &Record{Count: 1, ResetTime: now.Add(window)}
		return true, nil
	}

	if rec.Count >= max {
		return false, nil
	}

	rec.Count++
	return true, nil
}

// Reset implements Store.
func (m *Memory) Reset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Lookup returns a copy of the record for id.
func (m *Memory) Lookup(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of tracked identifiers, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Prune removes expired records and returns how many were dropped.
func (m *Memory) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for id, rec := range m.records {
		if now.After(rec.ResetTime) {
			delete(m.records, id)
			n++
		}
	}
	return n
}

// StartJanitor prunes expired records every interval until ctx is done.
// A non-positive interval disables pruning.
func (m *Memory) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Prune()
			}
		}
	}()
}
