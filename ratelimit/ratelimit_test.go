package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func TestMemory_ContactPolicy(t *testing.T) {
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))
	ctx := context.Background()
	id := "mario@libero.it"

	for i := 1; i <= 3; i++ {
		ok, err := ContactPolicy.Admit(ctx, m, id)
		if err != nil || !ok {
			t.Fatalf("call %d: ok=%v err=%v, want admitted", i, ok, err)
		}
		clock.Advance(time.Minute)
	}

	ok, _ := ContactPolicy.Admit(ctx, m, id)
	if ok {
		t.Fatal("4th call inside the window should be rejected")
	}
	rec, _ := m.Lookup(id)
	if rec.Count != 3 {
		t.Errorf("rejected call mutated count: got %d, want 3", rec.Count)
	}

	// Window started at t0 and ends at t0+5m; we are at t0+3m.
	clock.Advance(2*time.Minute + time.Millisecond)
	ok, _ = ContactPolicy.Admit(ctx, m, id)
	if !ok {
		t.Fatal("call after the window should be admitted")
	}
	rec, _ = m.Lookup(id)
	if rec.Count != 1 {
		t.Errorf("count after reset = %d, want 1", rec.Count)
	}
	if !rec.ResetTime.After(clock.Now()) {
		t.Errorf("reset time %v should lie after now %v", rec.ResetTime, clock.Now())
	}
}

func TestMemory_WindowBoundaryIsInclusive(t *testing.T) {
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	_, _ = m.Admit(ctx, "k", 1, time.Second)
	clock.Advance(time.Second)
	if ok, _ := m.Admit(ctx, "k", 1, time.Second); ok {
		t.Fatal("request exactly at reset time is still inside the window")
	}
}

func TestMemory_IdentifiersAreIndependent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, _ = m.Admit(ctx, "a", 1, time.Minute)
	if ok, _ := m.Admit(ctx, "b", 1, time.Minute); !ok {
		t.Fatal("different identifier should be admitted")
	}
	if ok, _ := m.Admit(ctx, "a", 1, time.Minute); ok {
		t.Fatal("same identifier should be rejected")
	}
}

func TestMemory_Reset(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, _ = m.Admit(ctx, "a", 1, time.Minute)
	if err := m.Reset(ctx, "a"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ok, _ := m.Admit(ctx, "a", 1, time.Minute); !ok {
		t.Fatal("admit after reset should succeed")
	}
}

func TestMemory_InvalidPolicy(t *testing.T) {
	m := NewMemory()
	if _, err := m.Admit(context.Background(), "a", 0, time.Minute); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("err = %v, want ErrInvalidPolicy", err)
	}
}

func TestMemory_Prune(t *testing.T) {
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	_, _ = m.Admit(ctx, "old", 3, time.Minute)
	clock.Advance(2 * time.Minute)
	_, _ = m.Admit(ctx, "new", 3, time.Minute)

	if n := m.Prune(); n != 1 {
		t.Fatalf("Prune() = %d, want 1", n)
	}
	if _, ok := m.Lookup("old"); ok {
		t.Error("expired record should be gone")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.Admit(ctx, "shared", 10, time.Hour); ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if admitted != 10 {
		t.Fatalf("admitted = %d, want 10", admitted)
	}
}

func TestMiddleware(t *testing.T) {
	store := NewMemory()
	h := Middleware(MiddlewareConfig{
		Store:  store,
		Policy: Policy{Max: 2, Window: time.Minute},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 4)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/verify-email", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	// Preflight passes even when the key is exhausted.
	req := httptest.NewRequest(http.MethodOptions, "/verify-email", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	codes = append(codes, rec.Code)

	want := []int{200, 200, 429, 200}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}

func TestMiddleware_DisabledPolicy(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := Middleware(MiddlewareConfig{Store: NewMemory()})(next)
	if _, ok := h.(http.HandlerFunc); !ok {
		t.Fatal("disabled middleware should return next unchanged")
	}
}

func TestIPKeyFunc(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"ipv6", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"no port", nil, "192.0.2.1", "192.0.2.1"},
		{"x-forwarded-for ignored", map[string]string{"X-Forwarded-For": "198.51.100.7"}, "10.0.0.1:1", "10.0.0.1"},
		{"x-real-ip ignored", map[string]string{"X-Real-IP": "203.0.113.9"}, "10.0.0.1:1", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := IPKeyFunc(req); got != tt.want {
				t.Errorf("IPKeyFunc() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRedis_ContactPolicy runs against a real server when SORPASSO_TEST_REDIS_URL is set.
func TestRedis_ContactPolicy(t *testing.T) {
	url := os.Getenv("SORPASSO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SORPASSO_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	r, err := ConnectRedis(ctx, RedisConfig{URL: url, KeyPrefix: "sorpasso-test:"})
	if err != nil {
		t.Fatalf("ConnectRedis: %v", err)
	}
	defer r.Close()

	id := "redis-" + time.Now().Format(time.RFC3339Nano)
	defer r.Reset(ctx, id)

	p := Policy{Max: 3, Window: 500 * time.Millisecond}
	for i := 0; i < 3; i++ {
		if ok, err := p.Admit(ctx, r, id); err != nil || !ok {
			t.Fatalf("call %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _ := p.Admit(ctx, r, id); ok {
		t.Fatal("4th call should be rejected")
	}
	time.Sleep(600 * time.Millisecond)
	if ok, _ := p.Admit(ctx, r, id); !ok {
		t.Fatal("call after the window should be admitted")
	}
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := ConnectRedis(context.Background(), RedisConfig{URL: "redis://" + mr.Addr(), KeyPrefix: "sorpasso:contact:"})
	if err != nil {
		t.Fatalf("ConnectRedis: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return mr, r
}

func TestRedis_FixedWindow(t *testing.T) {
	mr, r := newMiniredis(t)
	ctx := context.Background()
	p := Policy{Max: 3, Window: 5 * time.Minute}
	const key = "sorpasso:contact:mario@libero.it"

	if ok, err := p.Admit(ctx, r, "mario@libero.it"); err != nil || !ok {
		t.Fatalf("first call: ok=%v err=%v", ok, err)
	}
	ttl := mr.TTL(key)
	if ttl != p.Window {
		t.Fatalf("TTL after first call = %v, want %v", ttl, p.Window)
	}

	for i := 2; i <= 3; i++ {
		if ok, err := p.Admit(ctx, r, "mario@libero.it"); err != nil || !ok {
			t.Fatalf("call %d: ok=%v err=%v", i, ok, err)
		}
	}
	if got := mr.TTL(key); got != ttl {
		t.Errorf("TTL moved to %v by later calls, want %v", got, ttl)
	}
	if v, _ := mr.Get(key); v != "3" {
		t.Errorf("counter = %q, want 3", v)
	}

	if ok, err := p.Admit(ctx, r, "mario@libero.it"); err != nil || ok {
		t.Fatalf("4th call: ok=%v err=%v, want rejected", ok, err)
	}
	if v, _ := mr.Get(key); v != "3" {
		t.Errorf("rejected call changed counter to %q", v)
	}

	mr.FastForward(p.Window)
	if ok, err := p.Admit(ctx, r, "mario@libero.it"); err != nil || !ok {
		t.Fatalf("after window: ok=%v err=%v, want admitted", ok, err)
	}
}

func TestRedis_ResetAndPing(t *testing.T) {
	_, r := newMiniredis(t)
	ctx := context.Background()
	p := Policy{Max: 1, Window: time.Minute}

	if ok, _ := p.Admit(ctx, r, "a@b.it"); !ok {
		t.Fatal("first call rejected")
	}
	if ok, _ := p.Admit(ctx, r, "a@b.it"); ok {
		t.Fatal("second call admitted")
	}
	if err := r.Reset(ctx, "a@b.it"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ok, _ := p.Admit(ctx, r, "a@b.it"); !ok {
		t.Fatal("call after reset rejected")
	}
	if err := r.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestConnectRedis_RequiresURL(t *testing.T) {
	if _, err := ConnectRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatal("expected error without client or url")
	}
}
