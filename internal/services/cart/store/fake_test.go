package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/cartstore/internal/services/cart/domain"
	"github.com/louisbranch/cartstore/internal/services/cart/storage"
)

var errTierDown = errors.New("connection refused")

// fakePrimary is an in-memory primary tier with switchable failures.
type fakePrimary struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failAll error
	block   chan struct{}
	calls   map[string]int
}

func newFakePrimary() *fakePrimary {
	return &fakePrimary{
		data:  make(map[string]string),
		ttls:  make(map[string]time.Duration),
		calls: make(map[string]int),
	}
}

// blockGets makes Get hang, ignoring ctx, until the test ends.
func (f *fakePrimary) blockGets(t *testing.T) {
	t.Helper()
	ch := make(chan struct{})
	f.mu.Lock()
	f.block = ch
	f.mu.Unlock()
	t.Cleanup(func() { close(ch) })
}

func (f *fakePrimary) setFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = err
}

func (f *fakePrimary) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakePrimary) value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *fakePrimary) put(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
}

func (f *fakePrimary) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	f.calls["Get"]++
	if key == ProbeKey {
		f.calls["probe"]++
	}
	block := f.block
	failAll := f.failAll
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if failAll != nil {
		return "", failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (f *fakePrimary) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Set"]++
	if f.failAll != nil {
		return f.failAll
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakePrimary) Delete(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Delete"]++
	if f.failAll != nil {
		return false, f.failAll
	}
	_, ok := f.data[key]
	delete(f.data, key)
	return ok, nil
}

func (f *fakePrimary) ScanKeys(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ScanKeys"]++
	if f.failAll != nil {
		return nil, f.failAll
	}
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

var _ storage.PrimaryTier = (*fakePrimary)(nil)

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
	err     error
}

func (p *recordingPublisher) CartSaved(_ context.Context, cart domain.Cart) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, cart.ID)
	return p.err
}

func (p *recordingPublisher) CartDeleted(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	return p.err
}

func newTestStore(t *testing.T, primary storage.PrimaryTier, clock *testClock, opts ...Option) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ProbeTimeout = 50 * time.Millisecond
	ids := 0
	var idMu sync.Mutex
	base := []Option{
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			idMu.Lock()
			defer idMu.Unlock()
			ids++
			return "generated-" + string(rune('a'+ids-1))
		}),
	}
	s, err := New(cfg, primary, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}
