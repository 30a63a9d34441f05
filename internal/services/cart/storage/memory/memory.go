// Package memory provides the in-process fallback tier for carts.
package memory

import (
	"fmt"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/louisbranch/cartstore/internal/services/cart/domain"
)

// Unbounded opens a tier without a capacity limit. Expired carts leave it
// through the store sweeper.
const Unbounded = 0

// Store keeps native carts keyed by cart id. It is safe for concurrent use.
// A capped store evicts the least recently used cart when full and reports
// the eviction from Put.
type Store struct {
	// mu serializes writes so evicted holds only ids dropped by the current Put.
	mu      sync.Mutex
	cache   *lru.Cache[string, domain.Cart]
	evicted []string
}

// Open creates a fallback tier holding up to capacity carts. A non-positive
// capacity keeps every cart.
func Open(capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = math.MaxInt
	}
	s := &Store{}
	cache, err := lru.NewWithEvict[string, domain.Cart](capacity, s.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create fallback cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

func (s *Store) onEvict(id string, _ domain.Cart) {
	s.evicted = append(s.evicted, id)
}

// Get returns a copy of the cart stored under id.
func (s *Store) Get(id string) (domain.Cart, bool) {
	if s == nil {
		return domain.Cart{}, false
	}
	cart, ok := s.cache.Get(id)
	if !ok {
		return domain.Cart{}, false
	}
	return cart.Clone(), true
}

// Put stores a copy of cart under its id. It returns the ids of carts evicted
// to make room, which is only ever non-empty for a capped store.
func (s *Store) Put(cart domain.Cart) []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(cart.ID, cart.Clone())
	evicted := s.evicted
	s.evicted = nil
	return evicted
}

// Delete removes id and reports whether it was present.
func (s *Store) Delete(id string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Remove runs the eviction callback too; an explicit delete is not a loss.
	present := s.cache.Remove(id)
	s.evicted = nil
	return present
}

// Len returns the number of stored carts.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return s.cache.Len()
}

// Snapshot returns copies of every stored cart without touching recency.
func (s *Store) Snapshot() []domain.Cart {
	if s == nil {
		return nil
	}
	carts := make([]domain.Cart, 0, s.cache.Len())
	for _, id := range s.cache.Keys() {
		if cart, ok := s.cache.Peek(id); ok {
			carts = append(carts, cart.Clone())
		}
	}
	return carts
}
