package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/louisbranch/cartstore/internal/platform/errors"
	"github.com/louisbranch/cartstore/internal/services/cart/domain"
	"golang.org/x/sync/errgroup"
)

// scanConcurrency bounds parallel primary reads in GetAll.
const scanConcurrency = 8

// Stats is a point-in-time view of both tiers.
type Stats struct {
	CacheAvailable bool
	PrimaryCount   int
	FallbackCount  int
	// TotalCarts is max(PrimaryCount, FallbackCount). It is approximate: the
	// tiers overlap and are not de-duplicated here.
	TotalCarts int
	Errors     []error
}

// Stats counts carts in each tier.
func (s *Store) Stats(ctx context.Context) Stats {
	o := s.begin(ctx, "Stats", "")
	defer o.end()

	stats := Stats{
		CacheAvailable: o.available,
		FallbackCount:  s.fallback.Len(),
	}
	if o.available {
		keys, err := s.primary.ScanKeys(o.ctx, s.cfg.KeyPrefix)
		if err != nil {
			s.tierError(o, "", "scan primary tier", err)
		} else {
			stats.PrimaryCount = len(keys)
		}
	}
	stats.TotalCarts = max(stats.PrimaryCount, stats.FallbackCount)
	stats.Errors = o.errs
	return stats
}

// GetAll lists carts from both tiers, de-duplicated by id with primary
// entries taking precedence, ordered by CreatedAt then ID. It reads every
// live cart and is meant for operator tooling only.
func (s *Store) GetAll(ctx context.Context) ([]domain.Cart, Result) {
	o := s.begin(ctx, "GetAll", "")
	defer o.end()

	byID := make(map[string]domain.Cart)
	if o.available {
		for _, cart := range s.scanPrimary(o) {
			byID[cart.ID] = cart
		}
	}
	for _, cart := range s.fallback.Snapshot() {
		if _, ok := byID[cart.ID]; !ok {
			byID[cart.ID] = cart
		}
	}

	carts := make([]domain.Cart, 0, len(byID))
	for _, cart := range byID {
		carts = append(carts, cart)
	}
	sort.Slice(carts, func(i, j int) bool {
		if !carts[i].CreatedAt.Equal(carts[j].CreatedAt) {
			return carts[i].CreatedAt.Before(carts[j].CreatedAt)
		}
		return carts[i].ID < carts[j].ID
	})
	return carts, Result{Success: true, Found: len(carts) > 0, Errors: o.errs}
}

// scanPrimary reads and decodes every cart key in the primary tier. Keys that
// expire between scan and read are skipped.
func (s *Store) scanPrimary(o *op) []domain.Cart {
	keys, err := s.primary.ScanKeys(o.ctx, s.cfg.KeyPrefix)
	if err != nil {
		s.tierError(o, "", "scan primary tier", err)
		return nil
	}

	carts := make([]domain.Cart, len(keys))
	ok := make([]bool, len(keys))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(scanConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			id := strings.TrimPrefix(key, s.cfg.KeyPrefix)
			payload, err := s.primary.Get(o.ctx, key)
			if err != nil {
				if isNotFound(err) {
					return nil
				}
				mu.Lock()
				s.tierError(o, id, "read from primary tier", err)
				mu.Unlock()
				return nil
			}
			cart, err := s.codec.Decode(payload)
			if err != nil {
				mu.Lock()
				o.fail(apperrors.WrapWithMetadata(apperrors.CodeDecode, "decode primary entry",
					map[string]string{"cart_id": id}, err))
				mu.Unlock()
				return nil
			}
			cart.ID = id
			carts[i] = cart
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := carts[:0]
	for i := range carts {
		if ok[i] {
			out = append(out, carts[i])
		}
	}
	return out
}
