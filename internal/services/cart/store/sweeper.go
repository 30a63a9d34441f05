package store

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/cartstore/internal/platform/errors"
)

// SweepResult reports one fallback sweep.
type SweepResult struct {
	Cleaned int
	Errors  []error
}

// Sweep evicts fallback carts older than FallbackMaxAge, by CreatedAt. The
// primary tier expires entries on its own and is not touched.
//
// Carts with no CreatedAt are evicted and reported as errors. Store paths
// always stamp CreatedAt and decoding defaults a bad date to now, so only a
// direct memory.Store.Put can leave such an entry.
func (s *Store) Sweep(ctx context.Context) SweepResult {
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := s.tracer.Start(ctx, "cartstore.Sweep")
	defer span.End()

	now := s.clock()
	var result SweepResult
	for _, cart := range s.fallback.Snapshot() {
		if cart.CreatedAt.IsZero() {
			result.Errors = append(result.Errors, apperrors.WithMetadata(apperrors.CodeDecode,
				"fallback cart has no creation time", map[string]string{"cart_id": cart.ID}))
		} else if now.Sub(cart.CreatedAt) <= s.cfg.FallbackMaxAge {
			continue
		}
		if s.fallback.Delete(cart.ID) {
			result.Cleaned++
		}
	}
	if result.Cleaned > 0 || len(result.Errors) > 0 {
		s.logger.Info().Int("cleaned", result.Cleaned).Int("errors", len(result.Errors)).Msg("fallback sweep")
	}
	return result
}

// RunSweeper sweeps every interval until ctx is done. A non-positive interval
// uses Config.SweepInterval. The fallback tier lives in process memory, so the
// process that serves carts must run it; cartctl shell does.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.cfg.SweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
