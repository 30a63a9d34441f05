package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/cartstore/internal/platform/errors"
	"github.com/louisbranch/cartstore/internal/services/cart/storage"
)

// Probe decides whether the primary tier is reachable right now. Results
// are never cached; every call reaches the tier.
type Probe struct {
	primary storage.PrimaryTier
	key     string
	timeout time.Duration
}

// NewProbe returns a probe reading ProbeKey from primary.
func NewProbe(primary storage.PrimaryTier, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = DefaultConfig().ProbeTimeout
	}
	return &Probe{primary: primary, key: ProbeKey, timeout: timeout}
}

// Available races a read of the probe key against the timeout. A miss counts
// as reachable. The returned error explains an unavailable result and is
// either CART_PROBE_TIMEOUT or CART_TIER_IO; a nil primary is unavailable
// without error.
func (p *Probe) Available(ctx context.Context) (bool, error) {
	if p == nil || p.primary == nil {
		return false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// Buffered so a primary that ignores ctx cannot leak the goroutine on send.
	done := make(chan error, 1)
	go func() {
		_, err := p.primary.Get(probeCtx, p.key)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil || errors.Is(err, storage.ErrNotFound) {
			return true, nil
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return false, p.timeoutError()
		}
		return false, apperrors.Wrap(apperrors.CodeTierIO, "probe primary tier", err)
	case <-probeCtx.Done():
		if ctx.Err() != nil {
			return false, apperrors.Wrap(apperrors.CodeTierIO, "probe primary tier", ctx.Err())
		}
		return false, p.timeoutError()
	}
}

func (p *Probe) timeoutError() error {
	return apperrors.New(apperrors.CodeProbeTimeout,
		fmt.Sprintf("primary tier did not answer within %s", p.timeout))
}
