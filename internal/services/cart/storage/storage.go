// Package storage defines persistence contracts for cart state.
//
// The primary tier is an external key/value service holding encoded carts
// with a TTL. The fallback tier (see the memory subpackage) is a
// process-local map of native carts.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested key is missing or expired.
var ErrNotFound = errors.New("record not found")

// PrimaryTier is the networked cache holding encoded carts.
//
// Any error other than ErrNotFound means the tier could not serve this
// attempt.
type PrimaryTier interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete reports whether a live key was removed.
	Delete(ctx context.Context, key string) (bool, error)
	ScanKeys(ctx context.Context, prefix string) ([]string, error)
}
