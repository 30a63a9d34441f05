// Package storage defines persistence contracts for the cache service.
package storage

import (
	"context"

	cartstorage "github.com/louisbranch/cartstore/internal/services/cart/storage"
)

// ErrNotFound indicates a key is missing or expired.
var ErrNotFound = cartstorage.ErrNotFound

// Store is a string key/value store with per-entry expiry. It satisfies the
// cart primary tier contract so it can also be embedded in-process.
type Store interface {
	cartstorage.PrimaryTier
	// PurgeExpired deletes expired entries and returns how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)
}
