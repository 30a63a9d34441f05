// Package errors provides structured error handling for the cart store and
// the cachekv service.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Tier errors. Both mean "tier 1 unavailable for this attempt".
	CodeProbeTimeout Code = "CART_PROBE_TIMEOUT"
	CodeTierIO       Code = "CART_TIER_IO"

	// CodeFallbackEvicted marks a cart dropped from a capped fallback tier.
	CodeFallbackEvicted Code = "CART_FALLBACK_EVICTED"

	// Payload errors
	CodeDecode     Code = "CART_DECODE"
	CodeValidation Code = "CART_VALIDATION"

	// Cache service errors
	CodeCacheKeyEmpty   Code = "CACHE_KEY_EMPTY"
	CodeCacheTTLInvalid Code = "CACHE_TTL_INVALID"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeValidation,
		CodeDecode,
		CodeCacheKeyEmpty,
		CodeCacheTTLInvalid:
		return codes.InvalidArgument

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// Unavailable - the backing tier could not answer
	case CodeProbeTimeout,
		CodeTierIO:
		return codes.Unavailable

	case CodeFallbackEvicted:
		return codes.ResourceExhausted

	default:
		return codes.Internal
	}
}
