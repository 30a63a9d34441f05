package store

import (
	"strings"
	"time"

	"github.com/louisbranch/cartstore/internal/platform/timeouts"
	"github.com/louisbranch/cartstore/internal/services/cart/storage/memory"
)

const (
	// DefaultKeyPrefix namespaces cart keys in the primary tier.
	DefaultKeyPrefix = "cart:"
	// ProbeKey is read by the availability probe and never written.
	ProbeKey = "health:probe"
)

// Config holds store tuning loaded from the environment.
type Config struct {
	PrimaryTTL       time.Duration `env:"CARTSTORE_PRIMARY_TTL" envDefault:"168h"`
	FallbackMaxAge   time.Duration `env:"CARTSTORE_FALLBACK_MAX_AGE" envDefault:"24h"`
	ProbeTimeout     time.Duration `env:"CARTSTORE_PROBE_TIMEOUT" envDefault:"5s"`
	// FallbackCapacity caps the fallback tier. Zero keeps every cart until the
	// sweeper expires it.
	FallbackCapacity int           `env:"CARTSTORE_FALLBACK_CAPACITY" envDefault:"0"`
	KeyPrefix        string        `env:"CARTSTORE_KEY_PREFIX" envDefault:"cart:"`
	SweepInterval    time.Duration `env:"CARTSTORE_SWEEP_INTERVAL" envDefault:"1h"`
}

// DefaultConfig returns the defaults used when no environment is loaded.
func DefaultConfig() Config {
	return Config{
		PrimaryTTL:       7 * 24 * time.Hour,
		FallbackMaxAge:   24 * time.Hour,
		ProbeTimeout:     timeouts.AvailabilityProbe,
		FallbackCapacity: memory.Unbounded,
		KeyPrefix:        DefaultKeyPrefix,
		SweepInterval:    time.Hour,
	}
}

// normalized fills zero or invalid fields from DefaultConfig.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.PrimaryTTL <= 0 {
		c.PrimaryTTL = def.PrimaryTTL
	}
	if c.FallbackMaxAge <= 0 {
		c.FallbackMaxAge = def.FallbackMaxAge
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = def.ProbeTimeout
	}
	if c.FallbackCapacity < 0 {
		c.FallbackCapacity = def.FallbackCapacity
	}
	if strings.TrimSpace(c.KeyPrefix) == "" {
		c.KeyPrefix = def.KeyPrefix
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
	}
	return c
}
