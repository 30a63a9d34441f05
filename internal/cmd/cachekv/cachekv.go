// Package cachekv parses cache service flags and launches the service.
package cachekv

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/cartstore/internal/platform/cmd"
	"github.com/louisbranch/cartstore/internal/platform/discovery"
	server "github.com/louisbranch/cartstore/internal/services/cachekv/app"
)

// Config holds cachekv command configuration.
type Config struct {
	Port int `env:"CARTSTORE_CACHEKV_PORT"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Port <= 0 {
		cfg.Port = discovery.GRPCPort(discovery.ServiceCacheKV)
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The cachekv gRPC server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the cachekv gRPC service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCacheKV, func(ctx context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
