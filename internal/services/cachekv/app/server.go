// Package server wires the cachekv runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/cartstore/internal/platform/config"
	"github.com/louisbranch/cartstore/internal/platform/logging"
	"github.com/louisbranch/cartstore/internal/platform/timeouts"
	cachekvservice "github.com/louisbranch/cartstore/internal/services/cachekv/api/grpc/cachekv"
	cachesqlite "github.com/louisbranch/cartstore/internal/services/cachekv/storage/sqlite"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Env holds storage and maintenance settings for the cache server.
type Env struct {
	DBPath        string        `env:"CARTSTORE_CACHEKV_DB_PATH"`
	PurgeInterval time.Duration `env:"CARTSTORE_CACHEKV_PURGE_INTERVAL" envDefault:"1m"`
	LogLevel      string        `env:"CARTSTORE_LOG_LEVEL" envDefault:"info"`
	LogConsole    bool          `env:"CARTSTORE_LOG_CONSOLE"`
}

func loadServerEnv() Env {
	var cfg Env
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "cachekv.db")
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = time.Minute
	}
	return cfg
}

// Server hosts the cache gRPC API and storage lifecycle.
type Server struct {
	listener      net.Listener
	grpcServer    *grpc.Server
	health        *health.Server
	store         *cachesqlite.Store
	purgeInterval time.Duration
	logger        zerolog.Logger
}

// New creates a configured cache server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured cache server for the provided address,
// reading the rest of its settings from the environment.
func NewWithAddr(addr string) (*Server, error) {
	return NewWithEnv(addr, loadServerEnv())
}

// NewWithEnv creates a cache server from explicit settings.
func NewWithEnv(addr string, env Env) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	store, err := openCacheStore(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	cachekvservice.RegisterCacheServiceServer(grpcServer, cachekvservice.NewService(store))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(cachekvservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	purgeInterval := env.PurgeInterval
	if purgeInterval <= 0 {
		purgeInterval = time.Minute
	}
	return &Server{
		listener:      listener,
		grpcServer:    grpcServer,
		health:        healthServer,
		store:         store,
		purgeInterval: purgeInterval,
		logger: logging.New(logging.Options{
			Service: "cachekv",
			Level:   env.LogLevel,
			Console: env.LogConsole,
		}),
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a cache server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server and the purge loop until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go s.purgeLoop(purgeCtx)

	s.logger.Info().Str("addr", s.listener.Addr().String()).Msg("cachekv server listening")
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.gracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// gracefulStop waits up to timeouts.Shutdown for in-flight calls.
func (s *Server) gracefulStop() {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeouts.Shutdown):
		s.grpcServer.Stop()
	}
}

func (s *Server) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn().Err(err).Msg("purge expired entries")
				}
				continue
			}
			if n > 0 {
				s.logger.Debug().Int64("purged", n).Msg("purged expired entries")
			}
		}
	}
}

// Close releases cache server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close cache store")
		}
	}
}

func openCacheStore(path string) (*cachesqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := cachesqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache sqlite store: %w", err)
	}
	return store, nil
}
