package grpc

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const cacheService = "cachekv.v1.CacheService"

// healthFixture is a loopback health server with per-service status.
type healthFixture struct {
	addr   string
	health *health.Server
}

func (f *healthFixture) set(service string, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	f.health.SetServingStatus(service, status)
}

func startHealthFixture(t *testing.T, statuses map[string]grpc_health_v1.HealthCheckResponse_ServingStatus) *healthFixture {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	grpcServer := gogrpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	for service, status := range statuses {
		healthServer.SetServingStatus(service, status)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	t.Cleanup(func() {
		grpcServer.Stop()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
		}
	})
	return &healthFixture{addr: listener.Addr().String(), health: healthServer}
}

func dialFixture(t *testing.T, f *healthFixture) *gogrpc.ClientConn {
	t.Helper()

	conn, err := gogrpc.NewClient(f.addr, gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWaitForHealth(t *testing.T) {
	t.Parallel()

	serving := grpc_health_v1.HealthCheckResponse_SERVING
	notServing := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	tests := []struct {
		name     string
		statuses map[string]grpc_health_v1.HealthCheckResponse_ServingStatus
		service  string
		wantErr  bool
	}{
		{name: "overall serving", statuses: map[string]grpc_health_v1.HealthCheckResponse_ServingStatus{"": serving}},
		{name: "cache serving", statuses: map[string]grpc_health_v1.HealthCheckResponse_ServingStatus{"": serving, cacheService: serving}, service: cacheService},
		{name: "cache not serving", statuses: map[string]grpc_health_v1.HealthCheckResponse_ServingStatus{"": serving, cacheService: notServing}, service: cacheService, wantErr: true},
		{name: "cache unknown", statuses: map[string]grpc_health_v1.HealthCheckResponse_ServingStatus{"": serving}, service: cacheService, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			conn := dialFixture(t, startHealthFixture(t, tc.statuses))
			ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
			defer cancel()

			err := WaitForHealth(ctx, conn, tc.service, nil)
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("wait for health: %v", err)
			}
		})
	}
}

func TestWaitForHealthRecoversWhenCacheStartsServing(t *testing.T) {
	t.Parallel()

	f := startHealthFixture(t, map[string]grpc_health_v1.HealthCheckResponse_ServingStatus{
		cacheService: grpc_health_v1.HealthCheckResponse_NOT_SERVING,
	})
	conn := dialFixture(t, f)
	go func() {
		time.Sleep(200 * time.Millisecond)
		f.set(cacheService, grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	var logged []string
	logf := func(format string, args ...any) {
		logged = append(logged, format)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := WaitForHealth(ctx, conn, cacheService, logf); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	if len(logged) < 2 || !strings.Contains(logged[len(logged)-1], "SERVING") {
		t.Fatalf("logged = %v", logged)
	}
}

func TestWaitForHealthNilConn(t *testing.T) {
	t.Parallel()

	if err := WaitForHealth(context.Background(), nil, cacheService, nil); err == nil {
		t.Fatal("expected error for nil connection")
	}
}
