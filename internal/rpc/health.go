// Package rpc serves the standard gRPC health protocol for the catalog.
package rpc

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the health-checked service name
const ServiceName = "voicecatalog.v1.VoiceCatalog"

// ReadyFunc reports whether the catalog can serve lookups
type ReadyFunc func() bool

// HealthServer exposes grpc.health.v1 with a status derived from ReadyFunc
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	ready  ReadyFunc
	logger zerolog.Logger

	mu   sync.Mutex
	last healthpb.HealthCheckResponse_ServingStatus
}

// NewHealthServer creates the gRPC server and registers the health service
func NewHealthServer(ready ReadyFunc, logger zerolog.Logger) *HealthServer {
	srv := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    10 * time.Second,
			Timeout: 3 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	s := &HealthServer{
		server: srv,
		health: hs,
		ready:  ready,
		logger: logger.With().Str("component", "grpc").Logger(),
		last:   healthpb.HealthCheckResponse_UNKNOWN,
	}
	s.Refresh()
	return s
}

// Refresh recomputes the serving status for the server and ServiceName
func (s *HealthServer) Refresh() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.ready != nil && s.ready() {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)

	if status != s.last {
		s.logger.Info().Str("status", status.String()).Msg("Health status changed")
		s.last = status
	}
}

// Watch refreshes the status every interval until ctx is done
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh()
		}
	}
}

// Serve accepts connections on lis until Stop is called
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
	return s.server.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains the server
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
