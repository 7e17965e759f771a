// Package grpcserver runs the standard gRPC health checking service
// (grpc.health.v1.Health) for the user API. The serving status follows the
// reachability of the user storage.
package grpcserver

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/userapi/internal/grpcserver/interceptor"
	"github.com/patric-chuzhbe/userapi/internal/logger"
)

// ServiceName is the health service name reported next to the overall ("") status.
const ServiceName = "userapi.UserService"

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthProber pings the storage periodically and publishes the result
// through a grpc health server.
type HealthProber struct {
	db       pinger
	interval time.Duration
	health   *health.Server
}

// NewHealthProber creates a prober whose statuses start as NOT_SERVING
// until the first successful probe.
func NewHealthProber(db pinger, interval time.Duration) *HealthProber {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthProber{
		db:       db,
		interval: interval,
		health:   healthServer,
	}
}

// Probe pings the storage once and updates the serving status.
func (p *HealthProber) Probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := p.db.Ping(ctx); err != nil {
		logger.Log.Warnw("storage ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	p.health.SetServingStatus("", status)
	p.health.SetServingStatus(ServiceName, status)
}

// Run probes immediately and then every interval until ctx is done, at which
// point every status is switched to NOT_SERVING for good.
func (p *HealthProber) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.Probe(ctx)
		for {
			select {
			case <-ctx.Done():
				p.health.Shutdown()
				return
			case <-ticker.C:
				p.Probe(ctx)
			}
		}
	}()
}

// NewGRPCServer listens on addr and registers the health service of prober.
func NewGRPCServer(addr string, prober *HealthProber) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor([]string{
				"/grpc.health.v1.Health/Check",
			}),
		),
	)
	healthpb.RegisterHealthServer(server, prober.health)

	return server, lis, nil
}
