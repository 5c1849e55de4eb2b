package grpc

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SyncService is the health service name the controller side watches.
// The empty name reports overall server health.
const SyncService = "fermpi.Sync"

// Pinger is anything whose reachability decides health (the store)
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker publishes store reachability on grpc.health.v1.Health
type HealthChecker struct {
	server   *health.Server
	target   Pinger
	interval time.Duration
	timeout  time.Duration
}

// NewHealthChecker creates a checker polling target every interval
func NewHealthChecker(target Pinger, interval time.Duration) *HealthChecker {
	return &HealthChecker{
		server:   health.NewServer(),
		target:   target,
		interval: interval,
		timeout:  interval / 2,
	}
}

// Register adds the health service to srv
func (h *HealthChecker) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, h.server)
}

// Start checks immediately, then every interval until ctx is cancelled.
// On return every service is marked NOT_SERVING.
func (h *HealthChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check(ctx)

	for {
		select {
		case <-ticker.C:
			h.Check(ctx)

		case <-ctx.Done():
			h.server.Shutdown()
			return
		}
	}
}

// Check pings the target once and updates the serving status
func (h *HealthChecker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.target.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Msg("store unreachable, reporting NOT_SERVING")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(SyncService, status)
	return status
}
