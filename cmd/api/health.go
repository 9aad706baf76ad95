package main

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// serviceName is the health service key for the chat backend.
const serviceName = "chat.v1.ChatService"

// healthReporter keeps the gRPC health status in step with the store.
type healthReporter struct {
	server   *health.Server
	ping     func(ctx context.Context) error
	interval time.Duration
	log      *slog.Logger
}

func newHealthReporter(ping func(ctx context.Context) error, interval time.Duration, log *slog.Logger) *healthReporter {
	return &healthReporter{server: health.NewServer(), ping: ping, interval: interval, log: log}
}

// newHealthServer returns a gRPC server exposing only health and reflection.
func newHealthServer(h *healthReporter, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, h.server)
	reflection.Register(s)
	return s
}

// check pings the store once and publishes the result.
func (h *healthReporter) check(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.ping(ctx); err != nil {
		h.log.Warn("store health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(serviceName, status)
}

// run checks the store until ctx is done, then marks the server as shutting down.
func (h *healthReporter) run(ctx context.Context) {
	h.check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.check(ctx)
		case <-ctx.Done():
			h.server.Shutdown()
			return
		}
	}
}
