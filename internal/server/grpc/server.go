// Package grpc runs the gRPC health endpoint used by orchestrator health checks.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/geocrypt/internal/logging"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ReadinessCheck reports whether a backend dependency can serve requests.
type ReadinessCheck interface {
	Ping(ctx context.Context) error
}

// CheckFunc adapts a function to ReadinessCheck.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Ping(ctx context.Context) error { return f(ctx) }

const (
	defaultCheckInterval = 5 * time.Second
	defaultCheckTimeout  = 500 * time.Millisecond
)

type GRPCServer struct {
	address  string
	logger   logging.Logger
	checks   map[string]ReadinessCheck
	health   *grpchealth.Server
	interval time.Duration
	timeout  time.Duration
}

// NewGRPCServer builds a health server whose overall status is SERVING only
// while every named check passes.
func NewGRPCServer(a string, l logging.Logger, checks map[string]ReadinessCheck) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		checks:   checks,
		health:   grpchealth.NewServer(),
		interval: defaultCheckInterval,
		timeout:  defaultCheckTimeout,
	}
}

// evaluate runs every check once and publishes the resulting status.
func (s *GRPCServer) evaluate(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, c := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := c.Ping(cctx)
		cancel()

		if err != nil {
			s.logger.Warn(ctx, "readiness check failed", "check", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}
	s.health.SetServingStatus("", status)
	return status
}

func (s *GRPCServer) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.evaluate(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evaluate(ctx)
		}
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer()

	// start pessimistic
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, s.health)

	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gPRC server...")
		s.health.Shutdown()

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			srv.Stop()
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}
	return nil
}
