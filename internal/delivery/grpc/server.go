package grpc

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Xausdorf/payout-hub/internal/delivery/auth"
)

// NewServer builds the gRPC server with the payout service, the standard
// health service and reflection registered. The health status starts as
// SERVING for both the payout service and the server as a whole.
func NewServer(h *Handler, v *auth.Verifier, log *zap.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		LoggingInterceptor(log),
		AuthInterceptor(v),
	))

	RegisterPayoutServiceServer(srv, h)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	reflection.Register(srv)
	return srv, hs
}
