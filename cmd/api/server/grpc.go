package server

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"messaging-service/internal/adapter/grpc/middleware"
	"messaging-service/pkg/logger"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "messaging.v1.MessagingService"

// SetupGRPC creates the gRPC server that exposes the standard health service.
func SetupGRPC(l *zap.Logger, rateLimiter *middleware.RateLimiter) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			rateLimiter.UnaryInterceptor(),
		),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	l.Info("gRPC health service registered", zap.String("service", ServiceName))
	return grpcServer, healthServer
}
