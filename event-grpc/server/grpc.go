package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/rx3lixir/event-listing/pkg/metrics"
)

// NewGRPCServer собирает gRPC сервер с метриками, стандартным health сервисом и reflection
// (дескриптор сервиса - FileDescriptor).
// Статус health переключает вызывающий код через возвращенный *health.Server.
func NewGRPCServer(srv *Server, serviceName string) (*grpc.Server, *health.Server) {
	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(metrics.UnaryServerInterceptor(serviceName)),
	)

	RegisterEventListingServer(grpcSrv, srv)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(grpcSrv)

	return grpcSrv, healthSrv
}
