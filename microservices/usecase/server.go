package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	refereeRPC "ardamas/microservices/refereerpc"
	"ardamas/microservices/repository"
)

// NewGRPCServer builds a server exposing the referee and the standard health
// service, with every unary call logged.
func NewGRPCServer(log *zap.SugaredLogger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(loggingInterceptor(log))}, opts...)
	server := grpc.NewServer(opts...)

	refereeRPC.RegisterRefereeServer(server, NewRefereeUseCase(repository.NewReplayRepository(log)))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(refereeRPC.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server
}

func loggingInterceptor(log *zap.SugaredLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Infow("rpc",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}
