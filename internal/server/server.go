// Package server exposes the trade book over gRPC.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/pnl-tracker/internal/common"
)

// RequestIDHeader carries the caller's request id, echoed back in the response header.
const RequestIDHeader = "x-request-id"

// NewGRPCServer builds a server with the trades and health services registered.
func NewGRPCServer(svc TradesServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(RequestInterceptor(logger)))
	s := grpc.NewServer(opts...)
	s.RegisterService(&ServiceDesc, svc)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return s, hs
}

// RequestInterceptor tags each call with a request id, stores a scoped
// logger in the context, logs the outcome and maps errors onto gRPC codes.
func RequestInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(RequestIDHeader); len(v) > 0 {
				id = v[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id))

		reqLogger := logger.With("request_id", id, "method", info.FullMethod)
		ctx = common.WithRequestID(ctx, id)
		ctx = common.WithLogger(ctx, reqLogger)

		resp, err := handler(ctx, req)
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			err = common.ToStatus(err)
			reqLogger.Error("grpc.call.failed", "code", status.Code(err).String(), "elapsed_ms", elapsed, "error", err)
			return nil, err
		}
		reqLogger.Info("grpc.call.ok", "elapsed_ms", elapsed)
		return resp, nil
	}
}
