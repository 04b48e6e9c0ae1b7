package recovery

import (
	"context"

	r "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func NewUnaryServerInterceptor(log *zap.Logger, opts ...r.Option) grpc.UnaryServerInterceptor {
	return r.UnaryServerInterceptor(withHandler(log, opts)...)
}

func NewStreamServerInterceptor(log *zap.Logger, opts ...r.Option) grpc.StreamServerInterceptor {
	return r.StreamServerInterceptor(withHandler(log, opts)...)
}

func withHandler(log *zap.Logger, opts []r.Option) []r.Option {
	handler := r.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
		log.Error("recovered from panic in grpc handler", zap.Any("panic", p), zap.Stack("stack"))
		return status.Error(codes.Internal, "internal error")
	})
	return append([]r.Option{handler}, opts...)
}
