package logging

import (
	"context"

	l "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
)

func NewUnaryServerInterceptor(log *zap.Logger, opts ...l.Option) grpc.UnaryServerInterceptor {
	return l.UnaryServerInterceptor(NewLoggerFunc(log), withDefaults(opts)...)
}

func NewStreamServerInterceptor(log *zap.Logger, opts ...l.Option) grpc.StreamServerInterceptor {
	return l.StreamServerInterceptor(NewLoggerFunc(log), withDefaults(opts)...)
}

// withDefaults logs finished calls only; long WaitOperation calls would
// otherwise produce a start line long before the result.
func withDefaults(opts []l.Option) []l.Option {
	return append([]l.Option{
		l.WithLogOnEvents(l.FinishCall),
		l.WithLevels(CodeToLevel),
	}, opts...)
}

// CodeToLevel keeps caller mistakes and abandoned waits out of the error
// level.
func CodeToLevel(code codes.Code) l.Level {
	switch code {
	case codes.OK, codes.Canceled:
		return l.LevelDebug
	case codes.NotFound, codes.InvalidArgument, codes.AlreadyExists,
		codes.FailedPrecondition, codes.OutOfRange:
		return l.LevelInfo
	case codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted,
		codes.Unavailable, codes.PermissionDenied, codes.Unauthenticated:
		return l.LevelWarn
	default:
		return l.LevelError
	}
}

func NewLoggerFunc(log *zap.Logger) l.Logger {
	return l.LoggerFunc(func(ctx context.Context, level l.Level, msg string, fields ...any) {
		logger := log.WithOptions(zap.AddCallerSkip(3)).Sugar()

		switch level {
		case l.LevelDebug:
			logger.Debugw(msg, fields...)
		case l.LevelInfo:
			logger.Infow(msg, fields...)
		case l.LevelWarn:
			logger.Warnw(msg, fields...)
		case l.LevelError:
			logger.Errorw(msg, fields...)
		default:
			logger.Infow(msg, fields...)
		}
	})
}
