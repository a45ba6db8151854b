package server

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// userKeyed 是所有写请求都实现的接口，用于在日志里记录操作者
type userKeyed interface {
	GetUserKey() string
}

// =============================================================================
// 1. Logging Interceptor
// =============================================================================

// UnaryLogging 记录每个普通请求的方法、状态码、耗时和操作者
func UnaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	logger = orDefault(logger)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		attrs := []slog.Attr{slog.String("kind", "unary")}
		if r, ok := req.(userKeyed); ok && r.GetUserKey() != "" {
			attrs = append(attrs, slog.String("user", r.GetUserKey()))
		}
		logRPC(ctx, logger, info.FullMethod, time.Since(start), err, attrs...)
		return resp, err
	}
}

// StreamLogging 目前没有流式方法，注册上以备后用
func StreamLogging(logger *slog.Logger) grpc.StreamServerInterceptor {
	logger = orDefault(logger)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logRPC(ss.Context(), logger, info.FullMethod, time.Since(start), err, slog.String("kind", "stream"))
		return err
	}
}

// logRPC: OK 记 Info，Internal/Unknown/DataLoss 记 Error，其余业务错误记 Warn
func logRPC(ctx context.Context, logger *slog.Logger, method string, dur time.Duration, err error, attrs ...slog.Attr) {
	code := status.Code(err)

	level := slog.LevelInfo
	switch code {
	case codes.OK:
	case codes.Internal, codes.Unknown, codes.DataLoss:
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	attrs = append(attrs,
		slog.String("method", method),
		slog.String("code", code.String()),
		slog.Duration("dur", dur),
	)
	if err != nil {
		attrs = append(attrs, slog.String("err", status.Convert(err).Message()))
	}
	logger.LogAttrs(ctx, level, "gRPC request", attrs...)
}

// =============================================================================
// 2. Recovery Interceptor
// =============================================================================

// UnaryRecovery 把 handler 里的 panic 转成 Internal，连接不会被断开
func UnaryRecovery(logger *slog.Logger) grpc.UnaryServerInterceptor {
	logger = orDefault(logger)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, info.FullMethod, r)
			}
		}()
		return handler(ctx, req)
	}
}

func StreamRecovery(logger *slog.Logger) grpc.StreamServerInterceptor {
	logger = orDefault(logger)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, info.FullMethod, r)
			}
		}()
		return handler(srv, ss)
	}
}

func recovered(logger *slog.Logger, method string, p any) error {
	logger.Error("panic recovered",
		slog.String("method", method),
		slog.Any("panic", p),
		slog.String("stack", string(debug.Stack())),
	)
	return status.Errorf(codes.Internal, "internal server error: panic recovered")
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
