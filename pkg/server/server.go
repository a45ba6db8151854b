package server

import (
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// MaxMessageSize 限制单次上传的大小 (内容随请求一起发送)
const MaxMessageSize = 1024 * 1024 * 1024 // 1GB

// New 创建带日志和 Panic 恢复的 gRPC Server。logger 为 nil 时使用 slog.Default()。
// Recovery 放在最内层，保证 panic 也会被日志记录为 Internal
func New(logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryLogging(logger), UnaryRecovery(logger)),
		grpc.ChainStreamInterceptor(StreamLogging(logger), StreamRecovery(logger)),
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.MaxSendMsgSize(MaxMessageSize),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	return grpc.NewServer(append(base, opts...)...)
}
