package client

import (
	"fmt"
	"time"

	cvrpc "curationvault/pkg/api/cvrpc/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// CVClient 封装了与 CurationVault 服务端的连接
type CVClient struct {
	conn *grpc.ClientConn

	// 公开具体的 Service Client
	Actor cvrpc.ActorServiceClient
}

// NewCVClient 创建并初始化客户端
// 它会立即返回，连接在后台进行
func NewCVClient(addr string, extra ...grpc.DialOption) (*CVClient, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(cvrpc.CodecName),
			grpc.MaxCallRecvMsgSize(1024*1024*1024), // 1GB
			grpc.MaxCallSendMsgSize(1024*1024*1024), // 1GB
		),
		// 保持连接活跃
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	conn, err := grpc.NewClient(addr, append(opts, extra...)...)
	if err != nil {
		// 这里的 err 通常只是配置错误（如地址格式不对），网络不通不会在这里报错
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", addr, err)
	}

	return &CVClient{
		conn:  conn,
		Actor: cvrpc.NewActorServiceClient(conn),
	}, nil
}

// Close 关闭底层连接
func (c *CVClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
