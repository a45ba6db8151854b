package cvrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "curationvault.v1.ActorService"

// ActorServiceServer 是服务端需要实现的接口
type ActorServiceServer interface {
	CreateMetadata(context.Context, *CreateMetadataRequest) (*FileResponse, error)
	CreateContent(context.Context, *CreateContentRequest) (*VersionResponse, error)
	RevertContent(context.Context, *RevertContentRequest) (*VersionResponse, error)
	UpdateMetadata(context.Context, *UpdateMetadataRequest) (*FileResponse, error)
	Destroy(context.Context, *DestroyRequest) (*DestroyResponse, error)
	GetFile(context.Context, *GetFileRequest) (*FileResponse, error)
	GetContent(context.Context, *GetContentRequest) (*ContentResponse, error)
	ListVersions(context.Context, *ListVersionsRequest) (*ListVersionsResponse, error)
	VersionsByCommitter(context.Context, *VersionsByCommitterRequest) (*ListVersionsResponse, error)
	CreateWork(context.Context, *CreateWorkRequest) (*WorkResponse, error)
	SetRepresentative(context.Context, *SetRepresentativeRequest) (*WorkResponse, error)
	GetWork(context.Context, *GetWorkRequest) (*WorkResponse, error)
	CreateUploadSet(context.Context, *CreateUploadSetRequest) (*UploadSetResponse, error)
}

// ActorServiceClient 是客户端接口，所有调用都走 CBOR codec
type ActorServiceClient interface {
	CreateMetadata(ctx context.Context, in *CreateMetadataRequest, opts ...grpc.CallOption) (*FileResponse, error)
	CreateContent(ctx context.Context, in *CreateContentRequest, opts ...grpc.CallOption) (*VersionResponse, error)
	RevertContent(ctx context.Context, in *RevertContentRequest, opts ...grpc.CallOption) (*VersionResponse, error)
	UpdateMetadata(ctx context.Context, in *UpdateMetadataRequest, opts ...grpc.CallOption) (*FileResponse, error)
	Destroy(ctx context.Context, in *DestroyRequest, opts ...grpc.CallOption) (*DestroyResponse, error)
	GetFile(ctx context.Context, in *GetFileRequest, opts ...grpc.CallOption) (*FileResponse, error)
	GetContent(ctx context.Context, in *GetContentRequest, opts ...grpc.CallOption) (*ContentResponse, error)
	ListVersions(ctx context.Context, in *ListVersionsRequest, opts ...grpc.CallOption) (*ListVersionsResponse, error)
	VersionsByCommitter(ctx context.Context, in *VersionsByCommitterRequest, opts ...grpc.CallOption) (*ListVersionsResponse, error)
	CreateWork(ctx context.Context, in *CreateWorkRequest, opts ...grpc.CallOption) (*WorkResponse, error)
	SetRepresentative(ctx context.Context, in *SetRepresentativeRequest, opts ...grpc.CallOption) (*WorkResponse, error)
	GetWork(ctx context.Context, in *GetWorkRequest, opts ...grpc.CallOption) (*WorkResponse, error)
	CreateUploadSet(ctx context.Context, in *CreateUploadSetRequest, opts ...grpc.CallOption) (*UploadSetResponse, error)
}

// FullMethod 返回 "/curationvault.v1.ActorService/<method>"
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// =============================================================================
// Server side
// =============================================================================

// unary 把一个强类型的方法包装成 grpc.MethodHandler
func unary[Req, Resp any](method string, call func(ActorServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ActorServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ActorServiceServer), ctx, req.(*Req))
			})
		},
	}
}

// ActorService_ServiceDesc 手写的服务描述，等价于 protoc 生成的版本
var ActorService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ActorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateMetadata", ActorServiceServer.CreateMetadata),
		unary("CreateContent", ActorServiceServer.CreateContent),
		unary("RevertContent", ActorServiceServer.RevertContent),
		unary("UpdateMetadata", ActorServiceServer.UpdateMetadata),
		unary("Destroy", ActorServiceServer.Destroy),
		unary("GetFile", ActorServiceServer.GetFile),
		unary("GetContent", ActorServiceServer.GetContent),
		unary("ListVersions", ActorServiceServer.ListVersions),
		unary("VersionsByCommitter", ActorServiceServer.VersionsByCommitter),
		unary("CreateWork", ActorServiceServer.CreateWork),
		unary("SetRepresentative", ActorServiceServer.SetRepresentative),
		unary("GetWork", ActorServiceServer.GetWork),
		unary("CreateUploadSet", ActorServiceServer.CreateUploadSet),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "curationvault/v1/actor.cbor",
}

func RegisterActorServiceServer(s grpc.ServiceRegistrar, srv ActorServiceServer) {
	s.RegisterService(&ActorService_ServiceDesc, srv)
}

// UnimplementedActorServiceServer 嵌入后可以只实现部分方法
type UnimplementedActorServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedActorServiceServer) CreateMetadata(context.Context, *CreateMetadataRequest) (*FileResponse, error) {
	return nil, unimplemented("CreateMetadata")
}
func (UnimplementedActorServiceServer) CreateContent(context.Context, *CreateContentRequest) (*VersionResponse, error) {
	return nil, unimplemented("CreateContent")
}
func (UnimplementedActorServiceServer) RevertContent(context.Context, *RevertContentRequest) (*VersionResponse, error) {
	return nil, unimplemented("RevertContent")
}
func (UnimplementedActorServiceServer) UpdateMetadata(context.Context, *UpdateMetadataRequest) (*FileResponse, error) {
	return nil, unimplemented("UpdateMetadata")
}
func (UnimplementedActorServiceServer) Destroy(context.Context, *DestroyRequest) (*DestroyResponse, error) {
	return nil, unimplemented("Destroy")
}
func (UnimplementedActorServiceServer) GetFile(context.Context, *GetFileRequest) (*FileResponse, error) {
	return nil, unimplemented("GetFile")
}
func (UnimplementedActorServiceServer) GetContent(context.Context, *GetContentRequest) (*ContentResponse, error) {
	return nil, unimplemented("GetContent")
}
func (UnimplementedActorServiceServer) ListVersions(context.Context, *ListVersionsRequest) (*ListVersionsResponse, error) {
	return nil, unimplemented("ListVersions")
}
func (UnimplementedActorServiceServer) VersionsByCommitter(context.Context, *VersionsByCommitterRequest) (*ListVersionsResponse, error) {
	return nil, unimplemented("VersionsByCommitter")
}
func (UnimplementedActorServiceServer) CreateWork(context.Context, *CreateWorkRequest) (*WorkResponse, error) {
	return nil, unimplemented("CreateWork")
}
func (UnimplementedActorServiceServer) SetRepresentative(context.Context, *SetRepresentativeRequest) (*WorkResponse, error) {
	return nil, unimplemented("SetRepresentative")
}
func (UnimplementedActorServiceServer) GetWork(context.Context, *GetWorkRequest) (*WorkResponse, error) {
	return nil, unimplemented("GetWork")
}
func (UnimplementedActorServiceServer) CreateUploadSet(context.Context, *CreateUploadSetRequest) (*UploadSetResponse, error) {
	return nil, unimplemented("CreateUploadSet")
}

// =============================================================================
// Client side
// =============================================================================

type actorServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewActorServiceClient(cc grpc.ClientConnInterface) ActorServiceClient {
	return &actorServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *actorServiceClient) CreateMetadata(ctx context.Context, in *CreateMetadataRequest, opts ...grpc.CallOption) (*FileResponse, error) {
	return invoke[FileResponse](ctx, c.cc, "CreateMetadata", in, opts)
}
func (c *actorServiceClient) CreateContent(ctx context.Context, in *CreateContentRequest, opts ...grpc.CallOption) (*VersionResponse, error) {
	return invoke[VersionResponse](ctx, c.cc, "CreateContent", in, opts)
}
func (c *actorServiceClient) RevertContent(ctx context.Context, in *RevertContentRequest, opts ...grpc.CallOption) (*VersionResponse, error) {
	return invoke[VersionResponse](ctx, c.cc, "RevertContent", in, opts)
}
func (c *actorServiceClient) UpdateMetadata(ctx context.Context, in *UpdateMetadataRequest, opts ...grpc.CallOption) (*FileResponse, error) {
	return invoke[FileResponse](ctx, c.cc, "UpdateMetadata", in, opts)
}
func (c *actorServiceClient) Destroy(ctx context.Context, in *DestroyRequest, opts ...grpc.CallOption) (*DestroyResponse, error) {
	return invoke[DestroyResponse](ctx, c.cc, "Destroy", in, opts)
}
func (c *actorServiceClient) GetFile(ctx context.Context, in *GetFileRequest, opts ...grpc.CallOption) (*FileResponse, error) {
	return invoke[FileResponse](ctx, c.cc, "GetFile", in, opts)
}
func (c *actorServiceClient) GetContent(ctx context.Context, in *GetContentRequest, opts ...grpc.CallOption) (*ContentResponse, error) {
	return invoke[ContentResponse](ctx, c.cc, "GetContent", in, opts)
}
func (c *actorServiceClient) ListVersions(ctx context.Context, in *ListVersionsRequest, opts ...grpc.CallOption) (*ListVersionsResponse, error) {
	return invoke[ListVersionsResponse](ctx, c.cc, "ListVersions", in, opts)
}
func (c *actorServiceClient) VersionsByCommitter(ctx context.Context, in *VersionsByCommitterRequest, opts ...grpc.CallOption) (*ListVersionsResponse, error) {
	return invoke[ListVersionsResponse](ctx, c.cc, "VersionsByCommitter", in, opts)
}
func (c *actorServiceClient) CreateWork(ctx context.Context, in *CreateWorkRequest, opts ...grpc.CallOption) (*WorkResponse, error) {
	return invoke[WorkResponse](ctx, c.cc, "CreateWork", in, opts)
}
func (c *actorServiceClient) SetRepresentative(ctx context.Context, in *SetRepresentativeRequest, opts ...grpc.CallOption) (*WorkResponse, error) {
	return invoke[WorkResponse](ctx, c.cc, "SetRepresentative", in, opts)
}
func (c *actorServiceClient) GetWork(ctx context.Context, in *GetWorkRequest, opts ...grpc.CallOption) (*WorkResponse, error) {
	return invoke[WorkResponse](ctx, c.cc, "GetWork", in, opts)
}
func (c *actorServiceClient) CreateUploadSet(ctx context.Context, in *CreateUploadSetRequest, opts ...grpc.CallOption) (*UploadSetResponse, error) {
	return invoke[UploadSetResponse](ctx, c.cc, "CreateUploadSet", in, opts)
}
