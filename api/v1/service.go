package apiv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	CoordinationService_StartRound_FullMethodName    = "/silhouette.v1.CoordinationService/StartRound"
	CoordinationService_PublishValues_FullMethodName = "/silhouette.v1.CoordinationService/PublishValues"
	CoordinationService_GetValue_FullMethodName      = "/silhouette.v1.CoordinationService/GetValue"
	CoordinationService_GetBaseParams_FullMethodName = "/silhouette.v1.CoordinationService/GetBaseParams"
	CoordinationService_GetKeyMapping_FullMethodName = "/silhouette.v1.CoordinationService/GetKeyMapping"
)

// CoordinationServiceClient is the client API for CoordinationService.
type CoordinationServiceClient interface {
	StartRound(ctx context.Context, in *StartRoundRequest, opts ...grpc.CallOption) (*StartRoundResponse, error)
	PublishValues(ctx context.Context, in *PublishValuesRequest, opts ...grpc.CallOption) (*PublishValuesResponse, error)
	GetValue(ctx context.Context, in *GetValueRequest, opts ...grpc.CallOption) (*GetValueResponse, error)
	GetBaseParams(ctx context.Context, in *GetBaseParamsRequest, opts ...grpc.CallOption) (*GetBaseParamsResponse, error)
	GetKeyMapping(ctx context.Context, in *GetKeyMappingRequest, opts ...grpc.CallOption) (*GetKeyMappingResponse, error)
}

type coordinationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCoordinationServiceClient returns a client that always selects the
// silhouette codec, so no dial option is needed.
func NewCoordinationServiceClient(cc grpc.ClientConnInterface) CoordinationServiceClient {
	return &coordinationServiceClient{cc}
}

func (c *coordinationServiceClient) invoke(ctx context.Context, method string, in, out Message, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *coordinationServiceClient) StartRound(ctx context.Context, in *StartRoundRequest, opts ...grpc.CallOption) (*StartRoundResponse, error) {
	out := new(StartRoundResponse)
	if err := c.invoke(ctx, CoordinationService_StartRound_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinationServiceClient) PublishValues(ctx context.Context, in *PublishValuesRequest, opts ...grpc.CallOption) (*PublishValuesResponse, error) {
	out := new(PublishValuesResponse)
	if err := c.invoke(ctx, CoordinationService_PublishValues_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinationServiceClient) GetValue(ctx context.Context, in *GetValueRequest, opts ...grpc.CallOption) (*GetValueResponse, error) {
	out := new(GetValueResponse)
	if err := c.invoke(ctx, CoordinationService_GetValue_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinationServiceClient) GetBaseParams(ctx context.Context, in *GetBaseParamsRequest, opts ...grpc.CallOption) (*GetBaseParamsResponse, error) {
	out := new(GetBaseParamsResponse)
	if err := c.invoke(ctx, CoordinationService_GetBaseParams_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinationServiceClient) GetKeyMapping(ctx context.Context, in *GetKeyMappingRequest, opts ...grpc.CallOption) (*GetKeyMappingResponse, error) {
	out := new(GetKeyMappingResponse)
	if err := c.invoke(ctx, CoordinationService_GetKeyMapping_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// CoordinationServiceServer is the server API for CoordinationService.
// Implementations must embed UnimplementedCoordinationServiceServer.
type CoordinationServiceServer interface {
	StartRound(context.Context, *StartRoundRequest) (*StartRoundResponse, error)
	PublishValues(context.Context, *PublishValuesRequest) (*PublishValuesResponse, error)
	GetValue(context.Context, *GetValueRequest) (*GetValueResponse, error)
	GetBaseParams(context.Context, *GetBaseParamsRequest) (*GetBaseParamsResponse, error)
	GetKeyMapping(context.Context, *GetKeyMappingRequest) (*GetKeyMappingResponse, error)
	mustEmbedUnimplementedCoordinationServiceServer()
}

// UnimplementedCoordinationServiceServer answers every method with
// codes.Unimplemented.
type UnimplementedCoordinationServiceServer struct{}

func (UnimplementedCoordinationServiceServer) StartRound(context.Context, *StartRoundRequest) (*StartRoundResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method StartRound not implemented")
}
func (UnimplementedCoordinationServiceServer) PublishValues(context.Context, *PublishValuesRequest) (*PublishValuesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method PublishValues not implemented")
}
func (UnimplementedCoordinationServiceServer) GetValue(context.Context, *GetValueRequest) (*GetValueResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetValue not implemented")
}
func (UnimplementedCoordinationServiceServer) GetBaseParams(context.Context, *GetBaseParamsRequest) (*GetBaseParamsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetBaseParams not implemented")
}
func (UnimplementedCoordinationServiceServer) GetKeyMapping(context.Context, *GetKeyMappingRequest) (*GetKeyMappingResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetKeyMapping not implemented")
}
func (UnimplementedCoordinationServiceServer) mustEmbedUnimplementedCoordinationServiceServer() {}

// RegisterCoordinationServiceServer registers srv with s.
func RegisterCoordinationServiceServer(s grpc.ServiceRegistrar, srv CoordinationServiceServer) {
	s.RegisterService(&CoordinationService_ServiceDesc, srv)
}

// unary adapts one typed server method to a grpc.MethodHandler.
func unary[Req any](method string, call func(CoordinationServiceServer, context.Context, *Req) (any, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(CoordinationServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		})
	}
}

// CoordinationService_ServiceDesc is the grpc.ServiceDesc for
// CoordinationService.
var CoordinationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "silhouette.v1.CoordinationService",
	HandlerType: (*CoordinationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "StartRound",
			Handler: unary(CoordinationService_StartRound_FullMethodName,
				func(s CoordinationServiceServer, ctx context.Context, in *StartRoundRequest) (any, error) {
					return s.StartRound(ctx, in)
				}),
		},
		{
			MethodName: "PublishValues",
			Handler: unary(CoordinationService_PublishValues_FullMethodName,
				func(s CoordinationServiceServer, ctx context.Context, in *PublishValuesRequest) (any, error) {
					return s.PublishValues(ctx, in)
				}),
		},
		{
			MethodName: "GetValue",
			Handler: unary(CoordinationService_GetValue_FullMethodName,
				func(s CoordinationServiceServer, ctx context.Context, in *GetValueRequest) (any, error) {
					return s.GetValue(ctx, in)
				}),
		},
		{
			MethodName: "GetBaseParams",
			Handler: unary(CoordinationService_GetBaseParams_FullMethodName,
				func(s CoordinationServiceServer, ctx context.Context, in *GetBaseParamsRequest) (any, error) {
					return s.GetBaseParams(ctx, in)
				}),
		},
		{
			MethodName: "GetKeyMapping",
			Handler: unary(CoordinationService_GetKeyMapping_FullMethodName,
				func(s CoordinationServiceServer, ctx context.Context, in *GetKeyMappingRequest) (any, error) {
					return s.GetKeyMapping(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coordination.proto",
}
