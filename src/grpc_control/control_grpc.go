package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The control API uses protobuf well-known types only, so the service
// descriptor is declared by hand instead of generated.

const ServiceName = "marketstreamer.control.v1.Control"

const (
	methodGetStatus         = "/" + ServiceName + "/GetStatus"
	methodListActiveSymbols = "/" + ServiceName + "/ListActiveSymbols"
	methodEvictIdle         = "/" + ServiceName + "/EvictIdle"
	methodGetSymbolState    = "/" + ServiceName + "/GetSymbolState"
)

// ControlServer is the server API for the control service.
type ControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListActiveSymbols(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	EvictIdle(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSymbolState(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&Control_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func emptyHandler(fullMethod string, call func(ControlServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ControlServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func getSymbolStateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).GetSymbolState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetSymbolState}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).GetSymbolState(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var Control_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: emptyHandler(methodGetStatus, ControlServer.GetStatus)},
		{MethodName: "ListActiveSymbols", Handler: emptyHandler(methodListActiveSymbols, ControlServer.ListActiveSymbols)},
		{MethodName: "EvictIdle", Handler: emptyHandler(methodEvictIdle, ControlServer.EvictIdle)},
		{MethodName: "GetSymbolState", Handler: getSymbolStateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "marketstreamer/control/v1/control.proto",
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetStatus, &emptypb.Empty{}, opts...)
}

func (c *ControlClient) ListActiveSymbols(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListActiveSymbols, &emptypb.Empty{}, opts...)
}

func (c *ControlClient) EvictIdle(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodEvictIdle, &emptypb.Empty{}, opts...)
}

func (c *ControlClient) GetSymbolState(ctx context.Context, symbol string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(map[string]any{"symbol": symbol})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, methodGetSymbolState, req, opts...)
}

func (c *ControlClient) invoke(ctx context.Context, method string, in any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
