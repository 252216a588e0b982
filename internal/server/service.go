package server

import (
	"context"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "connectn.v1.ConnectNService"

const serviceFile = "connectn/v1/connectn.proto"

// ConnectNServiceServer is the server API for ConnectNService. Requests and
// responses are google.protobuf.Struct documents; RenderBoard answers with a
// google.api.HttpBody.
type ConnectNServiceServer interface {
	CreateGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListGames(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PlacePiece(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestDrop(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ToggleTurn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetToggleEnabled(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetActivePlayer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetDimensions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetWinningCount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetInterval(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearError(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetScores(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenderBoard(context.Context, *structpb.Struct) (*httpbody.HttpBody, error)
	StreamGameUpdates(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedConnectNServiceServer can be embedded to get forward compatible
// implementations.
type UnimplementedConnectNServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedConnectNServiceServer) CreateGame(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("CreateGame")
}
func (UnimplementedConnectNServiceServer) ListGames(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("ListGames")
}
func (UnimplementedConnectNServiceServer) GetGame(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("GetGame")
}
func (UnimplementedConnectNServiceServer) DeleteGame(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("DeleteGame")
}
func (UnimplementedConnectNServiceServer) PlacePiece(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("PlacePiece")
}
func (UnimplementedConnectNServiceServer) RequestDrop(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("RequestDrop")
}
func (UnimplementedConnectNServiceServer) ToggleTurn(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("ToggleTurn")
}
func (UnimplementedConnectNServiceServer) SetToggleEnabled(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetToggleEnabled")
}
func (UnimplementedConnectNServiceServer) SetActivePlayer(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetActivePlayer")
}
func (UnimplementedConnectNServiceServer) SetDimensions(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetDimensions")
}
func (UnimplementedConnectNServiceServer) SetWinningCount(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetWinningCount")
}
func (UnimplementedConnectNServiceServer) SetInterval(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetInterval")
}
func (UnimplementedConnectNServiceServer) ClearError(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("ClearError")
}
func (UnimplementedConnectNServiceServer) ResetGame(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("ResetGame")
}
func (UnimplementedConnectNServiceServer) GetScores(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("GetScores")
}
func (UnimplementedConnectNServiceServer) RenderBoard(context.Context, *structpb.Struct) (*httpbody.HttpBody, error) {
	return nil, unimplemented("RenderBoard")
}
func (UnimplementedConnectNServiceServer) StreamGameUpdates(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error {
	return unimplemented("StreamGameUpdates")
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unaryHandler adapts a ConnectNServiceServer method to grpc's method handler
func unaryHandler[Res proto.Message](name string, call func(ConnectNServiceServer, context.Context, *structpb.Struct) (Res, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ConnectNServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(name),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ConnectNServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamGameUpdatesHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ConnectNServiceServer).StreamGameUpdates(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// ConnectNService_ServiceDesc is the grpc.ServiceDesc for ConnectNService
var ConnectNService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConnectNServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateGame", Handler: unaryHandler("CreateGame", ConnectNServiceServer.CreateGame)},
		{MethodName: "ListGames", Handler: unaryHandler("ListGames", ConnectNServiceServer.ListGames)},
		{MethodName: "GetGame", Handler: unaryHandler("GetGame", ConnectNServiceServer.GetGame)},
		{MethodName: "DeleteGame", Handler: unaryHandler("DeleteGame", ConnectNServiceServer.DeleteGame)},
		{MethodName: "PlacePiece", Handler: unaryHandler("PlacePiece", ConnectNServiceServer.PlacePiece)},
		{MethodName: "RequestDrop", Handler: unaryHandler("RequestDrop", ConnectNServiceServer.RequestDrop)},
		{MethodName: "ToggleTurn", Handler: unaryHandler("ToggleTurn", ConnectNServiceServer.ToggleTurn)},
		{MethodName: "SetToggleEnabled", Handler: unaryHandler("SetToggleEnabled", ConnectNServiceServer.SetToggleEnabled)},
		{MethodName: "SetActivePlayer", Handler: unaryHandler("SetActivePlayer", ConnectNServiceServer.SetActivePlayer)},
		{MethodName: "SetDimensions", Handler: unaryHandler("SetDimensions", ConnectNServiceServer.SetDimensions)},
		{MethodName: "SetWinningCount", Handler: unaryHandler("SetWinningCount", ConnectNServiceServer.SetWinningCount)},
		{MethodName: "SetInterval", Handler: unaryHandler("SetInterval", ConnectNServiceServer.SetInterval)},
		{MethodName: "ClearError", Handler: unaryHandler("ClearError", ConnectNServiceServer.ClearError)},
		{MethodName: "ResetGame", Handler: unaryHandler("ResetGame", ConnectNServiceServer.ResetGame)},
		{MethodName: "GetScores", Handler: unaryHandler("GetScores", ConnectNServiceServer.GetScores)},
		{MethodName: "RenderBoard", Handler: unaryHandler("RenderBoard", ConnectNServiceServer.RenderBoard)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamGameUpdates",
			Handler:       streamGameUpdatesHandler,
			ServerStreams: true,
		},
	},
	Metadata: serviceFile,
}

// RegisterConnectNServiceServer registers srv with s
func RegisterConnectNServiceServer(s grpc.ServiceRegistrar, srv ConnectNServiceServer) {
	s.RegisterService(&ConnectNService_ServiceDesc, srv)
}

// The service descriptor is registered at init so server reflection can
// describe ConnectNService without generated code.
func init() {
	file, err := protodesc.NewFile(serviceDescriptor(), protoregistry.GlobalFiles)
	if err != nil {
		panic(err)
	}
	if err := protoregistry.GlobalFiles.RegisterFile(file); err != nil {
		panic(err)
	}
}

func serviceDescriptor() *descriptorpb.FileDescriptorProto {
	const (
		structType = ".google.protobuf.Struct"
		bodyType   = ".google.api.HttpBody"
	)

	var methods []*descriptorpb.MethodDescriptorProto
	for _, m := range ConnectNService_ServiceDesc.Methods {
		output := structType
		if m.MethodName == "RenderBoard" {
			output = bodyType
		}
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structType),
			OutputType: proto.String(output),
		})
	}
	for _, s := range ConnectNService_ServiceDesc.Streams {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:            proto.String(s.StreamName),
			InputType:       proto.String(structType),
			OutputType:      proto.String(structType),
			ServerStreaming: proto.Bool(s.ServerStreams),
		})
	}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(serviceFile),
		Package: proto.String("connectn.v1"),
		Dependency: []string{
			"google/api/httpbody.proto",
			"google/protobuf/struct.proto",
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("ConnectNService"),
			Method: methods,
		}},
		Syntax: proto.String("proto3"),
	}
}

// Client is a ConnectNService client
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection to a ConnectNService server
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateGame(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateGame", in, opts)
}

func (c *Client) ListGames(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListGames", in, opts)
}

func (c *Client) GetGame(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetGame", in, opts)
}

func (c *Client) DeleteGame(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "DeleteGame", in, opts)
}

func (c *Client) PlacePiece(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "PlacePiece", in, opts)
}

func (c *Client) RequestDrop(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "RequestDrop", in, opts)
}

func (c *Client) ToggleTurn(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ToggleTurn", in, opts)
}

func (c *Client) SetToggleEnabled(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SetToggleEnabled", in, opts)
}

func (c *Client) SetActivePlayer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SetActivePlayer", in, opts)
}

func (c *Client) SetDimensions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SetDimensions", in, opts)
}

func (c *Client) SetWinningCount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SetWinningCount", in, opts)
}

func (c *Client) SetInterval(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SetInterval", in, opts)
}

func (c *Client) ClearError(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ClearError", in, opts)
}

func (c *Client) ResetGame(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ResetGame", in, opts)
}

func (c *Client) GetScores(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetScores", in, opts)
}

func (c *Client) RenderBoard(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*httpbody.HttpBody, error) {
	out := new(httpbody.HttpBody)
	if err := c.cc.Invoke(ctx, fullMethod("RenderBoard"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StreamGameUpdates(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ConnectNService_ServiceDesc.Streams[0], fullMethod("StreamGameUpdates"), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
