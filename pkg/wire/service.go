package wire

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "commandrouter.v1.CommandRouter"

// DispatchMethod is the fully-qualified unary dispatch RPC method name.
const DispatchMethod = "/" + ServiceName + "/Dispatch"

// StreamMethod is the fully-qualified bidirectional subscription stream
// method name.
const StreamMethod = "/" + ServiceName + "/Stream"

// Handler is implemented by a gRPC server backing the command router
// service. It plays the role a protoc-gen-go-grpc server interface would
// play; see ServiceDesc for why it is hand-written here.
type Handler interface {
	Dispatch(context.Context, *Command) (*CommandResponse, error)
	Stream(StreamServer) error
}

// StreamServer is the server-side view of the bidirectional subscription
// stream.
type StreamServer interface {
	Send(*ServerMessage) error
	Recv() (*ClientMessage, error)
	grpc.ServerStream
}

// StreamClient is the client-side view of the bidirectional subscription
// stream.
type StreamClient interface {
	Send(*ClientMessage) error
	Recv() (*ServerMessage, error)
	grpc.ClientStream
}

// ServiceDesc is the service descriptor this package registers on a
// *grpc.Server and uses to open client streams/unary calls. It is
// hand-written in the shape protoc-gen-go-grpc would emit for a service
// declared as:
//
//	service CommandRouter {
//	  rpc Dispatch(Command) returns (CommandResponse);
//	  rpc Stream(stream ClientMessage) returns (stream ServerMessage);
//	}
//
// No .proto/.pb.go pair backs this: no gen/ tree was available to this
// repository and this environment cannot invoke protoc. The wire messages
// are plain structs (messages.go) carried by the JSON grpc.Codec in
// codec.go instead of generated protobuf marshaling; the service plumbing
// below is the same low-level grpc.ServiceDesc/grpc.MethodDesc/grpc.StreamDesc
// machinery codegen would produce, written by hand.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Dispatch", Handler: dispatchHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       streamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "commandrouter.proto",
}

func dispatchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Command)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handler).Dispatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DispatchMethod}
	wrapped := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Handler).Dispatch(ctx, req.(*Command))
	}
	return interceptor(ctx, in, info, wrapped)
}

func streamHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(Handler).Stream(&streamServer{ServerStream: stream})
}

type streamServer struct {
	grpc.ServerStream
}

func (s *streamServer) Send(m *ServerMessage) error {
	return s.ServerStream.SendMsg(m)
}

func (s *streamServer) Recv() (*ClientMessage, error) {
	m := new(ClientMessage)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewStreamClient opens the bidirectional subscription stream on cc.
func NewStreamClient(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (StreamClient, error) {
	stream, err := cc.NewStream(ctx, &ServiceDesc.Streams[0], StreamMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &streamClient{ClientStream: stream}, nil
}

type streamClient struct {
	grpc.ClientStream
}

func (c *streamClient) Send(m *ClientMessage) error {
	return c.ClientStream.SendMsg(m)
}

func (c *streamClient) Recv() (*ServerMessage, error) {
	m := new(ServerMessage)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Dispatch issues the unary dispatch RPC on cc.
func Dispatch(ctx context.Context, cc grpc.ClientConnInterface, req *Command, opts ...grpc.CallOption) (*CommandResponse, error) {
	out := new(CommandResponse)
	if err := cc.Invoke(ctx, DispatchMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
