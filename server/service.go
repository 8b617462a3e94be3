package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The service speaks google.protobuf.Struct in both directions, so it is
// described by hand instead of being generated from a .proto file.
const (
	ServiceName        = "stack.StackService"
	PlayFullMethodName = "/stack.StackService/Play"
)

type (
	PlayServer = grpc.BidiStreamingServer[structpb.Struct, structpb.Struct]
	PlayClient = grpc.BidiStreamingClient[structpb.Struct, structpb.Struct]
)

// StackServiceServer plays one game per Play stream: every input the client
// sends is answered with a frame.
type StackServiceServer interface {
	Play(PlayServer) error
}

type StackServiceClient interface {
	Play(ctx context.Context, opts ...grpc.CallOption) (PlayClient, error)
}

var StackServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StackServiceServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Play",
			Handler:       playHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "stack",
}

func RegisterStackServiceServer(s grpc.ServiceRegistrar, srv StackServiceServer) {
	s.RegisterService(&StackServiceDesc, srv)
}

func playHandler(srv any, stream grpc.ServerStream) error {
	return srv.(StackServiceServer).Play(&grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

type stackServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewStackServiceClient(cc grpc.ClientConnInterface) StackServiceClient {
	return &stackServiceClient{cc: cc}
}

func (c *stackServiceClient) Play(ctx context.Context, opts ...grpc.CallOption) (PlayClient, error) {
	stream, err := c.cc.NewStream(ctx, &StackServiceDesc.Streams[0], PlayFullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}, nil
}
