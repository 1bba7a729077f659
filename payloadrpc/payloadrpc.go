// Package payloadrpc defines the PayloadService gRPC surface. Messages
// travel as JSON via a registered codec, so the wire fields are the same
// {id, content, timestamp, protocol} / {status, message} pairs used by the
// REST binding and no generated protobuf code is involved.
package payloadrpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/batchcorp/pbench/types"
)

const (
	ServiceName = "pbench.PayloadService"

	SendPayloadMethod    = "/" + ServiceName + "/SendPayload"
	StreamPayloadsMethod = "/" + ServiceName + "/StreamPayloads"

	CodecName = "json"
)

func init() {
	encoding.RegisterCodec(Codec{})
}

type Codec struct{}

func (Codec) Name() string {
	return CodecName
}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// CallOptions force the JSON codec on every outgoing call.
func CallOptions() []grpc.CallOption {
	return []grpc.CallOption{
		grpc.ForceCodec(Codec{}),
		grpc.CallContentSubtype(CodecName),
	}
}

// PayloadServer is implemented by the backend gRPC binding.
type PayloadServer interface {
	SendPayload(ctx context.Context, req *types.PayloadRequest) (*types.PayloadResponse, error)
	StreamPayloads(stream PayloadStream) error
}

// PayloadStream is the typed view of the bidirectional payload stream.
type PayloadStream interface {
	Send(*types.PayloadResponse) error
	Recv() (*types.PayloadRequest, error)
	Context() context.Context
}

type payloadStream struct {
	grpc.ServerStream
}

func (s *payloadStream) Send(resp *types.PayloadResponse) error {
	return s.ServerStream.SendMsg(resp)
}

func (s *payloadStream) Recv() (*types.PayloadRequest, error) {
	req := &types.PayloadRequest{}

	if err := s.ServerStream.RecvMsg(req); err != nil {
		return nil, err
	}

	return req, nil
}

func sendPayloadHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := &types.PayloadRequest{}

	if err := dec(req); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(PayloadServer).SendPayload(ctx, req)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SendPayloadMethod,
	}

	handler := func(ctx context.Context, r interface{}) (interface{}, error) {
		return srv.(PayloadServer).SendPayload(ctx, r.(*types.PayloadRequest))
	}

	return interceptor(ctx, req, info, handler)
}

func streamPayloadsHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(PayloadServer).StreamPayloads(&payloadStream{stream})
}

// ServiceDesc is registered on a grpc.Server in place of protoc output.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PayloadServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendPayload",
			Handler:    sendPayloadHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamPayloads",
			Handler:       streamPayloadsHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

// StreamDesc is the client-side descriptor for opening the bidi stream via
// grpc.ClientConn.NewStream.
var StreamDesc = grpc.StreamDesc{
	StreamName:    "StreamPayloads",
	ServerStreams: true,
	ClientStreams: true,
}

// Register attaches the payload service implementation to a grpc server.
func Register(s *grpc.Server, impl PayloadServer) {
	s.RegisterService(&ServiceDesc, impl)
}
