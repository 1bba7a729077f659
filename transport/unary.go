package transport

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/batchcorp/pbench/payloadrpc"
	"github.com/batchcorp/pbench/types"
)

// UnaryAdapter issues one blocking call/response round trip. Timeout is the
// caller's context deadline (implementation default: none beyond the
// connection's own).
type UnaryAdapter struct {
	conn *grpc.ClientConn
	log  *logrus.Entry
}

func NewUnary(conn *grpc.ClientConn) (*UnaryAdapter, error) {
	if conn == nil {
		return nil, errors.New("grpc connection cannot be nil")
	}

	return &UnaryAdapter{
		conn: conn,
		log:  logrus.WithField("pkg", "transport.unary"),
	}, nil
}

func (a *UnaryAdapter) Label() string {
	return types.TransportUnary
}

// ConnState reports the shared client connection's state as a raw status
// string.
func (a *UnaryAdapter) ConnState() string {
	return a.conn.GetState().String()
}

func (a *UnaryAdapter) Send(ctx context.Context, req *types.PayloadRequest) *types.PayloadResponse {
	resp := &types.PayloadResponse{}

	err := a.conn.Invoke(ctx, payloadrpc.SendPayloadMethod, req, resp, payloadrpc.CallOptions()...)
	if err != nil {
		a.log.Errorf("unable to send gRPC unary payload '%s': %s", req.ID, err)
		return types.FailureOutcome(KindFailed, err.Error()).ToResponse(unaryTransport)
	}

	a.log.Debugf("received gRPC unary response for payload '%s': %s", req.ID, resp.Status)

	return resp
}
