package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/batchcorp/pbench/payloadrpc"
	"github.com/batchcorp/pbench/types"
)

// SendPayload is the unary binding. Processing faults become error
// PayloadResponses rather than gRPC status errors so the response contract
// matches the other transports.
func (b *Backend) SendPayload(ctx context.Context, req *types.PayloadRequest) (*types.PayloadResponse, error) {
	b.log.Debugf("received gRPC unary payload '%s'", req.ID)

	result, err := b.processor.Process(ctx, req, types.TransportUnary)
	if err != nil {
		b.log.Errorf("unable to process gRPC unary payload '%s': %s", req.ID, err)

		return &types.PayloadResponse{
			Status:  types.ErrorStatus,
			Message: fmt.Sprintf("Processing failed: %s", err),
		}, nil
	}

	return &types.PayloadResponse{
		Status:  types.SuccessStatus,
		Message: result,
	}, nil
}

// StreamPayloads processes each received payload and answers it in-stream.
// Per-payload processing faults stay in the stream as error responses; only
// a broken stream terminates the call with an error.
func (b *Backend) StreamPayloads(stream payloadrpc.PayloadStream) error {
	b.log.Debug("gRPC payload stream opened")

	for {
		req, err := stream.Recv()
		if err == io.EOF {
			b.log.Debug("gRPC payload stream completed")
			return nil
		}

		if err != nil {
			b.log.Errorf("gRPC payload stream receive error: %s", err)
			return err
		}

		b.log.Debugf("received streaming payload '%s'", req.ID)

		resp := &types.PayloadResponse{}

		result, err := b.processor.Process(stream.Context(), req, types.TransportStreaming)
		if err != nil {
			b.log.Errorf("unable to process streaming payload '%s': %s", req.ID, err)

			resp.Status = types.ErrorStatus
			resp.Message = fmt.Sprintf("Streaming processing failed: %s", err)
		} else {
			resp.Status = types.SuccessStatus
			resp.Message = result
		}

		if err := stream.Send(resp); err != nil {
			return err
		}
	}
}
