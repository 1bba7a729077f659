package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/batchcorp/pbench/payloadrpc"
	"github.com/batchcorp/pbench/types"
)

const (
	DefaultStreamWaitTimeout = 30 * time.Second
)

// StreamingAdapter opens a bidirectional stream, writes exactly one
// request, signals end-of-writes and waits for exactly one response event
// or stream termination, bounded by waitTimeout. The receive side is driven
// through a channel rather than shared mutable state; the receiver
// goroutine is torn down via context cancellation on every exit path.
type StreamingAdapter struct {
	conn        *grpc.ClientConn
	waitTimeout time.Duration
	log         *logrus.Entry
}

type recvEvent struct {
	resp *types.PayloadResponse
	err  error
}

func NewStreaming(conn *grpc.ClientConn) (*StreamingAdapter, error) {
	if conn == nil {
		return nil, errors.New("grpc connection cannot be nil")
	}

	return &StreamingAdapter{
		conn:        conn,
		waitTimeout: DefaultStreamWaitTimeout,
		log:         logrus.WithField("pkg", "transport.streaming"),
	}, nil
}

// SetWaitTimeout overrides the bounded wait; used by tests.
func (a *StreamingAdapter) SetWaitTimeout(d time.Duration) {
	a.waitTimeout = d
}

func (a *StreamingAdapter) Label() string {
	return types.TransportStreaming
}

// ConnState reports the shared client connection's state as a raw status
// string.
func (a *StreamingAdapter) ConnState() string {
	return a.conn.GetState().String()
}

func (a *StreamingAdapter) Send(ctx context.Context, req *types.PayloadRequest) *types.PayloadResponse {
	resp, outcome := a.sendOne(ctx, req)
	if resp != nil {
		return resp
	}

	return outcome.ToResponse(streamingTransport)
}

func (a *StreamingAdapter) sendOne(ctx context.Context, req *types.PayloadRequest) (*types.PayloadResponse, types.Outcome) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := a.conn.NewStream(streamCtx, &payloadrpc.StreamDesc, payloadrpc.StreamPayloadsMethod, payloadrpc.CallOptions()...)
	if err != nil {
		return nil, types.FailureOutcome(KindFailed, err.Error())
	}

	if err := stream.SendMsg(req); err != nil {
		return nil, types.FailureOutcome(KindFailed, err.Error())
	}

	if err := stream.CloseSend(); err != nil {
		return nil, types.FailureOutcome(KindFailed, err.Error())
	}

	events := a.receive(streamCtx, stream)

	timer := time.NewTimer(a.waitTimeout)
	defer timer.Stop()

	// Open -> AwaitingResponse -> Responded | Errored | Completed
	var last *types.PayloadResponse

	for {
		select {
		case ev := <-events:
			if ev.err == io.EOF {
				// Completed; resolve from whatever was received
				if last == nil {
					return nil, types.FailureOutcome(KindFailed, "no response received before stream completed")
				}

				return last, types.Outcome{}
			}

			if ev.err != nil {
				// Errored; a stream error wins over any buffered response
				a.log.Errorf("stream error for payload '%s': %s", req.ID, ev.err)
				return nil, types.FailureOutcome(KindFailed, ev.err.Error())
			}

			// Responded; keep waiting for completion, retaining the last event
			last = ev.resp
		case <-timer.C:
			a.log.Errorf("no streaming response for payload '%s' within %s", req.ID, a.waitTimeout)
			return nil, types.FailureOutcome(KindTimedOut,
				fmt.Sprintf("no response within %s", a.waitTimeout))
		}
	}
}

// SendMultiple writes every payload over one stream and resolves after all
// expected responses arrive or the stream terminates. Unlike Send, a stream
// error propagates as a fault; the success value is the response to the
// last payload.
func (a *StreamingAdapter) SendMultiple(ctx context.Context, reqs []*types.PayloadRequest) (*types.PayloadResponse, error) {
	if len(reqs) == 0 {
		return nil, errors.New("no payloads to send")
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := a.conn.NewStream(streamCtx, &payloadrpc.StreamDesc, payloadrpc.StreamPayloadsMethod, payloadrpc.CallOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open payload stream")
	}

	for _, req := range reqs {
		if err := stream.SendMsg(req); err != nil {
			return nil, errors.Wrapf(err, "unable to send payload '%s'", req.ID)
		}
	}

	if err := stream.CloseSend(); err != nil {
		return nil, errors.Wrap(err, "unable to close send side")
	}

	var (
		last     *types.PayloadResponse
		received int
	)

	for received < len(reqs) {
		resp := &types.PayloadResponse{}

		if err := stream.RecvMsg(resp); err != nil {
			if err == io.EOF {
				break
			}

			return nil, errors.Wrap(err, "stream error")
		}

		last = resp
		received++
	}

	if last == nil {
		return nil, errors.New("no response received before stream completed")
	}

	a.log.Debugf("received %d streaming response(s)", received)

	return last, nil
}

func (a *StreamingAdapter) receive(ctx context.Context, stream grpc.ClientStream) <-chan recvEvent {
	events := make(chan recvEvent, 1)

	go func() {
		for {
			resp := &types.PayloadResponse{}
			err := stream.RecvMsg(resp)

			ev := recvEvent{resp: resp, err: err}
			if err != nil {
				ev.resp = nil
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}

			if err != nil {
				return
			}
		}
	}()

	return events
}
