// Package transport contains the three client adapters that deliver one
// payload to the backend and normalize every transport-level failure into
// an error PayloadResponse. No adapter ever propagates a fault to the
// orchestrator.
package transport

import (
	"context"

	"github.com/batchcorp/pbench/types"
)

const (
	restTransport      = "REST call"
	unaryTransport     = "gRPC unary call"
	streamingTransport = "gRPC streaming call"

	KindFailed   = "failed"
	KindTimedOut = "timed out"
)

// Sender is the uniform adapter surface consumed by the orchestrator.
type Sender interface {
	Label() string
	Send(ctx context.Context, req *types.PayloadRequest) *types.PayloadResponse
}

// ConnStater is implemented by adapters that can report their underlying
// connection state as a raw status string.
type ConnStater interface {
	ConnState() string
}
