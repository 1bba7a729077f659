// Package bench runs the single-call comparison: one payload through each
// transport adapter, measured at this boundary. Durations therefore include
// transport, marshalling and backend processing.
package bench

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/batchcorp/pbench/cli"
	"github.com/batchcorp/pbench/transport"
	"github.com/batchcorp/pbench/types"
)

type Bench struct {
	params    *cli.Params
	rest      transport.Sender
	unary     transport.Sender
	streaming transport.Sender
	log       *logrus.Entry
}

func New(params *cli.Params, rest, unary, streaming transport.Sender) (*Bench, error) {
	if params == nil {
		return nil, errors.New("params cannot be nil")
	}

	if rest == nil || unary == nil || streaming == nil {
		return nil, errors.New("all three transport adapters must be set")
	}

	return &Bench{
		params:    params,
		rest:      rest,
		unary:     unary,
		streaming: streaming,
		log:       logrus.WithField("pkg", "bench"),
	}, nil
}

// RunComparison sends the request through REST, unary RPC and streaming RPC
// in that fixed order. Sequential execution keeps the per-transport
// wall-clock windows from overlapping and from contending for resources.
// Adapter failures are already error responses, so the result set always
// carries exactly three entries.
func (b *Bench) RunComparison(ctx context.Context, req *types.PayloadRequest) types.BenchmarkResultSet {
	b.log.Debugf("running single call comparison for payload '%s'", req.ID)

	results := make(types.BenchmarkResultSet, 3)

	for _, sender := range []transport.Sender{b.rest, b.unary, b.streaming} {
		results[sender.Label()] = b.measure(ctx, sender, req)
	}

	b.log.Infof("single call comparison completed; REST: %dms, unary: %dms, streaming: %dms",
		results[types.TransportREST].DurationMillis,
		results[types.TransportUnary].DurationMillis,
		results[types.TransportStreaming].DurationMillis)

	return results
}

func (b *Bench) measure(ctx context.Context, sender transport.Sender, req *types.PayloadRequest) *types.BenchmarkResult {
	start := time.Now().UnixMilli()
	resp := sender.Send(ctx, req)
	end := time.Now().UnixMilli()

	return &types.BenchmarkResult{
		Protocol:       sender.Label(),
		DurationMillis: end - start,
		Status:         resp.Status,
		Message:        resp.Message,
		StartTime:      start,
		EndTime:        end,
	}
}
