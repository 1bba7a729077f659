package bench

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/batchcorp/pbench/cli"
	"github.com/batchcorp/pbench/types"
)

type fakeSender struct {
	label string
	resp  *types.PayloadResponse
	delay time.Duration
	calls int
}

func (f *fakeSender) Label() string {
	return f.label
}

func (f *fakeSender) Send(_ context.Context, _ *types.PayloadRequest) *types.PayloadResponse {
	f.calls++

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	return f.resp
}

func okSender(label string) *fakeSender {
	return &fakeSender{
		label: label,
		resp:  &types.PayloadResponse{Status: types.SuccessStatus, Message: "SUCCESS: ok"},
	}
}

func TestRunComparison_ThreeResults(t *testing.T) {
	rest := okSender(types.TransportREST)
	unary := okSender(types.TransportUnary)
	streaming := okSender(types.TransportStreaming)

	b, err := New(&cli.Params{NodeID: "test"}, rest, unary, streaming)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	results := b.RunComparison(context.Background(), &types.PayloadRequest{ID: "p1"})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for _, label := range []string{types.TransportREST, types.TransportUnary, types.TransportStreaming} {
		result, ok := results[label]
		if !ok {
			t.Fatalf("missing result for '%s'", label)
		}

		if result.Protocol != label {
			t.Errorf("expected protocol '%s', got '%s'", label, result.Protocol)
		}

		if result.EndTime < result.StartTime {
			t.Errorf("'%s': end time %d before start time %d", label, result.EndTime, result.StartTime)
		}

		if result.DurationMillis != result.EndTime-result.StartTime {
			t.Errorf("'%s': duration %d != end-start %d", label, result.DurationMillis, result.EndTime-result.StartTime)
		}
	}

	if rest.calls != 1 || unary.calls != 1 || streaming.calls != 1 {
		t.Errorf("expected one call per adapter, got %d/%d/%d", rest.calls, unary.calls, streaming.calls)
	}
}

func TestRunComparison_ErrorIsolation(t *testing.T) {
	rest := okSender(types.TransportREST)
	streaming := okSender(types.TransportStreaming)

	unary := &fakeSender{
		label: types.TransportUnary,
		resp: &types.PayloadResponse{
			Status:  types.ErrorStatus,
			Message: "gRPC unary call failed: connection refused",
		},
	}

	b, err := New(&cli.Params{NodeID: "test"}, rest, unary, streaming)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	results := b.RunComparison(context.Background(), &types.PayloadRequest{ID: "p1"})

	if results[types.TransportUnary].Status != types.ErrorStatus {
		t.Error("expected unary result to carry error status")
	}

	if results[types.TransportUnary].Message == "" {
		t.Error("expected unary result to carry a non-empty message")
	}

	for _, label := range []string{types.TransportREST, types.TransportStreaming} {
		if results[label].Status != types.SuccessStatus {
			t.Errorf("expected '%s' to be unaffected, got status '%s'", label, results[label].Status)
		}
	}
}

func TestRunComparison_MeasuresDuration(t *testing.T) {
	rest := okSender(types.TransportREST)
	rest.delay = 25 * time.Millisecond
	unary := okSender(types.TransportUnary)
	streaming := okSender(types.TransportStreaming)

	b, _ := New(&cli.Params{NodeID: "test"}, rest, unary, streaming)

	results := b.RunComparison(context.Background(), &types.PayloadRequest{ID: "p1"})

	if results[types.TransportREST].DurationMillis < 20 {
		t.Errorf("expected REST duration >= 20ms, got %d", results[types.TransportREST].DurationMillis)
	}

	if !strings.Contains(results[types.TransportREST].Message, "SUCCESS") {
		t.Errorf("expected success message to flow through, got '%s'", results[types.TransportREST].Message)
	}
}

func TestNew_Validation(t *testing.T) {
	sender := okSender(types.TransportREST)

	if _, err := New(nil, sender, sender, sender); err == nil {
		t.Error("expected error for nil params")
	}

	if _, err := New(&cli.Params{}, nil, sender, sender); err == nil {
		t.Error("expected error for missing adapter")
	}
}
