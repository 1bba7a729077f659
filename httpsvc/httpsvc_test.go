package httpsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/batchcorp/pbench/bench"
	"github.com/batchcorp/pbench/cli"
	"github.com/batchcorp/pbench/transport"
	"github.com/batchcorp/pbench/types"
)

type fakeSender struct {
	label string
	resp  *types.PayloadResponse
}

func (f *fakeSender) Label() string {
	return f.label
}

func (f *fakeSender) Send(_ context.Context, _ *types.PayloadRequest) *types.PayloadResponse {
	return f.resp
}

func newTestService(t *testing.T) (*HTTPService, *httptest.Server) {
	t.Helper()

	// Fake backend for the REST adapter
	backendSrv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/payload":
			json.NewEncoder(rw).Encode(&types.PayloadResponse{
				Status:  types.SuccessStatus,
				Message: "SUCCESS: Processed REST payload with correlation ID: cid",
			})
		case "/api/health":
			rw.Write([]byte(`{"status":"UP"}`))
		}
	}))

	t.Cleanup(backendSrv.Close)

	rest, err := transport.NewREST(backendSrv.URL)
	if err != nil {
		t.Fatalf("unable to create REST adapter: %v", err)
	}

	unary := &fakeSender{
		label: types.TransportUnary,
		resp:  &types.PayloadResponse{Status: types.SuccessStatus, Message: "SUCCESS: unary"},
	}

	streaming := &fakeSender{
		label: types.TransportStreaming,
		resp:  &types.PayloadResponse{Status: types.ErrorStatus, Message: "gRPC streaming call timed out: no response within 30s"},
	}

	params := &cli.Params{NodeID: "test", HTTPAddress: ":0"}

	b, err := bench.New(params, rest, unary, streaming)
	if err != nil {
		t.Fatalf("unable to create bench: %v", err)
	}

	h, err := New(params, b, rest, unary, streaming, "test-version")
	if err != nil {
		t.Fatalf("unable to create http service: %v", err)
	}

	return h, httptest.NewServer(h.Router())
}

func TestRunComparisonHandler(t *testing.T) {
	_, server := newTestService(t)
	defer server.Close()

	resp, err := http.Post(server.URL+"/benchmark/single", "application/json",
		strings.NewReader(`{"id": "p1", "content": "hello", "protocol": "REST"}`))
	if err != nil {
		t.Fatalf("unable to POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", resp.StatusCode)
	}

	results := types.BenchmarkResultSet{}

	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatalf("unable to decode result set: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[types.TransportREST].Status != types.SuccessStatus {
		t.Errorf("expected REST success, got '%s'", results[types.TransportREST].Status)
	}

	// One failed transport must not disturb the others
	if results[types.TransportStreaming].Status != types.ErrorStatus {
		t.Errorf("expected streaming error, got '%s'", results[types.TransportStreaming].Status)
	}
}

func TestRunComparisonHandler_BadRequest(t *testing.T) {
	_, server := newTestService(t)
	defer server.Close()

	resp, err := http.Post(server.URL+"/benchmark/single", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("unable to POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected HTTP 400 for missing id, got %d", resp.StatusCode)
	}
}

func TestSingleTransportHandlers(t *testing.T) {
	_, server := newTestService(t)
	defer server.Close()

	cases := map[string]types.ResponseStatus{
		"/benchmark/rest":           types.SuccessStatus,
		"/benchmark/grpc/unary":     types.SuccessStatus,
		"/benchmark/grpc/streaming": types.ErrorStatus,
	}

	for path, wantStatus := range cases {
		resp, err := http.Post(server.URL+path, "application/json", strings.NewReader(`{"id": "p1"}`))
		if err != nil {
			t.Fatalf("unable to POST %s: %v", path, err)
		}

		payloadResp := &types.PayloadResponse{}

		if err := json.NewDecoder(resp.Body).Decode(payloadResp); err != nil {
			t.Fatalf("unable to decode %s response: %v", path, err)
		}

		resp.Body.Close()

		if payloadResp.Status != wantStatus {
			t.Errorf("%s: expected status '%s', got '%s'", path, wantStatus, payloadResp.Status)
		}

		if payloadResp.Message == "" {
			t.Errorf("%s: expected a non-empty message", path)
		}
	}
}

func TestRESTHealthHandler(t *testing.T) {
	_, server := newTestService(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/benchmark/health/rest")
	if err != nil {
		t.Fatalf("unable to GET: %v", err)
	}
	defer resp.Body.Close()

	body := make([]byte, 128)
	n, _ := resp.Body.Read(body)

	if !strings.Contains(string(body[:n]), "UP") {
		t.Errorf("expected UP health body, got '%s'", body[:n])
	}
}

func TestGRPCHealthHandler_UnknownWithoutConn(t *testing.T) {
	_, server := newTestService(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/benchmark/health/grpc")
	if err != nil {
		t.Fatalf("unable to GET: %v", err)
	}
	defer resp.Body.Close()

	body := make([]byte, 64)
	n, _ := resp.Body.Read(body)

	// Fake senders carry no client connection
	if string(body[:n]) != "UNKNOWN" {
		t.Errorf("expected UNKNOWN, got '%s'", body[:n])
	}
}

func TestVersionHandler(t *testing.T) {
	_, server := newTestService(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/version")
	if err != nil {
		t.Fatalf("unable to GET: %v", err)
	}
	defer resp.Body.Close()

	version := map[string]string{}

	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		t.Fatalf("unable to decode version body: %v", err)
	}

	if version["version"] != "test-version" {
		t.Errorf("expected 'test-version', got '%s'", version["version"])
	}
}
