package httpsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/batchcorp/pbench/transport"
	"github.com/batchcorp/pbench/types"
)

func (h *HTTPService) runComparisonHandler(rw http.ResponseWriter, r *http.Request) {
	req, err := h.parsePayloadRequest(r)
	if err != nil {
		writeErrorJSON(http.StatusBadRequest, err.Error(), rw)
		return
	}

	results := h.bench.RunComparison(r.Context(), req)

	writeJSON(http.StatusOK, results, rw)
}

func (h *HTTPService) testRESTHandler(rw http.ResponseWriter, r *http.Request) {
	h.testTransportHandler(rw, r, h.rest)
}

func (h *HTTPService) testUnaryHandler(rw http.ResponseWriter, r *http.Request) {
	h.testTransportHandler(rw, r, h.unary)
}

func (h *HTTPService) testStreamingHandler(rw http.ResponseWriter, r *http.Request) {
	h.testTransportHandler(rw, r, h.streaming)
}

// testTransportHandler drives a single adapter in isolation. Transport
// failures are already error PayloadResponses, so this always answers 200
// with the adapter's outcome.
func (h *HTTPService) testTransportHandler(rw http.ResponseWriter, r *http.Request, sender transport.Sender) {
	req, err := h.parsePayloadRequest(r)
	if err != nil {
		writeErrorJSON(http.StatusBadRequest, err.Error(), rw)
		return
	}

	h.log.Debugf("testing transport '%s' with payload '%s'", sender.Label(), req.ID)

	writeJSON(http.StatusOK, sender.Send(r.Context(), req), rw)
}

func (h *HTTPService) restHealthHandler(rw http.ResponseWriter, r *http.Request) {
	status := h.rest.HealthCheck(context.Background())

	rw.Header().Set("Content-Type", "application/json; charset=UTF-8")
	rw.WriteHeader(http.StatusOK)

	if _, err := rw.Write([]byte(status)); err != nil {
		h.log.Errorf("unable to write REST health output: %s", err)
	}
}

// grpcHealthHandler reports the gRPC channel state. The unary and
// streaming adapters share one client connection, so a single check covers
// both.
func (h *HTTPService) grpcHealthHandler(rw http.ResponseWriter, r *http.Request) {
	state := "UNKNOWN"

	if stater, ok := h.unary.(transport.ConnStater); ok {
		state = stater.ConnState()
	}

	rw.WriteHeader(http.StatusOK)

	if _, err := rw.Write([]byte(state)); err != nil {
		h.log.Errorf("unable to write gRPC health output: %s", err)
	}
}

func (h *HTTPService) parsePayloadRequest(r *http.Request) (*types.PayloadRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read request body: %s", err)
	}
	defer r.Body.Close()

	req := &types.PayloadRequest{}

	if err := json.Unmarshal(body, req); err != nil {
		return nil, fmt.Errorf("unable to unmarshal payload request: %s", err)
	}

	if req.ID == "" {
		return nil, fmt.Errorf("payload id is required")
	}

	return req, nil
}
