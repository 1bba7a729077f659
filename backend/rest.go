package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/batchcorp/pbench/types"
)

func (b *Backend) router() http.Handler {
	router := httprouter.New()

	router.HandlerFunc("POST", "/api/payload", b.payloadHandler)
	router.HandlerFunc("GET", "/api/health", b.healthHandler)

	return router
}

// payloadHandler is the REST binding. Processing faults surface as error
// PayloadResponses with HTTP 200 - the status field carries the outcome so
// the wire contract matches the RPC bindings.
func (b *Backend) payloadHandler(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		b.log.Errorf("could not read request body: %s", err)
		writeResponse(rw, &types.PayloadResponse{
			Status:  types.ErrorStatus,
			Message: fmt.Sprintf("could not read request body: %s", err),
		})
		return
	}
	defer r.Body.Close()

	req := &types.PayloadRequest{}

	if err := json.Unmarshal(body, req); err != nil {
		b.log.Errorf("unable to unmarshal payload request: %s", err)
		writeResponse(rw, &types.PayloadResponse{
			Status:  types.ErrorStatus,
			Message: fmt.Sprintf("unable to unmarshal payload request: %s", err),
		})
		return
	}

	b.log.Debugf("received REST payload '%s'", req.ID)

	result, err := b.processor.Process(r.Context(), req, types.TransportREST)
	if err != nil {
		b.log.Errorf("unable to process REST payload '%s': %s", req.ID, err)
		writeResponse(rw, &types.PayloadResponse{
			Status:  types.ErrorStatus,
			Message: fmt.Sprintf("Processing failed: %s", err),
		})
		return
	}

	writeResponse(rw, &types.PayloadResponse{
		Status:  types.SuccessStatus,
		Message: result,
	})
}

func (b *Backend) healthHandler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json; charset=UTF-8")
	rw.WriteHeader(http.StatusOK)

	status := map[string]string{
		"status":    "UP",
		"service":   "pbench-backend",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(rw).Encode(status); err != nil {
		b.log.Errorf("unable to write health output: %s", err)
	}
}

func writeResponse(rw http.ResponseWriter, resp *types.PayloadResponse) {
	rw.Header().Add("Content-type", "application/json")

	data, err := json.Marshal(resp)
	if err != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		logrus.Errorf("Unable to marshal payload response: %s", err)
		return
	}

	rw.WriteHeader(http.StatusOK)

	if _, err := rw.Write(data); err != nil {
		logrus.Errorf("Unable to write response data: %s", err)
	}
}
