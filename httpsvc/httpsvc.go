package httpsvc

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/batchcorp/pbench/bench"
	"github.com/batchcorp/pbench/cli"
	"github.com/batchcorp/pbench/transport"
)

// HTTPService is the caller-facing surface for driving the benchmark and
// for exercising each transport in isolation.
type HTTPService struct {
	params    *cli.Params
	bench     *bench.Bench
	rest      *transport.RESTAdapter
	unary     transport.Sender
	streaming transport.Sender
	version   string
	log       *logrus.Entry
}

func New(params *cli.Params, b *bench.Bench, rest *transport.RESTAdapter, unary, streaming transport.Sender, version string) (*HTTPService, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	if b == nil {
		return nil, errors.New("bench cannot be nil")
	}

	if rest == nil || unary == nil || streaming == nil {
		return nil, errors.New("all three transport adapters must be set")
	}

	return &HTTPService{
		params:    params,
		bench:     b,
		rest:      rest,
		unary:     unary,
		streaming: streaming,
		version:   version,
		log:       logrus.WithField("pkg", "httpsvc"),
	}, nil
}

func (h *HTTPService) Start() error {
	server := &http.Server{Addr: h.params.HTTPAddress, Handler: h.Router()}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			h.log.Errorf("HTTP server error: %s", err)
		}
	}()

	return nil
}

func (h *HTTPService) Router() http.Handler {
	router := httprouter.New()

	router.HandlerFunc("GET", "/health-check", h.healthCheckHandler)
	router.HandlerFunc("GET", "/version", h.versionHandler)

	router.HandlerFunc("POST", "/benchmark/single", h.runComparisonHandler)
	router.HandlerFunc("POST", "/benchmark/rest", h.testRESTHandler)
	router.HandlerFunc("POST", "/benchmark/grpc/unary", h.testUnaryHandler)
	router.HandlerFunc("POST", "/benchmark/grpc/streaming", h.testStreamingHandler)
	router.HandlerFunc("GET", "/benchmark/health/rest", h.restHealthHandler)
	router.HandlerFunc("GET", "/benchmark/health/grpc", h.grpcHealthHandler)

	return router
}

func writeJSON(statusCode int, data interface{}, w http.ResponseWriter) {
	w.Header().Add("Content-type", "application/json")

	jsonData, err := json.Marshal(data)
	if err != nil {
		w.WriteHeader(500)
		logrus.Errorf("Unable to marshal data in WriteJSON: %s", err)
		return
	}

	w.WriteHeader(statusCode)

	if _, err := w.Write(jsonData); err != nil {
		logrus.Errorf("Unable to write response data: %s", err)
		return
	}
}

func writeErrorJSON(statusCode int, msg string, w http.ResponseWriter) {
	writeJSON(statusCode, map[string]string{"error": msg}, w)
}

func validateParams(params *cli.Params) error {
	if params == nil {
		return errors.New("params cannot be nil")
	}

	if params.HTTPAddress == "" {
		return errors.New("HTTP address cannot be empty")
	}

	return nil
}
