// Package backend exposes the payload processor over two server bindings:
// a REST endpoint and a gRPC service with unary and bidirectional streaming
// methods. All bindings construct equivalent PayloadRequest values and
// report processing faults as error PayloadResponses, never as transport
// errors.
package backend

import (
	"context"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/batchcorp/pbench/cli"
	"github.com/batchcorp/pbench/payloadrpc"
	"github.com/batchcorp/pbench/types"
)

// PayloadProcessor is implemented by processor.Processor.
type PayloadProcessor interface {
	Process(ctx context.Context, req *types.PayloadRequest, protocolLabel string) (string, error)
}

type Backend struct {
	params    *cli.Params
	processor PayloadProcessor
	grpcSrv   *grpc.Server
	httpSrv   *http.Server
	log       *logrus.Entry
}

func New(params *cli.Params, proc PayloadProcessor) (*Backend, error) {
	if err := validateParams(params); err != nil {
		return nil, errors.Wrap(err, "unable to validate params")
	}

	if proc == nil {
		return nil, errors.New("processor cannot be nil")
	}

	return &Backend{
		params:    params,
		processor: proc,
		log:       logrus.WithField("pkg", "backend"),
	}, nil
}

// Start launches the REST and gRPC listeners. Both serve until process
// exit; listener errors are logged, not returned.
func (b *Backend) Start() error {
	lis, err := net.Listen("tcp", b.params.GRPCAddress)
	if err != nil {
		return errors.Wrapf(err, "unable to listen on '%s'", b.params.GRPCAddress)
	}

	b.grpcSrv = grpc.NewServer()
	payloadrpc.Register(b.grpcSrv, b)

	go func() {
		if err := b.grpcSrv.Serve(lis); err != nil {
			b.log.Errorf("gRPC server error: %s", err)
		}
	}()

	b.httpSrv = &http.Server{
		Addr:    b.params.BackendHTTPAddress,
		Handler: b.router(),
	}

	go func() {
		if err := b.httpSrv.ListenAndServe(); err != nil {
			b.log.Errorf("backend HTTP server error: %s", err)
		}
	}()

	return nil
}

func (b *Backend) Stop() {
	if b.grpcSrv != nil {
		b.grpcSrv.GracefulStop()
	}

	if b.httpSrv != nil {
		_ = b.httpSrv.Close()
	}
}

func validateParams(params *cli.Params) error {
	if params == nil {
		return errors.New("params cannot be nil")
	}

	if params.GRPCAddress == "" {
		return errors.New("gRPC address cannot be empty")
	}

	if params.BackendHTTPAddress == "" {
		return errors.New("backend HTTP address cannot be empty")
	}

	return nil
}
