package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/batchcorp/pbench/backend"
	"github.com/batchcorp/pbench/bench"
	"github.com/batchcorp/pbench/cli"
	"github.com/batchcorp/pbench/httpsvc"
	"github.com/batchcorp/pbench/natssvc"
	"github.com/batchcorp/pbench/processor"
	"github.com/batchcorp/pbench/storage"
	"github.com/batchcorp/pbench/transport"
)

var (
	VERSION = "UNSET"

	params = &cli.Params{}
)

func init() {
	kingpin.Flag("node-id", "Node ID").
		Default(natssvc.RandID(8)).
		Envar("PBENCH_NODE_ID").
		StringVar(&params.NodeID)

	kingpin.Flag("debug", "Enable debug output").
		Envar("PBENCH_DEBUG").
		BoolVar(&params.Debug)

	kingpin.Flag("http-address", "What address to bind the benchmark HTTP API to").
		Default(":5000").
		Envar("PBENCH_HTTP_ADDRESS").
		StringVar(&params.HTTPAddress)

	kingpin.Flag("backend-http-address", "What address to bind the backend REST endpoint to").
		Default(":8080").
		Envar("PBENCH_BACKEND_HTTP_ADDRESS").
		StringVar(&params.BackendHTTPAddress)

	kingpin.Flag("backend-base-url", "Base URL the REST adapter sends payloads to").
		Default("http://localhost:8080").
		Envar("PBENCH_BACKEND_BASE_URL").
		StringVar(&params.BackendBaseURL)

	kingpin.Flag("grpc-address", "What address to bind (and dial) the gRPC payload service on").
		Default("localhost:6565").
		Envar("PBENCH_GRPC_ADDRESS").
		StringVar(&params.GRPCAddress)

	kingpin.Flag("redis-address", "Redis address used for payload record storage").
		Default("localhost:6379").
		Envar("PBENCH_REDIS_ADDRESS").
		StringVar(&params.RedisAddress)

	kingpin.Flag("nats-address", "One or more NATS address to use").
		Default("localhost:4222").
		Envar("PBENCH_NATS_ADDRESS").
		StringsVar(&params.NATSAddress)

	kingpin.Flag("nats-use-tls", "Whether to use TLS for NATS communication").
		Default("false").
		Envar("PBENCH_NATS_USE_TLS").
		BoolVar(&params.NATSUseTLS)

	kingpin.Flag("nats-tls-cert", "Path to the TLS certificate for NATS communication").
		Envar("PBENCH_NATS_TLS_CERT").
		ExistingFileVar(&params.NATSTLSClientCert)

	kingpin.Flag("nats-tls-key", "Path to the TLS key for NATS communication").
		Envar("PBENCH_NATS_TLS_KEY").
		ExistingFileVar(&params.NATSTLSClientKey)

	kingpin.Flag("nats-tls-ca", "Path to the TLS CA for NATS communication").
		Envar("PBENCH_NATS_TLS_CA").
		ExistingFileVar(&params.NATSTLSCaCert)

	kingpin.CommandLine.HelpFlag.Short('h')
	kingpin.Parse()
}

func main() {
	wg := &sync.WaitGroup{}
	wg.Add(1)

	if params.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.Infof("pbench is starting...")

	// Create collaborators
	store, err := storage.New(params.RedisAddress)
	if err != nil {
		logrus.Fatal("Unable to setup storage: ", err)
	}

	n, err := natssvc.New(params)
	if err != nil {
		logrus.Fatal("Unable to setup NATS service: ", err)
	}

	proc, err := processor.New(store, n)
	if err != nil {
		logrus.Fatal("Unable to setup payload processor: ", err)
	}

	// Start the backend bindings before dialing them
	be, err := backend.New(params, proc)
	if err != nil {
		logrus.Fatal("Unable to setup backend: ", err)
	}

	if err := be.Start(); err != nil {
		logrus.Fatal("Unable to start backend: ", err)
	}

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dialCancel()

	conn, err := grpc.DialContext(dialCtx, params.GRPCAddress,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		logrus.Fatal("Unable to dial gRPC backend: ", err)
	}

	// Create transport adapters
	rest, err := transport.NewREST(params.BackendBaseURL)
	if err != nil {
		logrus.Fatal("Unable to setup REST adapter: ", err)
	}

	unary, err := transport.NewUnary(conn)
	if err != nil {
		logrus.Fatal("Unable to setup unary adapter: ", err)
	}

	streaming, err := transport.NewStreaming(conn)
	if err != nil {
		logrus.Fatal("Unable to setup streaming adapter: ", err)
	}

	b, err := bench.New(params, rest, unary, streaming)
	if err != nil {
		logrus.Fatal("Unable to setup benchmark service: ", err)
	}

	h, err := httpsvc.New(params, b, rest, unary, streaming, VERSION)
	if err != nil {
		logrus.Fatal("Unable to setup HTTP service: ", err)
	}

	if err := h.Start(); err != nil {
		logrus.Fatal("Unable to start HTTP service: ", err)
	}

	logrus.Infof("NodeID:                       %s", params.NodeID)
	logrus.Infof("Benchmark API listening on:   %s", params.HTTPAddress)
	logrus.Infof("Backend REST listening on:    %s", params.BackendHTTPAddress)
	logrus.Infof("Backend gRPC listening on:    %s", params.GRPCAddress)
	logrus.Infof("Version:                      %s", VERSION)
	logrus.Info("")
	logrus.Info("pbench is ready.")

	// Catch SIGINT, drain NATS before exiting
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		for sig := range c {
			logrus.Debugf("Caught signal: %s", sig)

			be.Stop()

			if err := n.Drain(); err != nil {
				logrus.Errorf("Unable to drain NATS connection: %s", err)
			}

			os.Exit(1)
		}
	}()

	wg.Wait()
}
