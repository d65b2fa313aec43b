// Command docring-server replays a workload file against a consistent-
// hashing document ring, printing each response through the host's
// two-line template, and serves a read-only admin HTTP surface alongside
// it for introspection.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/developer-mesh/docring/internal/adminapi"
	"github.com/developer-mesh/docring/internal/config"
	"github.com/developer-mesh/docring/internal/workload"
	"github.com/developer-mesh/docring/pkg/docstore"
	"github.com/developer-mesh/docring/pkg/hashfn"
	"github.com/developer-mesh/docring/pkg/observability"
	"github.com/developer-mesh/docring/pkg/ring"
)

func main() {
	configPath := flag.String("config", "", "path to a docring config file")
	workloadPath := flag.String("workload", "", "path to a workload file (defaults to stdin)")
	flag.Parse()

	logger := observability.NewStandardLogger("docring")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", map[string]interface{}{"error": err.Error()})
	}

	var metrics observability.MetricsClient = &observability.NoopMetricsClient{}
	var registry *prometheus.Registry
	if cfg.Observability.MetricsEnabled {
		pm := observability.NewPrometheusMetricsClient()
		metrics = pm
		registry = pm.Registry()
	}

	var tracer *observability.Tracer
	if cfg.Observability.TracingEnabled {
		tracer = observability.NewTracer("docring")
	}

	sink := docstore.ResponseSinkFunc(func(r docstore.Response) {
		fmt.Print(r.Print())
	})

	balancer := ring.New(ring.Config{
		StringHash:   hashfn.FNV1aString,
		IDHash:       hashfn.FNV1aUint32,
		Sink:         sink,
		Logger:       logger,
		Metrics:      metrics,
		Tracer:       tracer,
		VirtualNodes: cfg.Ring.VirtualNodes,
	})

	for _, s := range cfg.Ring.Servers {
		balancer.AddServer(s.ID, s.CacheCapacity)
	}

	if cfg.Admin.Enabled {
		go serveAdmin(cfg.Admin.ListenAddress, balancer, registry, logger)
	}

	var in io.Reader = os.Stdin
	if *workloadPath != "" {
		f, err := os.Open(*workloadPath)
		if err != nil {
			logger.Fatal("failed to open workload file", map[string]interface{}{"error": err.Error()})
		}
		defer f.Close()
		in = f
	}

	runWorkload(balancer, in, logger)
}

// runWorkload drives every line of in against balancer, printing each
// response through the host template. EDIT/GET responses come straight
// back from Forward; queue flushes triggered along the way are printed
// separately by the sink balancer was configured with.
func runWorkload(balancer *ring.Balancer, in io.Reader, logger observability.Logger) {
	reader := workload.New(in)
	for {
		op, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			logger.Error("malformed workload line", map[string]interface{}{"error": err.Error()})
			continue
		}

		switch op.Kind {
		case workload.OpEdit, workload.OpGet:
			resp := balancer.Forward(op.Request)
			fmt.Print(resp.Print())
		case workload.OpAddServer:
			balancer.AddServer(op.ServerID, op.CacheCapacity)
		case workload.OpRemoveServer:
			balancer.RemoveServer(op.ServerID)
		}
	}
}

// serveAdmin binds the admin HTTP listener with exponential backoff
// before giving up, since nothing else in this process depends on it:
// a transient port conflict shouldn't abort workload processing.
func serveAdmin(addr string, ring adminapi.RingView, registry *prometheus.Registry, logger observability.Logger) {
	router := adminapi.NewRouter(ring, registry)
	server := &http.Server{Addr: addr, Handler: router}

	var listener net.Listener
	bindOp := func() error {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		listener = l
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(bindOp, b); err != nil {
		logger.Error("admin HTTP listener failed to bind", map[string]interface{}{
			"address": addr,
			"error":   err.Error(),
		})
		return
	}

	logger.Info("admin HTTP surface listening", map[string]interface{}{"address": addr})
	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		logger.Error("admin HTTP server stopped", map[string]interface{}{"error": err.Error()})
	}
}
