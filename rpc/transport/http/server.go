package http

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

type httpServerTransport struct {
	handler transport.ServerHandleFunc
	server  *http.Server
	mu      sync.Mutex
}

func NewHttpServerTransport() transport.IRPCServerTransport {
	return &httpServerTransport{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *httpServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *httpServerTransport) Listen(config common.ServerConfig) error {
	server := &http.Server{
		Handler:           t.routes(config.LogLevel == "debug"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// published before binding so a concurrent Shutdown makes Serve return immediately
	t.mu.Lock()
	t.server = server
	t.mu.Unlock()

	listener, err := net.Listen("tcp", config.Transport.Endpoint)
	if err != nil {
		return err
	}
	Logger.Infof("Starting HTTP server on %s", listener.Addr())

	if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (t *httpServerTransport) Shutdown() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.server == nil {
		return nil
	}
	return t.server.Close()
}

// --------------------------------------------------------------------------
// Routes
// --------------------------------------------------------------------------

// routes serves the rpc endpoint and the prometheus metrics of the default set
func (t *httpServerTransport) routes(logRequests bool) http.Handler {
	var rpc http.Handler = http.HandlerFunc(t.serveShard)
	if logRequests {
		rpc = withRequestLog(rpc)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /{shardId}", rpc)
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	return mux
}

func (t *httpServerTransport) serveShard(w http.ResponseWriter, r *http.Request) {
	shardId, err := strconv.ParseUint(r.PathValue("shardId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid shardId", http.StatusBadRequest)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err = w.Write(t.handler(shardId, body)); err != nil {
		Logger.Errorf("Failed to write response: %v", err)
	}
}

// statusRecorder remembers the status code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
