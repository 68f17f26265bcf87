// Package metricsserver exposes a Prometheus registry over HTTP while a
// simulation runs.
package metricsserver

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// MetricsPath is where the registry is served.
const MetricsPath = "/metrics"

// Server serves /metrics and /healthz.
type Server struct {
	server   *fasthttp.Server
	listener net.Listener
	logger   *zap.Logger
	done     chan error
}

// Start listens on addr and serves g in the background.
// Use "127.0.0.1:0" to pick a free port; Addr reports the result.
func Start(addr string, g prometheus.Gatherer, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	metrics := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(g, promhttp.HandlerOpts{ErrorLog: zap.NewStdLog(logger)}),
	)

	s := &Server{
		listener: ln,
		logger:   logger,
		done:     make(chan error, 1),
	}
	s.server = &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			switch string(ctx.Path()) {
			case MetricsPath:
				metrics(ctx)
			case "/healthz":
				ctx.SetContentType("text/plain; charset=utf-8")
				ctx.SetBodyString("ok\n")
			default:
				ctx.Error("not found", fasthttp.StatusNotFound)
			}
		},
		Name:         "lrusim",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		s.done <- s.server.Serve(ln)
	}()

	logger.Info("metrics server listening", zap.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close stops the server and waits for in-flight requests. It is safe to
// call before the serving goroutine has started accepting.
func (s *Server) Close() error {
	if err := s.server.Shutdown(); err != nil {
		return fmt.Errorf("shutting down metrics server: %w", err)
	}
	// Shutdown only closes listeners Serve has already registered.
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("closing metrics listener: %w", err)
	}
	if err := <-s.done; err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("serving metrics: %w", err)
	}
	return nil
}
