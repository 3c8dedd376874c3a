// Package gateway exposes the agent kernel over HTTP: a single streaming
// chat endpoint plus health and metrics. The gateway owns no agent state;
// everything durable lives in the session store, so any node can serve
// any session.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adpilot-ai/adpilot/internal/kernel"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// Runner starts kernel runs; satisfied by *kernel.Kernel.
type Runner interface {
	Run(ctx context.Context, req kernel.Request) (<-chan models.AgentEvent, error)
}

// Server is the HTTP gateway.
type Server struct {
	kernel   Runner
	logger   *slog.Logger
	gatherer prometheus.Gatherer

	httpServer *http.Server
	listener   net.Listener
}

// Config configures the gateway.
type Config struct {
	Host string
	Port int
}

// NewServer creates the gateway. A nil gatherer serves the default
// Prometheus registry on /metrics.
func NewServer(k Runner, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{kernel: k, logger: logger, gatherer: gatherer}
}

// Handler returns the gateway's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Start begins serving on the configured address. It returns once the
// listener is bound; serving continues in the background.
func (s *Server) Start(cfg Config) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.logger.Info("gateway listening", "addr", addr)
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound listen address, useful when port 0 was requested.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
