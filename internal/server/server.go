// Package server exposes the decoder over HTTP: single uploads on
// /decode, a frame stream on /ws/scan, plus health and prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/binarizer"
	"github.com/ericlevine/zxscan/internal/config"
	"github.com/ericlevine/zxscan/resultparser"
	"github.com/ericlevine/zxscan/scanner"
)

// Server holds the HTTP server state. Every request and websocket
// connection gets its own BarcodeReader.
type Server struct {
	addr        string
	decode      config.DecodeConfig
	binarizer   binarizer.Factory
	parsers     resultparser.Chain
	maxUpload   int64
	logger      *slog.Logger
	router      *mux.Router
	httpSrv     *http.Server
	listener    net.Listener
	shutdownTTL time.Duration
}

// NewServer validates cfg and builds the routes. A nil logger discards.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Decode.Validate(); err != nil {
		return nil, err
	}
	if cfg.Server.MaxUploadMB < 1 {
		return nil, fmt.Errorf("server.max_upload_mb must be positive, got %d", cfg.Server.MaxUploadMB)
	}
	factory, err := cfg.Decode.BinarizerFactory()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		addr:        cfg.Server.Address(),
		decode:      cfg.Decode,
		binarizer:   factory,
		parsers:     resultparser.Default(),
		maxUpload:   int64(cfg.Server.MaxUploadMB) << 20,
		logger:      logger,
		shutdownTTL: 10 * time.Second,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware, s.metricsMiddleware, s.loggingMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/decode", s.decodeHandler).Methods(http.MethodPost)
	r.HandleFunc("/ws/scan", s.scanWebSocketHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router = r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// newReader returns a facade configured with opts and the server's
// binarizer.
func (s *Server) newReader(opts *zxscan.DecodeOptions) *scanner.BarcodeReader {
	reader := scanner.NewBarcodeReader(opts)
	reader.SetBinarizer(s.binarizer)
	reader.SetLogger(s.logger)
	return reader
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lsn, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, lsn)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, lsn net.Listener) error {
	s.listener = lsn
	s.httpSrv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", lsn.Addr().String())
		errc <- s.httpSrv.Serve(lsn)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTTL)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listening address once Serve has started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
