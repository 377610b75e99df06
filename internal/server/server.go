// Package server exposes the webhook runtime, the short code proxy and the Telegram
// update endpoint over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/botads/botads-go/internal/helpers"
)

// Config holds the listener settings.
type Config struct {
	Addr    string
	Port    string
	Timeout time.Duration
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithWebhook serves Botads webhooks on path.
func WithWebhook(path string, h http.Handler) Option {
	return func(s *Server) {
		s.routes = append(s.routes, route{pattern: http.MethodPost + " " + path, handler: h})
	}
}

// WithTelegram serves Telegram updates on path.
func WithTelegram(path string, h http.Handler) Option {
	return func(s *Server) {
		s.routes = append(s.routes, route{pattern: http.MethodPost + " " + path, handler: h})
	}
}

// WithCodes serves POST /codes, issuing codes for botID.
func WithCodes(issuer CodeIssuer, botID string) Option {
	return func(s *Server) {
		s.routes = append(s.routes, route{pattern: "POST /codes", handler: &codesHandler{issuer: issuer, botID: botID}})
	}
}

type route struct {
	pattern string
	handler http.Handler
}

// Server is the HTTP surface of the service and telegram modes.
type Server struct {
	cfg    Config
	logger *slog.Logger
	routes []route
	mux    *http.ServeMux
}

// New builds the route table.
func New(cfg Config, opts ...Option) *Server {
	_inst := &Server{cfg: cfg, logger: helpers.NewNoopLogger(), mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(_inst)
	}
	_inst.mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		helpers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	for _, r := range _inst.routes {
		if c, ok := r.handler.(*codesHandler); ok {
			c.logger = _inst.logger
		}
		_inst.mux.Handle(r.pattern, r.handler)
	}
	return _inst
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Handler:      s.mux,
		Addr:         net.JoinHostPort(s.cfg.Addr, s.cfg.Port),
		WriteTimeout: s.cfg.Timeout,
		ReadTimeout:  s.cfg.Timeout,
		IdleTimeout:  s.cfg.Timeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving...", "address", srv.Addr, "timeout", s.cfg.Timeout.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
