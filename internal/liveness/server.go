// Package liveness answers hosting-platform health checks on GET /.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	DefaultMessage  = "Telegram Bot is running on Go server!"
	shutdownTimeout = 5 * time.Second
)

// Server is the single-route liveness listener. It shares nothing with the
// relay, so it keeps answering whatever state the listener is in.
type Server struct {
	host    string
	port    int
	message string
	logger  *slog.Logger
	router  chi.Router
}

type Config struct {
	Host    string
	Port    int
	Message string
	Logger  *slog.Logger
}

func NewServer(cfg Config) *Server {
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		host:    cfg.Host,
		port:    cfg.Port,
		message: cfg.Message,
		logger:  cfg.Logger,
	}

	r := chi.NewRouter()
	r.Get("/", s.handleRoot)
	s.router = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, s.message)
}

// Start listens and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("liveness listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on an existing listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("liveness server started", "addr", "http://"+ln.Addr().String())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("liveness server stopped")
	return nil
}
