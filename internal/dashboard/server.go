// Package dashboard serves the companion web interface: JSON status
// APIs, the recent-log feed and Prometheus metrics. It renders no HTML.
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"grebbot/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string // e.g. "127.0.0.1:8080"
}

type Server struct {
	cfg Config
	log logx.Logger
	srv *http.Server
}

func NewServer(cfg Config, handler http.Handler, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{
		cfg: cfg,
		log: log.With(logx.String("svc", "dashboard")),
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.log.Info("dashboard listening", logx.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("dashboard server failed", logx.Err(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
