// Package server exposes chat sessions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/datachat-cli/internal/chat"
	"github.com/KaramelBytes/datachat-cli/internal/history"
	"github.com/KaramelBytes/datachat-cli/internal/metrics"
)

// Dispatcher handles one message for a session. *chat.Dispatcher satisfies it.
type Dispatcher interface {
	Handle(ctx context.Context, s *chat.Session, msg string) []chat.Reply
}

type Config struct {
	Logger     *slog.Logger
	Dispatcher Dispatcher
	Opener     history.Opener
	Welcome    string
	SessionTTL time.Duration
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Dispatcher == nil {
		return errors.New("dispatcher is required")
	}
	if c.Opener == nil {
		return errors.New("history opener is required")
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = time.Hour
	}
	return nil
}

type Server struct {
	log      *slog.Logger
	cfg      Config
	echo     *echo.Echo
	sessions *ttlcache.Cache[string, *chat.Session]
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate server config: %w", err)
	}
	sessions := ttlcache.New(
		ttlcache.WithTTL[string, *chat.Session](cfg.SessionTTL),
	)
	sessions.OnInsertion(func(_ context.Context, _ *ttlcache.Item[string, *chat.Session]) {
		metrics.ActiveSessions.Inc()
	})
	sessions.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *chat.Session]) {
		metrics.ActiveSessions.Dec()
		cfg.Logger.Debug("session evicted", "session", item.Key(), "reason", reason)
	})

	s := &Server{log: cfg.Logger, cfg: cfg, sessions: sessions}
	s.echo = s.newEcho()
	return s, nil
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s.RegisterRoutes(e)
	return e
}

// RegisterRoutes registers the API routes with the echo server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/sessions", s.CreateSession)
	e.POST("/v1/sessions/:session_id/messages", s.PostMessage)
	e.GET("/v1/sessions/:session_id/history", s.GetHistory)
	e.DELETE("/v1/sessions/:session_id/history", s.DeleteHistory)

	e.GET("/healthz", s.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.sessions.Start()
	defer s.sessions.Stop()

	s.echo.Listener = ln
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start("")
	}()
	s.log.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
