// Package server exposes the webhook endpoint over HTTP. The webhook
// always answers 200: TradingView disables alerts that see repeated
// non-2xx responses, so rejection and duplication are reported in the
// JSON body, never as status codes.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tv-consensus-bot/internal/engine"
	"tv-consensus-bot/internal/logger"
	"tv-consensus-bot/internal/types"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server wraps the Echo HTTP server around the consensus engine.
type Server struct {
	echo   *echo.Echo
	engine *engine.Engine
	config *ServerConfig
}

// NewServer creates the HTTP server and registers routes.
func NewServer(eng *engine.Engine, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            10000,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	s := &Server{echo: e, engine: eng, config: cfg}

	e.GET("/", s.handleRoot)
	e.GET("/healthz", s.handleHealth)
	e.POST("/webhook", s.handleWebhook)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"ok":      true,
		"service": "tv-consensus-bot",
		"ts":      time.Now().Unix(),
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// webhookResponse is the JSON body returned for every webhook call.
type webhookResponse struct {
	Status  string         `json:"status"`
	Reason  string         `json:"reason,omitempty"`
	Verdict *types.Verdict `json:"verdict,omitempty"`
}

func (s *Server) handleWebhook(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		logger.ErrorWithErr(c.Request().Context(), "Failed to read webhook body", err)
		return c.JSON(http.StatusOK, webhookResponse{Status: string(types.StatusIgnored), Reason: "unreadable body"})
	}

	result := s.engine.HandleAlert(c.Request().Context(), raw)

	return c.JSON(http.StatusOK, webhookResponse{
		Status:  string(result.Status),
		Reason:  result.Reason,
		Verdict: result.Verdict,
	})
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout

	go func() {
		logger.Info(context.Background(), "HTTP server listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(context.Background(), "HTTP server error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	logger.Info(context.Background(), "HTTP server stopped gracefully")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// WithHost sets the listen host.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

// WithPort sets the listen port.
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		c.Port = port
	}
}

// WithTimeouts sets read/write/shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}
