// Package mcp serves the storynest tools over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/storynest/storynest/client"
	"github.com/storynest/storynest/internal/logger"
	"github.com/storynest/storynest/mcp/internal/handlers"
)

// EnvPrefix is the environment prefix read by LoadConfig.
const EnvPrefix = "STORYNEST_MCP"

// Config holds the MCP server settings. The SDK itself is configured from
// STORYNEST_* (see client.LoadConfig).
type Config struct {
	ServerName      string        `envconfig:"SERVER_NAME" default:"storynest-mcp-server"`
	ServerVersion   string        `envconfig:"SERVER_VERSION" default:"0.1.0"`
	Transport       string        `envconfig:"TRANSPORT" default:"auto"` // auto | stdio | http
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":11546"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	HTTPReadTimeout time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"5s"`
	HTTPIdleTimeout time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"120s"`
}

// LoadConfig reads Config from STORYNEST_MCP_* environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load mcp config: %w", err)
	}
	switch cfg.Transport {
	case "auto", "stdio", "http":
	default:
		return nil, fmt.Errorf("STORYNEST_MCP_TRANSPORT must be auto, stdio or http, got %q", cfg.Transport)
	}
	return &cfg, nil
}

// NewServer builds an MCP server with every storynest tool registered.
func NewServer(c *client.Client, name, version string) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	groups := []struct {
		name string
		h    handlers.ToolRegisterer
	}{
		{"kid", handlers.NewKidHandler(c)},
		{"story", handlers.NewStoryHandler(c)},
		{"generation", handlers.NewGenerationHandler(c)},
	}
	for _, g := range groups {
		if err := g.h.RegisterTools(s); err != nil {
			return nil, fmt.Errorf("register %s tools: %w", g.name, err)
		}
	}
	return s, nil
}

// Run starts the server on the configured transport and blocks until ctx is
// done (HTTP) or stdin closes (stdio).
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	// stdout carries the protocol in stdio mode.
	log.Logger = logger.NewWithWriter(os.Stderr, cfg.ServerName)

	ccfg, err := client.LoadConfig()
	if err != nil {
		return err
	}
	sdk, err := client.NewFromConfig(ccfg,
		client.WithLogger(log.Logger),
		client.WithGenerationErrorHandler(func(kidID string, err error) {
			log.Warn().Err(err).Str("kid_id", kidID).Msg("background generation failed")
		}))
	if err != nil {
		log.Error().Stack().Err(err).Msg("failed to create client")
		return err
	}
	defer func() {
		if err := sdk.Close(); err != nil {
			log.Error().Err(err).Msg("error closing storynest client")
		}
	}()
	log.Info().Str("base_url", ccfg.BaseURL).Msg("storynest client created")

	s, err := NewServer(sdk, cfg.ServerName, cfg.ServerVersion)
	if err != nil {
		return err
	}

	if useStdio(cfg.Transport) {
		log.Info().Msg("starting storynest MCP server (stdio transport)")
		return server.ServeStdio(s)
	}
	return serveHTTP(ctx, cfg, s)
}

func serveHTTP(ctx context.Context, cfg *Config, s *server.MCPServer) error {
	streamSrv := server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath("/mcp"),
		server.WithHeartbeatInterval(30*time.Second),
	)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpRouter(streamSrv),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: 0, // SSE streams have no deadline
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting storynest MCP server (streamable HTTP)")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down MCP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during HTTP server shutdown")
	}
	if err := streamSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during MCP server shutdown")
	}
	return <-errCh
}

// httpRouter serves MCP on /mcp and the SDK's Prometheus metrics on /metrics.
func httpRouter(mcpHandler http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/mcp").Handler(mcpHandler)
	return r
}

// useStdio resolves "auto" to stdio when stdin is not a terminal, i.e. the
// server was launched by an MCP host.
func useStdio(transport string) bool {
	switch strings.ToLower(transport) {
	case "stdio":
		return true
	case "http":
		return false
	}
	if fi, err := os.Stdin.Stat(); err == nil {
		return (fi.Mode() & os.ModeCharDevice) == 0
	}
	return false
}
