package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/robomaze/internal/config"
	"github.com/MeKo-Tech/robomaze/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for maze analysis and route planning",
	Long: `Start an HTTP server that analyses uploaded maze photos and plans routes.

The server provides the following endpoints:
  POST /maze/analyze - Analyse an uploaded photo (multipart field "image")
  POST /maze/solve   - Plan a route (?start=N&format=json|text|csv|overlay)
  GET  /ws/solve     - WebSocket variant of analyze and solve
  GET  /health       - Health check endpoint
  GET  /metrics      - Prometheus metrics

Examples:
  robomaze serve
  robomaze serve --port 8080
  robomaze serve --host 0.0.0.0 --port 3000 --rate-limit-per-minute 30`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get configuration from centralized system (includes CLI flags, config file, env vars, and defaults)
		cfg := GetConfig()

		serverConfig, shutdownTimeout, err := buildServerConfig(cmd, cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		mazeServer, err := server.NewServer(serverConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		defer func() { _ = mazeServer.Close() }()

		mux := http.NewServeMux()
		mazeServer.SetupRoutes(mux)

		timeout := time.Duration(serverConfig.TimeoutSec) * time.Second
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout,
		}

		go func() {
			slog.Info("Starting maze server", "host", serverConfig.Host, "port", serverConfig.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}

		if err := mazeServer.Close(); err != nil {
			slog.Error("Server cleanup error", "error", err)
		}

		slog.Info("Graceful shutdown completed")
		return nil
	},
}

// buildServerConfig applies the serve flags on top of the resolved
// configuration.
func buildServerConfig(cmd *cobra.Command, cfg *config.Config) (server.Config, time.Duration, error) {
	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}

	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}

	corsOrigin := cfg.Server.CORSOrigin
	if cmd.Flags().Changed("cors-origin") {
		corsOrigin, _ = cmd.Flags().GetString("cors-origin")
	}

	maxUploadSize := cfg.Server.MaxUploadMB
	if cmd.Flags().Changed("max-upload-size") {
		maxUploadSize, _ = cmd.Flags().GetInt("max-upload-size")
	}

	timeout := cfg.Server.TimeoutSec
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetInt("timeout")
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if cmd.Flags().Changed("shutdown-timeout") {
		shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}

	perMinute := cfg.Server.RateLimitPerMinute
	if cmd.Flags().Changed("rate-limit-per-minute") {
		perMinute, _ = cmd.Flags().GetInt("rate-limit-per-minute")
	}

	perHour := cfg.Server.RateLimitPerHour
	if cmd.Flags().Changed("rate-limit-per-hour") {
		perHour, _ = cmd.Flags().GetInt("rate-limit-per-hour")
	}

	// Validate port number
	if port < 1 || port > 65535 {
		return server.Config{}, 0, fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
	}
	if timeout <= 0 {
		return server.Config{}, 0, fmt.Errorf("invalid timeout: %d (must be positive)", timeout)
	}
	if perMinute < 0 || perHour < 0 {
		return server.Config{}, 0, fmt.Errorf("invalid rate limit: %d/min %d/h (must not be negative)", perMinute, perHour)
	}

	pCfg, err := cfg.ToPipelineConfig()
	if err != nil {
		return server.Config{}, 0, err
	}

	return server.Config{
		Host:               host,
		Port:               port,
		CORSOrigin:         corsOrigin,
		MaxUploadMB:        int64(maxUploadSize),
		TimeoutSec:         timeout,
		RateLimitPerMinute: perMinute,
		RateLimitPerHour:   perHour,
		PipelineConfig:     pCfg,
	}, time.Duration(shutdownTimeout) * time.Second, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	// Rate limiting flags
	serveCmd.Flags().Int("rate-limit-per-minute", 0, "maximum requests per minute per client (0 = unlimited)")
	serveCmd.Flags().Int("rate-limit-per-hour", 0, "maximum requests per hour per client (0 = unlimited)")
}
