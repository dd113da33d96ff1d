package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexlapax/careercoach/pkg/coach"
	"github.com/lexlapax/careercoach/pkg/config"
	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server.

Configuration comes from the optional YAML file given with --config, then
environment variables (a .env file in the working directory is loaded first).

Examples:
  careercoach serve
  careercoach serve --config careercoach.yaml --addr :9000 --debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")
		debug, _ := cmd.Flags().GetBool("debug")

		cfg, err := loadConfig(path, addr, debug)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().String("config", "", "path to a YAML configuration file")
	serveCmd.Flags().String("addr", "", "listen address (overrides configuration)")
	serveCmd.Flags().Bool("debug", false, "enable debug logging")
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(path, addr string, debug bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if debug {
		cfg.Logging.Level = string(log.DebugLevel)
	}

	log.Setup(log.Config{
		Level:  log.Level(cfg.Logging.Level),
		Format: log.Format(cfg.Logging.Format),
	})
	return cfg, nil
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, cfg *config.Config) error {
	service, closeService, err := coach.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeService(); err != nil {
			log.Warn("Failed to close memory store", "error", err)
		}
	}()

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.NewHandler(server.Deps{
			Coach:          service,
			RequestTimeout: cfg.Server.RequestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("careercoach listening", "addr", cfg.Server.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
