package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plc-copilot/internal/logging"
	"plc-copilot/internal/server"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser console and relay API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := flags.load()
			if port != "" {
				cfg.Port = port
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			s, err := server.NewServer(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			defer s.Close()

			// Generation can take as long as the upstream timeout allows.
			srv := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      s.Router(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", zap.String("port", cfg.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return fmt.Errorf("failed to start server: %w", err)
			case <-quit:
			}

			logger.Info("shutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			logger.Info("server exited gracefully")
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port; overrides PORT")
	return cmd
}
