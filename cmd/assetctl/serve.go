package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recommerce/asset/core"
	"github.com/recommerce/asset/server"
	"github.com/recommerce/asset/server/handlers"
)

func newServeCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured backend over a read-only HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withClient(ctx, configPath(), func(rt *app, client *core.Client) error {
				return runServer(ctx, rt, client)
			})
		},
	}
}

// runServer serves client until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, rt *app, client *core.Client) error {
	logger := rt.logger
	serverCfg := rt.cfg.Server

	router := server.NewRouter(handlers.NewSerialized(client), client.Options().TmpDir, logger)

	srv := &http.Server{
		Addr:         serverCfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", serverCfg.ListenAddr),
			zap.String("backend", client.Adapter().Type()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited gracefully")
	return nil
}
