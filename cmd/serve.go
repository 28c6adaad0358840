package cmd

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

	"github.com/khanhnv2901/phishscope/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run phishscope as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config
		services := appCtx.Services
		logger := appCtx.Logger

		jobManager := api.NewJobManager(services.Runner, services.Feed, logger.Named("jobs"))
		defer jobManager.Close()

		server := api.NewServer(api.Config{
			Runner:      services.Runner,
			Feed:        services.Feed,
			Jobs:        jobManager,
			Health:      services.Health,
			Metrics:     services.Metrics,
			Logger:      logger.Named("api"),
			CORSOrigins: cfg.API.CORSOrigins,
			MaxBatch:    cfg.API.MaxBatch,
		})

		// No write timeout: batch responses and the job stream are long-lived
		// and bounded by the per-URL analysis timeout instead.
		httpServer := &http.Server{
			Addr:              cfg.API.Addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("%s API server listening on %s (generation: %s)\n",
				colorInfo("→"), cfg.API.Addr, generationLabel(cfg.GenerationEnabled()))
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)
			services.Health.Drain()

			ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}
			logger.Info("server stopped", zap.String("signal", sig.String()))
			fmt.Printf("%s Server shutdown complete\n", colorInfo("✓"))
		}

		return nil
	},
}

func generationLabel(enabled bool) string {
	if enabled {
		return colorSuccess("enabled")
	}
	return colorWarn("disabled, set OPENAI_API_KEY")
}

func init() {
	serveCmd.Flags().String("addr", "", "Address for the API server (default 127.0.0.1:8080)")
	serveCmd.Flags().Int("max-batch", 0, "Maximum URLs accepted per batch request")
	serveCmd.Flags().Duration("shutdown-timeout", 0, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().String("feed-url", "", "feed URL used by /api/v1/feed/analyze")
	addBatchFlags(serveCmd.Flags())
}
