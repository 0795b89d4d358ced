package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/ledger-reconcile/internal/api"
	"github.com/eshaffer321/ledger-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconcile/internal/application/service"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port int
}

func (a *app) serveCmd() *cobra.Command {
	flags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context(), flags)
		},
	}

	cmd.Flags().IntVarP(&flags.Port, "port", "p", 0, "Port to listen on (default: from config)")

	return cmd
}

// serverConfig builds the API configuration from the loaded config.
func (a *app) serverConfig(flags *ServeFlags) api.Config {
	apiCfg := api.DefaultConfig()
	apiCfg.Port = a.cfg.API.Port
	if flags.Port > 0 {
		apiCfg.Port = flags.Port
	}
	if len(a.cfg.API.AllowedOrigins) > 0 {
		apiCfg.AllowedOrigins = a.cfg.API.AllowedOrigins
	}
	if a.cfg.Ingest.MaxUploadMB > 0 {
		apiCfg.MaxUploadBytes = int64(a.cfg.Ingest.MaxUploadMB) << 20
	}
	apiCfg.RequireDescription = a.cfg.Ingest.RequireDescription
	apiCfg.Export = a.cfg.ExportOptions()
	return apiCfg
}

// runServe runs the API server until ctx is cancelled or a shutdown signal
// arrives.
func (a *app) runServe(ctx context.Context, flags *ServeFlags) error {
	logger := a.base.With("system", "api")

	rules, err := a.cfg.BalanceRules()
	if err != nil {
		return err
	}
	pipeline := reconcile.NewPipeline(a.cfg.MatchingRules(), rules, logger)

	sessions := service.NewReconcileService(pipeline, logger)
	sessions.StartBackgroundCleanup(a.cfg.CleanupInterval(), a.cfg.SessionMaxAge())
	defer sessions.StopBackgroundCleanup()

	server := api.NewServer(a.serverConfig(flags), sessions, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-done
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
