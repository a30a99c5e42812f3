package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/flr/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: "Run the HTTP API for parsing, validating and importing files.\n\n" +
			"Imports are enabled when DATABASE_URL is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default: SERVER_PORT)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	slog.Info("configuration loaded",
		"port", a.cfg.Server.Port,
		"db_max_conns", a.cfg.Database.MaxConns,
		"schemas", len(a.catalog.Names()),
		"require_api_key", a.cfg.Security.RequireAPIKey,
	)

	// A nil interface, never a nil *store.Store, so the server answers 503.
	var importer web.Importer
	if a.cfg.Database.URL != "" {
		st, pool, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		importer = st
	} else {
		slog.Warn("DATABASE_URL not set, imports disabled")
	}

	server := web.NewServer(a.catalog, importer, a.cfg)

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Wait for active parses to complete (with timeout)
	if err := server.WaitForIdle(shutdownCtx); err != nil {
		slog.Warn("parses did not complete in time", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
