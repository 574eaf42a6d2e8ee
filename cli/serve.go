// =============================================================================
// flexpay - Serve Command
// =============================================================================
//
// STARTUP SEQUENCE:
//   1. Open the SQLite store (--db, default flexpay.db)
//   2. Create the API handler and router
//   3. Start the server; on SIGINT/SIGTERM stop accepting connections,
//      wait for active requests (30s), close the store
//
// =============================================================================

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/flexpay-engine/api"
	"github.com/warp/flexpay-engine/store/sqlite"
	"go.uber.org/zap"
)

const defaultDBPath = "flexpay.db"

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().Int(KeyPort, 8080, "HTTP server port")
	cmd.Flags().StringSlice(KeyAllowedOrigins, nil, "CORS allowed origins")
	_ = a.v.BindPFlag(KeyPort, cmd.Flags().Lookup(KeyPort))
	_ = a.v.BindPFlag(KeyAllowedOrigins, cmd.Flags().Lookup(KeyAllowedOrigins))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	dbPath := a.v.GetString(KeyDB)
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	st, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer st.Close()

	handler := api.NewHandler(st, a.logger)
	handler.Version = Version
	port := a.v.GetInt(KeyPort)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      api.NewRouter(handler, a.v.GetStringSlice(KeyAllowedOrigins)),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.Int("port", port), zap.String("db", dbPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
