package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/breadthcore/internal/api"
	"github.com/wonny/breadthcore/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                 - Health check
  POST /api/score              - Score one record
  GET  /api/score/latest       - Latest stored result
  GET  /api/score/history      - Stored results in a date range
  POST /api/backfill           - Historical recalculation
  GET  /ws/backfill            - Backfill with progress stream
  GET  /api/algorithms         - Registered algorithms
  GET  /api/configs            - Stored calculation configs
  GET  /api/telemetry          - Recent calculation telemetry

Example:
  go run ./cmd/breadth api
  go run ./cmd/breadth api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Breadthcore API Server ===")

	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log.Component("api")
	log.WithFields(map[string]interface{}{
		"port":      a.cfg.Port,
		"env":       a.cfg.Env,
		"algorithm": a.engine.CurrentConfig().Algorithm,
	}).Info("Initializing API server")

	router := api.NewRouter(api.RouterDeps{
		Score:        handlers.NewScoreHandler(a.engine, a.records, a.results, a.cache, a.cfg.Scoring.ResultCacheTTL, log),
		Backfill:     handlers.NewBackfillHandler(a.engine, a.records, a.results, a.limiter, log),
		Config:       handlers.NewConfigHandler(a.store, a.engine, log),
		System:       handlers.NewSystemHandler(a.engine, a.db, a.redis, log),
		WriteLimiter: a.limiter,
		Logger:       log,
	})

	server := api.New(a.cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
