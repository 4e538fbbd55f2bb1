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

	"github.com/gin-gonic/gin"

	"lookahead-backtest/internal/api"
	"lookahead-backtest/internal/archive"
	"lookahead-backtest/internal/data"
	"lookahead-backtest/internal/logging"
)

func main() {
	// Get configuration from environment
	port := getenv("API_PORT", "8080")

	logger, closeLog, err := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := api.Options{
		CatalogPath: data.GetDefaultCatalogPath(),
		BatteryDir:  os.Getenv("BATTERY_DIR"),
		StaticDir:   getenv("STATIC_DIR", "./web/dist"),
		Cache:       data.NewSeriesCache(time.Hour),
		Logger:      logger,
	}

	// The archive is optional: ARCHIVE_DB=off disables it.
	if dbPath := os.Getenv("ARCHIVE_DB"); dbPath != "off" {
		a, err := archive.Open(dbPath)
		if err != nil {
			logger.Fatalf("Failed to open run archive: %v", err)
		}
		defer a.Close()
		opts.Archive = a
	}

	logger.Infof("Dataset catalog: %s", opts.CatalogPath)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           api.NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Starting API server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown failed: %v", err)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
