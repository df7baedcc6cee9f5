package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/database"
	"github.com/shiftwatch/shiftwatch/internal/logging"
	"github.com/shiftwatch/shiftwatch/internal/server"
)

func main() {
	port := os.Getenv("SHIFTWATCH_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("SHIFTWATCH_DB_PATH")
	if dbPath == "" {
		dbPath = "shiftwatch.db"
	}

	secret := os.Getenv("SHIFTWATCH_JWT_SECRET")
	if secret == "" {
		log.Fatal("SHIFTWATCH_JWT_SECRET is required")
	}

	logger := logging.Setup(os.Getenv("SHIFTWATCH_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		JWTSecret:       []byte(secret),
		SessionTTL:      envDuration("SHIFTWATCH_SESSION_TTL"),
		MaxOnline:       envDuration("SHIFTWATCH_MAX_ONLINE"),
		MonitorInterval: envDuration("SHIFTWATCH_MONITOR_INTERVAL"),
		CleanupInterval: envDuration("SHIFTWATCH_CLEANUP_INTERVAL"),
	}

	srv := server.New(db, cfg, logger)

	ctx, stop := context.WithCancel(context.Background())
	srv.Monitor().Start(ctx)
	srv.SessionCleanup().Start(ctx)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("shiftwatch listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	srv.Monitor().Stop()
	srv.SessionCleanup().Stop()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// envDuration parses a duration env var, returning zero (select defaults)
// when unset or malformed.
func envDuration(name string) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", name, v, err)
		return 0
	}
	return d
}
