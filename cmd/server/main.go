/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the door tracking server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env, read environment, parse command-line flags
  2. Build the zap logger
  3. Pick the ledger store (local SQLite or remote backend)
  4. Create service, session manager and API handler
  5. Start server with graceful shutdown

BACKEND MODES:
  local   Ledgers in SQLite (-db). Tokens are signed locally. Scenarios
          can be loaded.
  remote  Ledgers owned by the REST backend at BACKEND_URL. Sign-in is
          forwarded to it.

COMMAND-LINE FLAGS (override environment):
  -port    HTTP server port (PORT, default: 8080)
  -db      SQLite database path (DB_PATH, default: ./data/doors.db)
           Use ":memory:" for in-memory database
  -mode    local or remote (BACKEND_MODE, default: local)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/doorworks/api"
	"github.com/warp/doorworks/client"
	"github.com/warp/doorworks/config"
	"github.com/warp/doorworks/doors"
	"github.com/warp/doorworks/logging"
	"github.com/warp/doorworks/session"
	"github.com/warp/doorworks/store/sqlite"
)

func main() {
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	port := flag.String("port", cfg.Server.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Backend.DBPath, "SQLite database path")
	mode := flag.String("mode", cfg.Backend.Mode, "ledger backend: local or remote")
	flag.Parse()

	logger, err := logging.New(cfg.Logger, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	var (
		ledger doors.Store
		auth   api.Authenticator
		local  *sqlite.Store
	)

	switch *mode {
	case config.ModeLocal:
		if *dbPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
				logger.Fatal("Could not create data directory", zap.Error(err))
			}
		}
		local, err = sqlite.New(*dbPath)
		if err != nil {
			logger.Fatal("Could not open database", zap.String("db", *dbPath), zap.Error(err))
		}
		defer local.Close()
		ledger = local
		auth = &session.Issuer{
			Secret:   []byte(cfg.Session.SecretKey),
			Password: cfg.Session.LocalPassword,
			TTL:      cfg.Session.TTL,
		}
		logger.Info("Using local ledger", zap.String("db", *dbPath))

	case config.ModeRemote:
		c, err := client.New(cfg.Backend.URL, cfg.Backend.Timeout, logger.Named("backend"))
		if err != nil {
			logger.Fatal("Invalid backend configuration", zap.Error(err))
		}
		ledger = client.NewRemote(c)
		auth = c
		logger.Info("Using remote ledger", zap.String("url", cfg.Backend.URL), zap.Duration("timeout", cfg.Backend.Timeout))

	default:
		logger.Fatal("Unknown backend mode", zap.String("mode", *mode))
	}

	svc := doors.NewService(ledger, logger.Named("doors"))
	handler := api.NewHandler(svc, auth, session.NewManager(cfg.Session.TTL), local, logger.Named("api"))
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("addr", "http://localhost:"+*port), zap.String("mode", *mode))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
