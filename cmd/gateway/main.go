package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ericksa/legalese/internal/audit"
	"github.com/ericksa/legalese/internal/config"
	"github.com/ericksa/legalese/internal/logging"
	"github.com/ericksa/legalese/internal/store"
	"github.com/ericksa/legalese/internal/workers"
	"github.com/ericksa/legalese/pkg/mcp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Legalese.Log.Level, cfg.Legalese.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config", zap.Error(err))
	}

	a, cleanup, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialise", zap.Error(err))
	}
	defer cleanup()

	// Start server
	srv := &http.Server{
		Addr:         cfg.Legalese.Server.Addr,
		Handler:      newRouter(cfg, a),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting contract review gateway", zap.String("addr", cfg.Legalese.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// writeTimeout leaves room for the slowest remote call.
func writeTimeout(cfg *config.Config) time.Duration {
	t := cfg.Legalese.Server.Timeout
	if chat := cfg.Legalese.AI.ChatTimeout + 5*time.Second; t < chat {
		t = chat
	}
	return t
}

// app holds the long-lived collaborators shared by every handler.
type app struct {
	contract *workers.ContractWorker
	handler  *mcp.Handler
	logger   *zap.Logger
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, func(), error) {
	if err := ensureDir(cfg.Legalese.Store.Path); err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Legalese.Store.Path)
	if err != nil {
		return nil, nil, err
	}

	var auditor *audit.Auditor
	if cfg.Legalese.Audit.Enabled {
		if err := ensureDir(cfg.Legalese.Audit.Path); err != nil {
			logger.Warn("Audit directory unavailable", zap.Error(err))
		}
		auditor = audit.NewAuditor(cfg.Legalese.Audit.Path, logger)
	}

	contract, gen := workers.NewContractWorkerFromConfig(cfg, st, logger)

	tools := map[string]mcp.Worker{"contract": contract}
	if w, ok := gen.(mcp.Worker); ok {
		tools[strings.ToLower(cfg.Legalese.AI.Provider)] = w
	}

	cleanup := func() {
		auditor.Close()
		if err := st.Close(); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}

	return &app{
		contract: contract,
		handler:  mcp.NewHandler(tools, auditor, logger),
		logger:   logger,
	}, cleanup, nil
}

func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	return nil
}
