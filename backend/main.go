package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kansalharshit22/solace-project/store"
	"go.uber.org/zap"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatal("Error building logger: ", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	srv := newServer(cfg, st, logger, NewMetrics())
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("Starting Campus Connect backend", zap.String("addr", cfg.Addr), zap.Bool("memory_store", cfg.MemoryStore))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// openStore connects to Postgres, or builds an in-memory store when the
// config asks for one.
func openStore(ctx context.Context, cfg Config, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.MemoryStore {
		logger.Warn("Using in-memory store; data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pg, err := store.Open(pingCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := pg.Migrate(pingCtx); err != nil {
			pg.Close()
			return nil, nil, err
		}
	}
	logger.Info("Database connection established successfully")
	return pg, func() { _ = pg.Close() }, nil
}
