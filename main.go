package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stevemurr/kinder-admissions/config"
	"github.com/stevemurr/kinder-admissions/database"
	"github.com/stevemurr/kinder-admissions/handler"
	"github.com/stevemurr/kinder-admissions/metrics"
	"github.com/stevemurr/kinder-admissions/store"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

// corsMiddleware allows any origin, method and header, with credentials.
// The request's Origin is echoed since "*" is not valid alongside credentials.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := r.Header.Get("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", r.Header.Get("Access-Control-Request-Method"))
			if hdrs := r.Header.Get("Access-Control-Request-Headers"); hdrs != "" {
				h.Set("Access-Control-Allow-Headers", hdrs)
			} else {
				h.Set("Access-Control-Allow-Headers", "*")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// openStore connects the configured backend. A missing or unreachable
// database is logged and yields a nil store so the API still starts.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) store.Store {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	s, err := store.New(ctx, store.Options{
		Backend: cfg.StoreBackend,
		URL:     cfg.DatabaseURL,
		Name:    cfg.DatabaseName,
		DataDir: cfg.DataDir,
	})
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		logger.Warn("database not configured; storage endpoints will fail", "error", err)
		return nil
	case err != nil:
		logger.Error("database connection failed", "backend", cfg.StoreBackend, "error", err)
		return nil
	}
	logger.Info("database connected", "backend", cfg.StoreBackend, "database", s.Name())
	return s
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := database.New(openStore(ctx, cfg, logger), logger)

	h := handler.New(db, handler.Options{
		Logger:          logger,
		Metrics:         metrics.New(prometheus.DefaultRegisterer),
		Gatherer:        prometheus.DefaultGatherer,
		DatabaseURLSet:  cfg.DatabaseURLSet(),
		DatabaseNameSet: cfg.DatabaseNameSet(),
	})
	srv := newServer(cfg.Addr(), corsMiddleware(h))

	go func() {
		logger.Info("admissions API starting", "addr", cfg.Addr(), "database", db.Configured())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if err := db.Close(shutdownCtx); err != nil {
		logger.Error("closing database", "error", err)
	}
}
