package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/trip-search/internal/cache"
	"github.com/example/trip-search/internal/config"
	httpapi "github.com/example/trip-search/internal/http"
	"github.com/example/trip-search/internal/ingest"
	"github.com/example/trip-search/internal/logging"
	"github.com/example/trip-search/internal/matcher"
	"github.com/example/trip-search/internal/payments"
	"github.com/example/trip-search/internal/storage"
)

const migrationFile = "001_create_trips.sql"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trip-search: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.TripStore
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer ps.Close()
		if cfg.RunMigrations {
			if err := runMigration(ctx, ps.DB(), filepath.Join("migrations", migrationFile)); err != nil {
				return fmt.Errorf("migration %s: %w", migrationFile, err)
			}
			logger.Info("migration applied", "file", migrationFile)
		}
		store = ps
	} else {
		logger.Warn("PG_DSN not set, serving from an empty in-memory store")
		store = storage.NewMemoryStore()
	}

	var sc cache.SearchCache
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.SearchCacheTTL, logger)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis ping failed, cache errors will be logged per request", "error", err)
		}
		sc = rc
	} else {
		sc = cache.NewMemoryCache(cfg.SearchCacheSize, cfg.SearchCacheTTL)
	}

	svc := &matcher.Service{Store: store, Cache: sc, Logger: logger, Location: cfg.TimeZone}
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaSearchTopic)
		defer kp.Close()
		svc.Events = kp
	}

	deps := httpapi.Deps{Search: svc, Store: store, Currency: cfg.FareCurrency, Logger: logger}
	if cfg.StripeAPIKey != "" {
		deps.Holds = payments.NewStripeClient(cfg.StripeAPIKey)
	}
	if cfg.SearchRateLimit > 0 {
		deps.Limiter = rate.NewLimiter(rate.Limit(cfg.SearchRateLimit), cfg.SearchRateBurst)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("trip-search listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("trip-search stopped")
	return nil
}

func runMigration(ctx context.Context, db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err = db.ExecContext(ctx, string(b))
	return err
}
