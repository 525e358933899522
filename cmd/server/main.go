package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/rl1809/checkout/internal/adapter/handler"
	"github.com/rl1809/checkout/internal/adapter/metrics"
	"github.com/rl1809/checkout/internal/adapter/storage"
	"github.com/rl1809/checkout/internal/config"
	"github.com/rl1809/checkout/internal/core/service"
	"github.com/rl1809/checkout/internal/port"
)

const serviceName = "checkout"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zlog.With().Str("service", serviceName).Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize the inventory store. MYSQL_DSN=memory selects the
	// in-process adapter so the server runs without external infrastructure.
	var inventory port.InventoryRepository
	var db *sql.DB
	if cfg.MySQLDSN == "memory" {
		inventory = storage.NewMemoryAdapter()
		zlog.Info().Msg("using in-memory inventory store")
	} else {
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to connect mysql")
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Std())

		if err := db.PingContext(ctx); err != nil {
			zlog.Fatal().Err(err).Msg("failed to ping mysql")
		}
		zlog.Info().Msg("connected to mysql")

		inventory = storage.NewMySQLAdapter(db)
	}

	// Redis is optional; without it request ids are not deduplicated.
	var cache port.CacheRepository
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatal().Err(err).Msg("failed to connect redis")
		}
		cache = storage.NewRedisAdapter(rdb)
		zlog.Info().Msg("connected to redis")
	}

	recorder := metrics.NewPrometheus(prometheus.DefaultRegisterer)

	checkout := service.NewCheckoutService(inventory, cache, recorder, cfg.MaxAttempts, zlog.Logger)

	httpHandler := handler.NewHTTPHandler(checkout, inventory, zlog.Logger)
	mux := http.NewServeMux()
	httpHandler.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		zlog.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			zlog.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Std())
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	zlog.Info().Msg("HTTP server stopped")

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	zlog.Info().Msg("connections closed")
}
