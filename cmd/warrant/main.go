// Command warrant serves the warrant HTTP API backed by the in-memory store.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/xraph/forge"

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/api"
	"github.com/xraph/warrant/cache"
	"github.com/xraph/warrant/discovery"
	"github.com/xraph/warrant/plugin/metrics"
	"github.com/xraph/warrant/store/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := newLogger(cfg)

	registry := prometheus.NewRegistry()
	opts := []warrant.Option{
		warrant.WithStore(memory.New()),
		warrant.WithConfig(cfg.engineConfig()),
		warrant.WithLogger(logger),
		warrant.WithPlugin(metrics.New(registry)),
	}
	if cfg.DiscoveryFile != "" {
		opts = append(opts, warrant.WithDiscovery(discovery.File{Path: cfg.DiscoveryFile}))
	}

	switch cfg.CacheMode {
	case "memory":
		opts = append(opts, warrant.WithCache(cache.NewMemory(
			cache.WithTTL(cfg.CacheTTL),
			cache.WithMaxSize(cfg.CacheMaxSize),
		)))
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping", slog.Any("error", err))
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		opts = append(opts, warrant.WithCache(cache.NewRedis(client,
			cache.WithRedisTTL(cfg.CacheTTL),
			cache.WithRedisLogger(logger),
		)))
	}

	eng, err := warrant.NewEngine(opts...)
	if err != nil {
		logger.Error("create engine", slog.Any("error", err))
		os.Exit(1)
	}
	if err := eng.Start(ctx); err != nil {
		logger.Error("start engine", slog.Any("error", err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", api.New(eng, forge.NewRouter()).Handler())

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.Addr),
			slog.String("default_guard", eng.DefaultGuard()),
			slog.Bool("tenancy", cfg.TenancyEnabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	if err := eng.Stop(shutdownCtx); err != nil {
		logger.Error("stop engine", slog.Any("error", err))
	}
}
