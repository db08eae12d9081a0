// Package main is the entry point for the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/utsavhq/vendormatch/internal/api"
	"github.com/utsavhq/vendormatch/internal/auth"
	"github.com/utsavhq/vendormatch/internal/config"
	"github.com/utsavhq/vendormatch/internal/db"
	"github.com/utsavhq/vendormatch/internal/directory"
	"github.com/utsavhq/vendormatch/internal/health"
	"github.com/utsavhq/vendormatch/internal/idempotency"
	"github.com/utsavhq/vendormatch/internal/jobs"
	"github.com/utsavhq/vendormatch/internal/match"
	"github.com/utsavhq/vendormatch/internal/middleware"
	"github.com/utsavhq/vendormatch/internal/tracing"
)

const (
	serviceName = "vendormatch"

	// How long in-flight requests get to finish after SIGTERM.
	shutdownDrain = 10 * time.Second

	// Expired idempotency keys are swept on this cadence.
	cleanupInterval = time.Hour
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("VendorMatch API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Configuration is read from environment variables, with an optional")
		fmt.Println("YAML file as fallback. Run with no DATABASE_URL or REDIS_ADDR for a")
		fmt.Println("fully in-memory server.")
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Any("config", cfg.LogSummary()))

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Storage. Postgres when configured, otherwise everything runs in memory
	// and restarts lose state.
	var (
		repo            directory.Repository
		idempotencyRepo idempotency.Repository
		dbChecker       health.Checker
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(context.Background(), cfg.DatabaseURL, cfg.DatabaseMaxConns)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		repo = directory.NewPostgresRepository(pool, logger)
		idempotencyRepo = idempotency.NewPostgresRepository(pool, logger)
		dbChecker = health.NewDBChecker(pool)
	} else {
		logger.Info("DATABASE_URL not set, using in-memory directory")
		repo = directory.NewInMemoryRepository()
		idempotencyRepo = idempotency.NewInMemoryRepository()
	}

	// Redis backs the snapshot cache and distributed rate limiting. Without
	// it the cache is disabled and rate limiting is per-process.
	var (
		redisClient  *redis.Client
		redisChecker health.Checker
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		redisChecker = health.NewRedisChecker(redisClient)
	}

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cache := directory.NewSnapshotCache(redisClient, "", cacheTTL, logger)

	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	matchMetrics := match.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	for _, reg := range []func(prometheus.Registerer) error{
		httpMetrics.Register, matchMetrics.Register, jobMetrics.Register,
	} {
		if err := reg(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	// An unreadable or malformed calibration file degrades to the built-in
	// weights rather than refusing to start.
	weights, err := match.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		logger.Warn("using default scoring weights", "error", err)
	}
	matcher := match.NewMatcher(weights, logger, matchMetrics)

	matches := api.NewMatchHandlers(repo, cache, matcher)
	vendors := api.NewVendorHandlers(repo, cache)
	probes := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    dbChecker,
		RedisChecker: redisChecker,
	})

	mux := api.NewMux(matches, vendors, probes)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Middleware chain, innermost first. Request flow is RequestID ->
	// Logging -> Tracing -> HTTPMetrics -> CORS -> RateLimiter -> Auth ->
	// Idempotency -> routes.
	handler := http.Handler(mux)
	handler = middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     cfg.ProfilingEnabled,
		Environment: cfg.Env,
	})(handler)
	handler = middleware.Idempotency(idempotencyRepo, map[string]bool{"/vendors": true})(handler)
	if cfg.AuthEnabled {
		tokens := auth.NewJWTService(cfg.JWTSecret)
		if cfg.JWTPreviousSecret != "" {
			tokens = auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)
		}
		handler = middleware.Auth(tokens, middleware.VendorMutations)(handler)
	}
	if cfg.RateLimitEnabled {
		var store middleware.RateLimitStore
		if redisClient != nil {
			store = middleware.NewRedisRateLimitStoreWithMetrics(redisClient, httpMetrics)
		} else {
			store = middleware.NewInMemoryRateLimitStore()
		}
		limit := middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimitRPM,
			WindowDuration:    time.Minute,
		}
		handler = middleware.When(middleware.RateLimitedRoutes,
			middleware.RateLimiter(store, limit, middleware.IPKeyFunc(), httpMetrics))(handler)
	}
	if origins := splitOrigins(cfg.CORSAllowedOrigins); len(origins) > 0 {
		handler = middleware.CORS(middleware.CORSConfig{AllowedOrigins: origins})(handler)
	}
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

	// Background loops stop before the server drains.
	bgCtx, cancelBG := context.WithCancel(context.Background())
	go idempotency.RunPeriodicCleanup(bgCtx, idempotencyRepo, cleanupInterval, idempotency.DefaultExpiry, jobMetrics)
	if redisClient != nil {
		go directory.RunPeriodicWarm(bgCtx, repo, cache, cacheTTL/2, jobMetrics)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancelBG()

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), shutdownDrain)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tp.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracing", "error", err)
	}

	logger.Info("server stopped")
}

// splitOrigins turns a comma-separated origin list into a slice, trimming
// whitespace and dropping empty entries.
func splitOrigins(s string) []string {
	var origins []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
