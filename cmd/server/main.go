package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/api"
	"github.com/campusnest/forum/internal/auth"
	"github.com/campusnest/forum/internal/cache"
	"github.com/campusnest/forum/internal/db"
	"github.com/campusnest/forum/internal/forum"
	"github.com/campusnest/forum/internal/recount"
	"github.com/campusnest/forum/internal/storage"
	"github.com/campusnest/forum/internal/storage/memory"
	"github.com/campusnest/forum/pkg/config"
	"github.com/campusnest/forum/pkg/logging"
	"github.com/campusnest/forum/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting forum API server")

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("jwt_secret is required")
	}

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	store, recounter, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer closeStore()

	var routerOpts []api.RouterOption
	serviceOpts := []forum.Option{forum.WithPageSize(cfg.Forum.PageSize, cfg.Forum.MaxPageSize)}

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisCache != nil {
		defer redisCache.Close()
		serviceOpts = append(serviceOpts, forum.WithCache(cache.NewPages(redisCache, cfg.Forum.CacheTTL)))
		routerOpts = append(routerOpts, api.WithHealthCheck("cache", redisCache.Health))
	}

	service := forum.NewService(store, serviceOpts...)

	var metricsSrv *http.Server
	if cfg.Telemetry.Enabled && cfg.Telemetry.PrometheusEnabled {
		if cfg.Telemetry.PrometheusPort == cfg.Server.Port {
			routerOpts = append(routerOpts, api.WithMetrics())
		} else {
			metricsSrv = serveMetrics(cfg, logger)
		}
	}

	var scheduler *recount.Manager
	if cfg.Recount.Enabled && recounter != nil {
		scheduler, err = recount.NewManager(recount.NewJob(recounter, 0), cfg.Recount.Schedule)
		if err != nil {
			logger.Fatal("Failed to schedule recount", zap.Error(err))
		}
		scheduler.Start()
	}

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	router := api.NewRouter(service, verifier, routerOpts...)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Engine(),
	}

	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
	}
	if scheduler != nil {
		scheduler.Stop(ctx)
	}

	logger.Info("Server exited")
}

// openStore returns the configured store, the recounter for it (nil when
// counters cannot drift) and a close function.
func openStore(cfg *config.Config, logger *zap.Logger) (storage.Store, recount.Recounter, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory store; data is lost on exit")
		return memory.New(), nil, func() {}, nil
	}

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background()); err != nil {
			_ = database.Close()
			return nil, nil, nil, err
		}
	}
	store := db.NewStore(database)
	closeFn := func() {
		if err := database.Close(); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		}
	}
	return store, store, closeFn, nil
}

func serveMetrics(cfg *config.Config, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Telemetry.PrometheusPort),
		Handler: mux,
	}
	go func() {
		logger.Info("Metrics server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
