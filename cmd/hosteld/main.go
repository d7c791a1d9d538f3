package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/api"
	"hostel-allocation-backend/internal/db"
	"hostel-allocation-backend/internal/hostel"
	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/roomstock"
	"hostel-allocation-backend/internal/scheduler"
	"hostel-allocation-backend/internal/tracing"
	"hostel-allocation-backend/internal/waitlist"
)

var version = "dev"

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath), zap.String("version", version))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("hosteld stopped with error", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init("hosteld", version, cfg.Tracing.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer shutdown(context.Background())
	}

	gormDB, err := db.Init(&cfg.Database, logger.Named("db"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	// Create a context that is cancelled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	opts := []hostel.Option{hostel.WithMetrics(m)}
	var webpushOptions *webpush.Options
	if cfg.Push.Enabled {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger.Named("notification"))
		pool.SetMetrics(m)
		pool.Start(ctx)
		opts = append(opts, hostel.WithNotifier(pool))
		logger.Info("push notifications enabled", zap.Int("workers", cfg.WorkerPool.Size))
	} else {
		logger.Warn("push notifications disabled, VAPID keys not configured")
	}

	svc := hostel.New(gormDB, waitlist.PolicyFrom(cfg.Waitlist), logger.Named("hostel"), opts...)

	if cfg.RoomStock.Enabled {
		importer := roomstock.NewService(cfg.RoomStock, svc, logger.Named("roomstock"))
		go importer.Run(ctx)
	}

	recompute, err := scheduler.New(cfg.Waitlist.RecomputeRRule, svc, logger.Named("scheduler"))
	if err != nil {
		return err
	}
	go recompute.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(svc, gormDB, webpushOptions, cfg.Server.DefaultActor, logger.Named("api"))
	router := api.NewRouter(handler, cfg.Server, metrics.Handler(registry), logger.Named("http"))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping services")
	}

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}
	return nil
}
