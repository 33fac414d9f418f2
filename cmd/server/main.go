package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pickpoint/internal/api"
	"pickpoint/internal/config"
	"pickpoint/internal/database"
	"pickpoint/internal/domain"
	"pickpoint/internal/events"
	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/notifications"
	"pickpoint/internal/repository"
	"pickpoint/internal/service"
	"pickpoint/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	directoryCache, redisCloser := initDirectoryCache(cfg, &logger)
	if redisCloser != nil {
		defer redisCloser()
	}

	bus := events.NewEventBus()
	orders := service.NewOrderService(db, db, bus, &logger)
	lockers := service.NewLockerDirectoryService(db, directoryCache, &logger)
	notifier := notifications.NewNotifier(bus, &logger)

	// Любой переход меняет доступность ячеек, кеш каталога сбрасываем.
	bus.SubscribeAll(func(event *events.Event) error {
		lockers.InvalidateCache(context.Background())
		return nil
	})

	expiry := worker.NewExpiryWorker(orders, cfg.Pickup.ExpiryScanInterval, &logger)
	go expiry.Start(ctx)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.Server, orders, lockers, &logger)
	httpServer.SetNotifier(notifier)
	return serve(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("failed to load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
		return nil, err
	}

	// Каталог локеров ведётся в конфиге и синхронизируется при старте.
	if err := db.SetLockers(context.Background(), cfg.Lockers); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed locker directory: %w", err)
	}
	db.SetPaymentWindow(cfg.Pickup.PaymentWindow)

	logger.Info().Int("lockers", len(cfg.Lockers)).Msg("Database ready")
	return db, nil
}

func initDirectoryCache(cfg *config.Config, logger *zerolog.Logger) (domain.DirectoryCache, func()) {
	fallback := repository.NewMemoryDirectoryCache(cfg.Pickup.DirectoryCacheTTL)
	if !cfg.Redis.Enabled {
		logger.Info().Msg("Redis disabled, using in-memory directory cache")
		return fallback, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unreachable at startup, failover cache will probe it")
	}

	primary := repository.NewRedisDirectoryCache(client, cfg.Pickup.DirectoryCacheTTL)
	cache := repository.NewFailoverDirectoryCache(primary, fallback, logger)
	return cache, func() { _ = client.Close() }
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	metrics.Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler: mux,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

func serve(ctx context.Context, server *api.HTTPServer, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return <-errCh
}
