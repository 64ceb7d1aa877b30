package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/VMAzure/azurenet-engine/config"
	"github.com/VMAzure/azurenet-engine/internal/adapters/cache"
	"github.com/VMAzure/azurenet-engine/internal/adapters/logger"
	"github.com/VMAzure/azurenet-engine/internal/adapters/messaging"
	"github.com/VMAzure/azurenet-engine/internal/adapters/storage"
	"github.com/VMAzure/azurenet-engine/internal/api"
	"github.com/VMAzure/azurenet-engine/internal/domain/services"
	"github.com/VMAzure/azurenet-engine/internal/external/autoscout"
	"github.com/VMAzure/azurenet-engine/internal/external/motornet"
	"github.com/VMAzure/azurenet-engine/internal/retry"
	"github.com/VMAzure/azurenet-engine/internal/security"
	"github.com/VMAzure/azurenet-engine/internal/utils"
	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Инициализация движка",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	// Генерируем строку подключения к PostgreSQL
	connectionStr, err := utils.GenerateConnectionString(
		cfg.Postgres.Host,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
		cfg.Postgres.Port,
		cfg.Postgres.PoolSize,
		cfg.Postgres.Timeout,
	)
	if err != nil {
		log.Fatal("Ошибка генерации строки подключения к PostgreSQL",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	// Инициализируем хранилище
	repo, err := storage.NewListingStorage(ctx, connectionStr)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer repo.Close()
	log.Info("Хранилище инициализировано")

	// Инициализируем кэш (опционально)
	var cacheClient interfaces.CachePort
	if cfg.Redis.Enabled {
		cacheClient, err = cache.NewRedisCache(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Ошибка инициализации кэша",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
		defer cacheClient.Close()
		log.Info("Кэш инициализирован")
	}

	// Инициализируем шину событий (опционально)
	var messagingClient interfaces.MessagingPort
	if cfg.Kafka.Enabled {
		messagingClient, err = messaging.NewKafkaMessaging(cfg.Kafka.Brokers)
		if err != nil {
			log.Fatal("Ошибка инициализации системы обмена сообщениями",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
		log.Info("Система обмена сообщениями инициализирована")
	} else {
		messagingClient = messaging.NewNoopMessaging()
	}
	defer messagingClient.Close()

	// Клиент AutoScout24
	as24Client := autoscout.NewClient(autoscout.Config{
		BaseURL:  cfg.Autoscout.BaseURL,
		Username: cfg.Autoscout.Username,
		Password: cfg.Autoscout.Password,
		Timeout:  cfg.Autoscout.Timeout,
	}, cacheClient, log)

	// Клиент Motornet с кэшем токенов
	tokenCache := motornet.NewTokenCache(motornet.AuthConfig{
		TokenURL: cfg.Motornet.TokenURL,
		ClientID: cfg.Motornet.ClientID,
		Username: cfg.Motornet.Username,
		Password: cfg.Motornet.Password,
	}, nil, log)
	motornetClient := motornet.NewClient(tokenCache, retry.Default(), cfg.Motornet.Timeout, log)

	// Доменные сервисы
	syncService := services.NewSyncService(
		repo,
		as24Client,
		services.NewHTTPImageFetcher(cfg.Engine.ImageFetchTimeout),
		messagingClient,
		cfg.Kafka.EventsTopic,
		cfg.Engine.SyncBatchSize,
		log,
	)
	enrichmentService := services.NewEnrichmentService(repo, motornetClient, services.EnrichmentConfig{
		AutoWLTPURL: cfg.Motornet.AutoWLTPURL,
		VcomWLTPURL: cfg.Motornet.VcomWLTPURL,
		BatchSize:   cfg.Engine.EnrichBatchSize,
	}, log)
	catalogService := services.NewCatalogService(repo, as24Client, log)
	log.Info("Доменные сервисы инициализированы")

	// Admin API + метрики
	jwtManager := security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpirationMin, cfg.AppName)
	router := api.SetupRouter(repo, syncService, as24Client, jwtManager, cfg.Metrics.Enabled, cfg.Metrics.Endpoint, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Запуск HTTP сервера",
			interfaces.LogField{Key: "addr", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Ошибка запуска HTTP сервера",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	var wg sync.WaitGroup

	// Цикл синхронизации листингов
	wg.Add(1)
	go func() {
		defer wg.Done()
		runLoop(ctx, cfg.Engine.SyncInterval, log, "sync", func(ctx context.Context) error {
			_, err := syncService.RunOnce(ctx)
			return err
		})
	}()

	// Цикл WLTP-обогащения
	wg.Add(1)
	go func() {
		defer wg.Done()
		runLoop(ctx, cfg.Engine.EnrichInterval, log, "enrichment", func(ctx context.Context) error {
			_, err := enrichmentService.RunOnce(ctx)
			return err
		})
	}()

	// Цикл синхронизации справочника моделей
	wg.Add(1)
	go func() {
		defer wg.Done()
		runLoop(ctx, cfg.Engine.CatalogInterval, log, "catalog", func(ctx context.Context) error {
			_, err := catalogService.RunOnce(ctx)
			return err
		})
	}()

	log.Info("Движок запущен")

	// Обработка сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Ошибка остановки HTTP сервера",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	log.Info("Движок корректно завершил работу")
}

// runLoop выполняет job сразу и далее по тикеру до отмены контекста
func runLoop(ctx context.Context, interval time.Duration, log interfaces.LoggerPort, name string, job func(context.Context) error) {
	run := func() {
		if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Ошибка выполнения цикла",
				interfaces.LogField{Key: "loop", Value: name},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
