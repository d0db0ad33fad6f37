package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/config"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/checkout/internal/health"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/pricing"
	cartsvc "github.com/vladislavdragonenkov/checkout/internal/service/cart"
	idemsvc "github.com/vladislavdragonenkov/checkout/internal/service/idempotency"
	ordersvc "github.com/vladislavdragonenkov/checkout/internal/service/order"
	outboxsvc "github.com/vladislavdragonenkov/checkout/internal/service/outbox"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
	"github.com/vladislavdragonenkov/checkout/internal/version"
)

// Stores объединяет все хранилища, с которыми работают сервисы.
type Stores struct {
	Catalog   domain.Catalog
	Inventory domain.Inventory
	Carts     domain.CartRepository
	Orders    domain.OrderRepository
	Timeline  domain.TimelineRepository
	Outbox    domain.OutboxRepository
	Idem      domain.IdempotencyRepository
}

// App агрегирует собранные сервисы приложения.
type App struct {
	Carts  *cartsvc.Service
	Orders *ordersvc.Service
	Stores Stores
}

// buildStores выбирает реализацию хранилищ: PostgreSQL при заданном DSN,
// иначе in-memory.
func buildStores(ctx context.Context, cfg config.Config, logger *log.Entry) (Stores, *postgres.Store, error) {
	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN не задан, используем in-memory хранилища")
		productStore := memory.NewProductStore()
		return Stores{
			Catalog:   productStore,
			Inventory: productStore,
			Carts:     memory.NewCartRepository(),
			Orders:    memory.NewOrderRepository(),
			Timeline:  memory.NewTimelineRepository(),
			Outbox:    memory.NewOutboxRepository(),
			Idem:      memory.NewIdempotencyRepository(),
		}, nil, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return Stores{}, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return Stores{}, nil, err
	}

	catalogRepo := postgres.NewCatalogRepository(store)
	return Stores{
		Catalog:   catalogRepo,
		Inventory: catalogRepo,
		Carts:     postgres.NewCartRepository(store),
		Orders:    postgres.NewOrderRepository(store),
		Timeline:  postgres.NewTimelineRepository(store),
		Outbox:    postgres.NewOutboxRepository(store),
		Idem:      postgres.NewIdempotencyRepository(store),
	}, store, nil
}

// New собирает сервисы поверх переданных хранилищ.
func New(stores Stores, cfg config.Config, logger *log.Entry) *App {
	mergePolicy := cartsvc.MergeClamp
	if cfg.MergeRejectsOverflow {
		mergePolicy = cartsvc.MergeReject
	}

	carts := cartsvc.NewService(stores.Catalog, stores.Carts, mergePolicy, logger.WithField("component", "cart-service"))
	orders := ordersvc.NewService(
		stores.Catalog,
		stores.Inventory,
		stores.Carts,
		stores.Orders,
		stores.Timeline,
		stores.Outbox,
		stores.Idem,
		ordersvc.Options{
			StrictTransitions: cfg.StrictTransitions,
			Pricing: pricing.Config{
				TaxRateBasisPoints: cfg.TaxRateBasisPoints,
				ShippingFeeMinor:   cfg.ShippingFeeMinor,
				PaidShippingMethod: cfg.PaidShippingMethod,
			},
		},
		logger.WithField("component", "order-service"),
	)

	return &App{Carts: carts, Orders: orders, Stores: stores}
}

// Run собирает приложение и блокируется до отмены контекста.
func Run(ctx context.Context, cfg config.Config) error {
	logger := log.WithField("component", "app")

	stores, pgStore, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pgStore != nil {
		defer func() { _ = pgStore.Close() }()
	}

	application := New(stores, cfg, logger)
	logger.WithFields(log.Fields{
		"storage":            storageKind(pgStore),
		"merge_rejects":      cfg.MergeRejectsOverflow,
		"strict_transitions": cfg.StrictTransitions,
	}).Info("сервисы checkout собраны")

	// Kafka подключается опционально; без брокеров события остаются в outbox.
	var kafkaProducer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("не удалось создать kafka producer, продолжаем без kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer подключен")
		}
	}
	defer func() {
		if kafkaProducer == nil {
			return
		}
		if err := kafkaProducer.Close(); err != nil {
			logger.WithError(err).Warn("ошибка закрытия kafka producer")
		}
	}()

	if kafkaProducer != nil {
		worker := outboxsvc.NewWorker(
			stores.Outbox,
			kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents),
			outboxsvc.WithLogger(logger.WithField("component", "outbox-worker")),
			outboxsvc.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
		)
		go worker.Run(ctx)
	}

	cleanup := idemsvc.NewCleanupWorker(
		stores.Idem,
		idemsvc.WithLogger(logger.WithField("component", "idempotency-cleanup")),
	)
	go cleanup.Run(ctx)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.Register("outbox", func() error {
		_, err := application.Stores.Outbox.Stats()
		return err
	})
	if pgStore != nil {
		healthHandler.Register("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pgStore.Ping(pingCtx)
		})
	}

	srv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	<-ctx.Done()
	logger.Info("получен сигнал остановки")
	shutdownHTTP(srv, logger)

	return ctx.Err()
}

func storageKind(pgStore *postgres.Store) string {
	if pgStore != nil {
		return "postgres"
	}
	return "memory"
}

// startMetricsServer запускает HTTP-обработчики /metrics и health probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
