package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"marketplace/config"
	"marketplace/internal/delivery"
	grpcdelivery "marketplace/internal/delivery/grpc"
	"marketplace/internal/domain"
	"marketplace/internal/events"
	"marketplace/internal/idempotency"
	"marketplace/internal/repository"
	"marketplace/internal/repository/memory"
	"marketplace/internal/usecase"
	"marketplace/pkg/db"
	"marketplace/pkg/metrics"
	"marketplace/pkg/observability"
)

type storage struct {
	orders domain.OrderRepository
	ledger domain.InventoryLedger
	logs   domain.AdminLogRepository
	ping   grpcdelivery.Pinger
	close  func() error
}

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.Info("Starting Order Service...")

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatalf("FATAL: %v", err)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logger.Warnf("Invalid LOG_LEVEL %q, using info", cfg.LogLevel)
	}
	logger.SetLevel(cfg.Level())
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.ServiceName, cfg.TracingExporter, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warnf("Failed to flush traces: %v", err)
		}
	}()

	// --- Storage ---
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("FATAL: %v", err)
	}
	defer func() {
		if err := store.close(); err != nil {
			logger.Warnf("Failed to close storage: %v", err)
		}
	}()

	// --- Dependency Injection ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	opts := []usecase.Option{usecase.WithMetrics(m)}

	if cfg.RedisURL != "" {
		client, err := idempotency.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatalf("FATAL: Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		opts = append(opts, usecase.WithIdempotency(idempotency.NewRedisStore(client, cfg.IdempotencyTTL, logger)))
		logger.Info("Redis idempotency store initialized.")
	}

	if brokers := events.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		publisher := events.NewKafkaPublisher(brokers, cfg.OrderTopic, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warnf("Failed to close Kafka writer: %v", err)
			}
		}()
		opts = append(opts, usecase.WithPublisher(publisher))
		logger.Infof("Kafka publisher initialized for topic %s.", cfg.OrderTopic)
	} else {
		opts = append(opts, usecase.WithPublisher(events.NopPublisher{}))
	}

	orderUseCase := usecase.NewOrderUseCase(store.orders, store.ledger, logger, opts...)
	adminUseCase := usecase.NewAdminUseCase(store.orders, store.ledger, store.logs, logger, opts...)
	logger.Info("Use cases initialized.")

	router := delivery.NewRouter(
		delivery.NewOrderHandler(orderUseCase, logger),
		delivery.NewAdminHandler(adminUseCase, logger),
		m, logger,
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(router, cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}
	healthServer := grpcdelivery.NewHealthServer(cfg.ServiceName, store.ping, 15*time.Second, logger)

	//  Start Servers
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting HTTP server on port %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return healthServer.Serve(gctx, cfg.GrpcPort)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
		return
	}
	logger.Info("Order Service stopped.")
}

func openStorage(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*storage, error) {
	if cfg.StorageDriver == config.DriverMemory {
		var products []domain.Product
		if cfg.SeedFile != "" {
			var err error
			products, err = memory.LoadCatalog(cfg.SeedFile)
			if err != nil {
				return nil, err
			}
		}
		logger.Infof("Using in-memory storage with %d catalog products.", len(products))
		return &storage{
			orders: memory.NewOrderRepository(),
			ledger: memory.NewLedger(products...),
			logs:   memory.NewAdminLogRepository(),
			close:  func() error { return nil },
		}, nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connection established.")
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	logger.Info("Database schema is up to date.")

	return &storage{
		orders: repository.NewPostgresOrderRepository(database, logger),
		ledger: repository.NewPostgresLedger(database, logger),
		logs:   repository.NewPostgresAdminLogRepository(database, logger),
		ping:   pinger(database),
		close:  database.Close,
	}, nil
}

func pinger(database *sql.DB) grpcdelivery.Pinger {
	return database.PingContext
}
