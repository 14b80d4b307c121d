package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/catalog"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	grpcdelivery "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/delivery/grpc"
	httpdelivery "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/delivery/http"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/kafka"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/watermill"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/postgres"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/redis"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const orderProjectionGroup = "storefront-order-projection"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("Storefront stopped with error", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				slog.Error("Failed to close resource", "err", err)
			}
		}
	}()

	// --- Database ---
	var db *sql.DB
	if cfg.NeedsDatabase() {
		var err error
		db, err = postgres.InitDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to init database: %w", err)
		}
		closers = append(closers, db)
	}

	// --- Persistence ---
	var (
		stateRepo repository.StateRepository
		journal   repository.EventStore
		orderRepo repository.OrderRepository
	)
	switch cfg.StateBackend {
	case "postgres":
		stateRepo = postgres.NewStateRepository(db)
		journal = postgres.NewEventStore(db)
		orderRepo = postgres.NewOrderRepository(db)
	case "redis":
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, client)
		stateRepo = redis.NewStateRepository(client, cfg.RedisKeyPrefix)
		orderRepo = memory.NewOrderRepository()
	default:
		stateRepo = memory.NewStateRepository()
		orderRepo = memory.NewOrderRepository()
	}

	// --- Catalog ---
	products, err := newCatalog(ctx, cfg, db)
	if err != nil {
		return err
	}

	// --- Broker ---
	var (
		publisher  messaging.Publisher
		subscriber messaging.Subscriber
	)
	switch cfg.Broker {
	case "kafka":
		broker := kafka.NewKafkaBroker(cfg.KafkaBrokers)
		closers = append(closers, broker)
		publisher, subscriber = broker, broker
	case "watermill":
		pub, err := watermill.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		if err != nil {
			return fmt.Errorf("failed to create watermill publisher: %w", err)
		}
		closers = append(closers, pub)
		publisher, subscriber = pub, watermill.NewKafkaSubscriber(cfg.KafkaBrokers, logger)
	default:
		// placed orders still reach the projection through an in-process channel
		pub, sub := watermill.NewInProcess(logger)
		closers = append(closers, pub)
		publisher, subscriber = pub, sub
	}

	// --- Store ---
	hooks := []store.Hook{store.SnapshotHook{Repo: stateRepo}}
	if journal != nil {
		hooks = append(hooks, store.JournalHook{Events: journal})
	}
	hooks = append(hooks, store.PublishHook{Publisher: publisher})

	st := store.New(
		store.WithLogger(logger),
		store.WithHooks(hooks...),
		store.WithQueueSize(cfg.HookQueueSize),
	)
	if err := st.Rehydrate(ctx, stateRepo, journal); err != nil {
		_ = st.Close(ctx)
		return fmt.Errorf("failed to rehydrate store: %w", err)
	}

	cartSvc := service.NewCartService(st, products)
	orderSvc := service.NewOrderService(st, orderRepo)

	// the consumer outlives the signal so it stops only after the hooks drain
	consumeCtx, stopConsumer := context.WithCancel(context.WithoutCancel(ctx))
	defer stopConsumer()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		subscriber.Consume(consumeCtx, messaging.TopicOrdersPlaced, orderProjectionGroup, orderSvc.HandleOrderPlaced)
	}()
	slog.Info("🔄 Order projection consumer started", "broker", cfg.Broker)

	err = serve(ctx, cfg, cartSvc, orderSvc)

	// drain pending hooks before the broker and databases close
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if cerr := st.Close(shutdownCtx); cerr != nil {
		slog.Error("Store hooks did not drain", "err", cerr)
	}
	stopConsumer()
	wg.Wait()
	return err
}

func newCatalog(ctx context.Context, cfg *config.Config, db *sql.DB) (repository.ProductCatalog, error) {
	switch cfg.CatalogSource {
	case "file":
		static, err := catalog.LoadStatic(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		return static, nil
	case "postgres":
		products := postgres.NewProductRepository(db)
		static, err := catalog.LoadStatic(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		if err := products.Seed(ctx, static.Products()); err != nil {
			return nil, fmt.Errorf("failed to seed products: %w", err)
		}
		return products, nil
	default:
		client, err := catalog.NewClient(cfg.CatalogURL, cfg.CatalogTimeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// serve runs the HTTP API and the gRPC health server until ctx is done.
func serve(ctx context.Context, cfg *config.Config, cartSvc *service.CartService, orderSvc *service.OrderService) error {
	mux := http.NewServeMux()
	httpdelivery.NewHandler(cartSvc, orderSvc).RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: otelhttp.NewHandler(httpdelivery.RequestID(httpdelivery.EnableCORS(mux)), "storefront"),
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}
	health := grpcdelivery.NewHealthServer()

	errCh := make(chan error, 2)
	go func() {
		if err := health.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		slog.Info("🚀 HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	health.SetServing(true)

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	slog.Info("Shutting down...")
	health.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		slog.Error("HTTP shutdown failed", "err", serr)
	}
	health.Stop()
	return err
}
