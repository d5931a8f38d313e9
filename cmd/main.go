package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/adapter/postgres"
	"github.com/bistroroyale/backend/internal/adapter/rabbitmq"
	"github.com/bistroroyale/backend/internal/app/loyalty"
	"github.com/bistroroyale/backend/internal/app/order"
	"github.com/bistroroyale/backend/internal/app/payment"
	"github.com/bistroroyale/backend/internal/app/sales"
	"github.com/bistroroyale/backend/internal/config"

	amqpAdapter "github.com/bistroroyale/backend/internal/adapter/amqp"
	httpAdapter "github.com/bistroroyale/backend/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: order-service, payment-subscriber, sales-aggregator")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	prefetch := flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lgr := logger.New(*mode)

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	svcs := buildServices(db, mqConn, lgr, cfg)

	switch *mode {
	case "order-service":
		runOrderService(ctx, svcs, lgr, cfg.HTTP.Port)

	case "payment-subscriber":
		runPaymentSubscriber(ctx, svcs, mqConn, lgr, *prefetch)

	case "sales-aggregator":
		runSalesAggregator(ctx, svcs, lgr, cfg.Aggregator)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

type services struct {
	orders   *order.Service
	payments *payment.Service
	loyalty  *loyalty.Service
	sales    *sales.Service
}

func buildServices(db postgres.DB, mqConn rabbitmq.Connection, lgr logger.Logger, cfg *config.Config) *services {
	orderRepo := postgres.NewOrderRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	salesRepo := postgres.NewSalesRepository(db)
	catalog := postgres.NewCatalogRepository(db)
	uow := postgres.NewUnitOfWork(db)

	publisher := rabbitmq.NewPublisher(mqConn)

	loyaltySvc := loyalty.NewService(ledgerRepo, publisher, uow, lgr, cfg.Loyalty)
	orderSvc := order.NewService(orderRepo, catalog, loyaltySvc, publisher, uow, lgr, cfg.Orders)
	paymentSvc := payment.NewService(paymentRepo, orderRepo, orderSvc, uow, lgr)
	salesSvc := sales.NewService(salesRepo, orderRepo, uow, lgr)

	return &services{
		orders:   orderSvc,
		payments: paymentSvc,
		loyalty:  loyaltySvc,
		sales:    salesSvc,
	}
}

func runOrderService(ctx context.Context, svcs *services, lgr logger.Logger, port int) {
	handler := httpAdapter.NewRouter(
		httpAdapter.NewOrderHandler(svcs.orders, lgr),
		httpAdapter.NewPaymentHandler(svcs.payments, lgr),
		httpAdapter.NewLoyaltyHandler(svcs.loyalty, lgr),
		httpAdapter.NewSalesHandler(svcs.sales, lgr),
		lgr,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Order Service started on port %d", port), "startup", map[string]interface{}{
		"port": port,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		lgr.Info("shutdown_initiated", "Shutting down Order Service", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runPaymentSubscriber(ctx context.Context, svcs *services, mqConn rabbitmq.Connection, lgr logger.Logger, prefetch int) {
	consumer := rabbitmq.NewConsumer(mqConn, prefetch)
	handler := amqpAdapter.NewPaymentHandler(svcs.payments, lgr)

	lgr.Info("service_started", "Payment Subscriber started", "startup", map[string]interface{}{
		"prefetch": prefetch,
	})

	if err := consumer.ConsumePaymentConfirmations(ctx, handler.HandleConfirmation); err != nil && ctx.Err() == nil {
		lgr.Error("consumer_error", "Error consuming payment confirmations", "runtime", nil, err)
	}

	lgr.Info("shutdown_initiated", "Shutting down Payment Subscriber", "shutdown", nil)
}

func runSalesAggregator(ctx context.Context, svcs *services, lgr logger.Logger, cfg config.AggregatorConfig) {
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lgr.Info("service_started", "Sales Aggregator started", "startup", map[string]interface{}{
		"interval_seconds": cfg.IntervalSeconds,
	})

	for {
		select {
		case <-ctx.Done():
			lgr.Info("shutdown_initiated", "Shutting down Sales Aggregator", "shutdown", nil)
			return

		case <-ticker.C:
			folded, err := svcs.sales.RunOnce(ctx)
			if err != nil {
				lgr.Error("aggregation_failed", "Sales aggregation run failed", "runtime", nil, err)
				continue
			}
			if folded > 0 {
				lgr.Info("aggregation_completed", "Sales aggregation run completed", "runtime", map[string]interface{}{
					"orders_folded": folded,
				})
			}
		}
	}
}
