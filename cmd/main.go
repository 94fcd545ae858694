package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/adapter/postgres"
	"github.com/YelzhanWeb/tableorder/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/tableorder/internal/adapter/redis"
	"github.com/YelzhanWeb/tableorder/internal/app/dashboard"
	"github.com/YelzhanWeb/tableorder/internal/app/feed"
	"github.com/YelzhanWeb/tableorder/internal/app/menu"
	"github.com/YelzhanWeb/tableorder/internal/app/order"
	"github.com/YelzhanWeb/tableorder/internal/app/session"
	"github.com/YelzhanWeb/tableorder/internal/app/status"
	"github.com/YelzhanWeb/tableorder/internal/app/tracking"
	"github.com/YelzhanWeb/tableorder/internal/config"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"golang.org/x/sync/errgroup"

	amqpAdapter "github.com/YelzhanWeb/tableorder/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/tableorder/internal/adapter/http"
)

func main() {
	// Parse command-line flags
	mode := flag.String("mode", "", "Service mode: order-service, kitchen-service, admin-service, notification-subscriber")
	configPath := flag.String("config", "config.yaml", "Path to the config file")
	port := flag.Int("port", 0, "HTTP port (overrides http.port)")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	lgr := logger.New(*mode, logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to RabbitMQ
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host":     cfg.RabbitMQ.Host,
		"exchange": cfg.RabbitMQ.Exchange,
	})

	// Route to appropriate service
	switch *mode {
	case "order-service", "kitchen-service", "admin-service":
		err = runService(ctx, *mode, cfg, mqConn, lgr)

	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, mqConn, lgr)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		lgr.Error("service_failed", "Service stopped with error", "shutdown", nil, err)
		os.Exit(1)
	}
	lgr.Info("shutdown_complete", "Service stopped", "shutdown", nil)
}

func runService(ctx context.Context, mode string, cfg *config.Config, mqConn rabbitmq.Connection, lgr logger.Logger) error {
	// Connect to PostgreSQL
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	// Initialize repositories
	orderRepo := postgres.NewOrderRepository(db)
	menuRepo := postgres.NewMenuRepository(db)
	staffRepo := postgres.NewStaffRepository(db)

	// Initialize messaging: local fan-out fed by the shared exchange
	publisher := rabbitmq.NewPublisher(mqConn, cfg.RabbitMQ.Exchange)
	consumer := rabbitmq.NewConsumer(mqConn, cfg.RabbitMQ.Exchange, rabbitmq.DashboardBindings, lgr)
	router := feed.NewRouter(cfg.Dashboard.Buffer, lgr)
	changes := amqpAdapter.NewChangeHandler(router, lgr)

	hub := dashboard.NewHub(orderRepo, router, lgr, dashboard.Options{RefetchTimeout: cfg.Dashboard.RefetchTimeout})
	defer hub.Close()

	authz := httpAdapter.NewAuthz(cfg.Auth.JWTSecret, cfg.Auth.Issuer, staffRepo, lgr)
	statusService := status.NewService(orderRepo, publisher, lgr)
	trackingHandler := httpAdapter.NewTrackingHandler(tracking.NewService(orderRepo, lgr), hub, lgr)
	dashboardHandler := httpAdapter.NewDashboardHandler(hub, authz, lgr)
	statusHandler := httpAdapter.NewStatusHandler(statusService, authz, lgr)

	var routes []httpAdapter.Registrar
	switch mode {
	case "order-service":
		orderService := order.NewService(orderRepo, menuRepo, publisher, lgr)
		sessionService := session.NewService(orderService, orderRepo, menuRepo, idempotencyStore(ctx, cfg, lgr), lgr)

		routes = append(routes,
			httpAdapter.NewMenuHandler(menu.NewService(menuRepo, lgr), lgr).Register,
			httpAdapter.NewSessionHandler(sessionService, lgr).Register,
			trackingHandler.Register,
		)

	case "kitchen-service":
		hub.Pin(dashboard.KitchenScope{})
		routes = append(routes, dashboardHandler.RegisterKitchen, statusHandler.Register)

	case "admin-service":
		hub.Pin(dashboard.KitchenScope{})
		for _, p := range []domain.Period{domain.PeriodToday, domain.PeriodWeek, domain.PeriodMonth} {
			hub.Pin(dashboard.AdminScope{Window: p})
		}
		routes = append(routes, dashboardHandler.RegisterKitchen, dashboardHandler.RegisterAdmin, statusHandler.Register, trackingHandler.Register)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      httpAdapter.NewRouter(lgr, routes...),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: writeTimeout(mode, cfg.HTTP.WriteTimeout),
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeChanges(gctx, changes.HandleChange, func(reconnected bool) {
			// Views pinned before the queue existed, or kept across a
			// disconnect, may have missed changes: every view refetches.
			reason := "change feed bound"
			if reconnected {
				reason = "change feed reconnected"
			}
			router.DropAll(reason)
		})
	})

	g.Go(func() error {
		lgr.Info("service_started", fmt.Sprintf("%s started on port %d", mode, cfg.HTTP.Port), "startup", map[string]interface{}{
			"port": cfg.HTTP.Port,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		lgr.Info("shutdown_initiated", "Shutting down "+mode, "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// writeTimeout disables the write deadline where order event streams are served.
func writeTimeout(mode string, configured time.Duration) time.Duration {
	if mode == "kitchen-service" {
		return configured
	}
	return 0
}

// idempotencyStore returns nil when redis is unreachable; checkout then runs
// without duplicate protection.
func idempotencyStore(ctx context.Context, cfg *config.Config, lgr logger.Logger) interfaces.IdempotencyStore {
	rdb, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, lgr)
	if err != nil {
		lgr.Error("redis_unavailable", "Checkout idempotency disabled", "startup", nil, err)
		return nil
	}
	go func() {
		<-ctx.Done()
		_ = rdb.Close()
	}()
	return redis.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, mqConn rabbitmq.Connection, lgr logger.Logger) error {
	// Initialize consumer
	consumer := rabbitmq.NewConsumer(mqConn, cfg.RabbitMQ.Exchange, rabbitmq.NotificationBindings, lgr)

	// Initialize handler
	notificationHandler := amqpAdapter.NewNotificationHandler(lgr)

	lgr.Info("service_started", "Notification Subscriber started", "startup", nil)

	return consumer.ConsumeChanges(ctx, notificationHandler.HandleNotification, func(reconnected bool) {
		if reconnected {
			lgr.Info("notifications_gap", "Notifications sent while disconnected were missed", "runtime", nil)
		}
	})
}
