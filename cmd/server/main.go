package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"dinein/internal/billing"
	billinghandler "dinein/internal/billing/handler"
	"dinein/internal/board"
	boardhandler "dinein/internal/board/handler"
	"dinein/internal/events"
	loyaltyhandler "dinein/internal/loyalty/handler"
	loyaltyservice "dinein/internal/loyalty/service"
	loyaltystore "dinein/internal/loyalty/store"
	"dinein/internal/menu"
	orderhandler "dinein/internal/order/handler"
	ordermetrics "dinein/internal/order/metrics"
	"dinein/internal/order/models"
	orderservice "dinein/internal/order/service"
	orderstore "dinein/internal/order/store"
	"dinein/internal/platform/actortoken"
	"dinein/internal/platform/config"
	"dinein/internal/platform/httpserver"
	"dinein/internal/platform/kafka"
	"dinein/internal/platform/logger"
	"dinein/internal/platform/metrics"
	"dinein/internal/platform/middleware"
	"dinein/internal/platform/postgres"
	"dinein/internal/platform/redis"
	httptransport "dinein/internal/transport/http"
)

const rateLimiterIdle = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// stores is the persistence wiring: postgres when configured, memory otherwise.
type stores struct {
	orders  orderStore
	loyalty loyaltyservice.Store
	loyalTx loyaltyservice.StoreTx
	catalog menu.Catalog
}

// orderStore is the order persistence seen by every consumer: the service
// writes through it and the board reads queues from it.
type orderStore interface {
	orderservice.Store
	ListByStatus(ctx context.Context, statuses []models.Status) ([]*models.Order, error)
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	health := map[string]httptransport.HealthCheck{}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		health["postgres"] = db.PingContext
	}
	st, err := buildStores(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		health["redis"] = rc.Health
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	var sink events.Sink = events.LogSink{Logger: log}
	if producer != nil {
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			return err
		}
		sink = producer
		log.Info("order events streaming to kafka", "topic", producer.Topic())
	}
	publisher := events.NewPublisher(cfg.Kafka.BufferSize, log)
	worker := events.NewWorker(sink, publisher.Inbox(), log)

	orders := orderservice.New(st.orders, st.catalog,
		orderservice.WithLogger(log),
		orderservice.WithMetrics(ordermetrics.New()),
		orderservice.WithEvents(publisher),
	)

	loyaltyOpts := []loyaltyservice.Option{loyaltyservice.WithLogger(log)}
	if st.loyalTx != nil {
		loyaltyOpts = append(loyaltyOpts, loyaltyservice.WithTx(st.loyalTx))
	}
	boardOpts := []board.Option{board.WithLogger(log)}
	if rc != nil {
		loyaltyOpts = append(loyaltyOpts, loyaltyservice.WithCache(loyaltystore.NewRedisSummaryCache(rc.Client, cfg.Loyalty.SummaryTTL)))
		boardOpts = append(boardOpts, board.WithCache(board.NewRedisCache(rc.Client, cfg.Board.CacheTTL)))
	}
	loyalty := loyaltyservice.New(st.loyalty, loyaltyOpts...)
	views := board.New(st.orders, boardOpts...)
	bills := billing.New(st.orders, orders, loyalty,
		billing.WithLogger(log),
		billing.WithEvents(publisher),
		billing.WithAccrualTimeout(cfg.Loyalty.AccrualTimeout),
	)

	httpMetrics := metrics.New()
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log, httpMetrics)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.Handler(),
		Actors:         actortoken.New(cfg.ActorToken.SigningKey, cfg.ActorToken.Issuer),
		RateLimiter:    limiter,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthChecks:   health,
	},
		orderhandler.New(orders, log),
		boardhandler.New(views, log),
		billinghandler.New(bills, log),
		loyaltyhandler.New(loyalty, log),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting dinein", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				if n := limiter.Cleanup(now, rateLimiterIdle); n > 0 {
					log.Debug("rate limiters evicted", "count", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openDatabase(ctx context.Context, cfg config.Config, log *slog.Logger) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		log.Warn("no database configured, using in-memory stores")
		return nil, nil
	}
	db, err := postgres.Open(ctx, postgres.Options{
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func buildStores(ctx context.Context, cfg config.Config, db *sql.DB, log *slog.Logger) (*stores, error) {
	if db == nil {
		return &stores{
			orders:  orderstore.NewInMemory(),
			loyalty: loyaltystore.NewInMemory(),
			catalog: menu.NewInMemory(menu.DemoItems()...),
		}, nil
	}
	catalog := menu.NewPostgres(db)
	if !cfg.IsProduction() {
		if err := catalog.Seed(ctx, menu.DemoItems()); err != nil {
			return nil, err
		}
		log.Info("demo menu seeded")
	}
	loyalty := loyaltystore.NewPostgres(db)
	return &stores{
		orders:  orderstore.NewPostgres(db),
		loyalty: loyalty,
		loyalTx: newLoyaltyPostgresTx(db, loyalty),
		catalog: catalog,
	}, nil
}
