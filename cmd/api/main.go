package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/example/bakery-pos/internal/api"
	"github.com/example/bakery-pos/internal/catalog"
	"github.com/example/bakery-pos/internal/command"
	"github.com/example/bakery-pos/internal/config"
	"github.com/example/bakery-pos/internal/domain/order"
	"github.com/example/bakery-pos/internal/infrastructure/kafka"
	"github.com/example/bakery-pos/internal/infrastructure/store"
	"github.com/example/bakery-pos/internal/logging"
	"github.com/example/bakery-pos/internal/projection"
	"github.com/example/bakery-pos/internal/query"
	"go.uber.org/zap"
)

// syncProjector applies events to the read store in-process when no Kafka
// broker is configured.
type syncProjector struct {
	projector *projection.Projector
}

func (p syncProjector) Publish(ctx context.Context, key string, event any) error {
	e, ok := event.(store.Event)
	if !ok {
		return nil
	}
	return p.projector.Apply(ctx, e)
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded",
		zap.String("file", cfg.CatalogFile),
		zap.Int("products", len(cat.List())),
		zap.Int("promotions", len(cat.Promotions())),
	)

	var readStore store.ReadStoreInterface = store.NewReadStore()
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = store.ConnectPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
		if err != nil {
			return err
		}
		defer db.Close()

		pgRead := store.NewPostgresReadStore(db)
		if err := pgRead.EnsureSchema(ctx); err != nil {
			return err
		}
		readStore = pgRead
		logger.Info("connected to PostgreSQL")
	}

	projector := projection.NewProjector(readStore, logger)

	var publisher store.Publisher = syncProjector{projector: projector}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer producer.Close()
		publisher = producer
	}

	var eventStore store.EventStoreInterface
	if db != nil {
		pgEvents := store.NewPostgresEventStore(db, publisher, logger)
		if err := pgEvents.EnsureSchema(ctx); err != nil {
			return err
		}
		eventStore = pgEvents
	} else {
		eventStore = store.NewEventStore(publisher, logger)
	}

	// Rebuild read models from the event log
	applied, err := projector.Replay(ctx, eventStore)
	if err != nil {
		return err
	}
	logger.Info("event replay completed", zap.Int("events", applied))

	var wg sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "api-projector", logger)
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
				logger.Error("projector consumer stopped", zap.Error(err))
			}
		}()
	}

	orderSvc := order.NewService(eventStore, cat, order.WithLogger(logger))
	handlers := api.NewHandlers(command.NewHandler(orderSvc, logger), query.NewHandler(readStore, logger), logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(api.RouterConfig{Handlers: handlers, Logger: logger}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", cfg.HTTPAddr), zap.Bool("kafka", len(cfg.KafkaBrokers) > 0))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}

	wg.Wait()
	return nil
}
