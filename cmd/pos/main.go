package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/bakery-pos/internal/catalog"
	"github.com/example/bakery-pos/internal/checkout"
	"github.com/example/bakery-pos/internal/config"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/gateway"
	"github.com/example/bakery-pos/internal/logging"
	"github.com/example/bakery-pos/internal/persistence"
	"github.com/example/bakery-pos/internal/session"
	"github.com/example/bakery-pos/internal/terminal"
	"github.com/example/bakery-pos/internal/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flow := customer.Flow(cfg.POSFlow)
	schema, err := customer.SchemaFor(flow)
	if err != nil {
		logger.Fatal("invalid POS_FLOW", zap.Error(err))
	}

	cat, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}

	slot, closeSlot := openSlot(ctx, cfg, logger)
	defer closeSlot()
	adapter := persistence.NewAdapter(slot, persistence.Key(cfg.CartKey), logger)

	path := wire.SaveOrderPath
	if flow == customer.FlowOnline {
		path = wire.SaveOrderOnlinePath
	}
	client := gateway.NewClient(
		strings.TrimRight(cfg.OrderEndpoint, "/")+path,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.SubmitTimeout}),
		gateway.WithLogger(logger),
	)

	ctrl := session.NewController(ctx, adapter, checkout.NewComposer(schema), client,
		session.WithRenderer(terminal.Renderer(os.Stdout)),
		session.WithLogger(logger),
	)

	shell := terminal.NewShell(ctrl, cat, flow, os.Stdout)
	if err := shell.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		logger.Error("terminal stopped", zap.Error(err))
	}
}

// openSlot returns the Redis cart slot when REDIS_ADDR is set and reachable,
// and an in-process slot otherwise.
func openSlot(ctx context.Context, cfg config.Config, logger *zap.Logger) (persistence.Slot, func()) {
	if cfg.RedisAddr == "" {
		return persistence.NewMemorySlot(), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, cart kept in memory", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		client.Close()
		return persistence.NewMemorySlot(), func() {}
	}
	return persistence.NewRedisSlot(client, cfg.CartTTL), func() { client.Close() }
}
