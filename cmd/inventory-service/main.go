// cmd/inventory-service/main.go
package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"stockflow/internal/pkg/bootstrap"
	"stockflow/internal/pkg/config"
	"stockflow/internal/service/inventory/application"
	"stockflow/internal/service/inventory/domain"
	"stockflow/internal/service/inventory/infrastructure"
	"stockflow/internal/service/inventory/interfaces"
)

const serviceName = "inventory-service"

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		Port:             8082,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(appCtx bootstrap.AppCtx) error {
	store, err := newStore(appCtx)
	if err != nil {
		return err
	}

	svc := application.NewInventoryApplicationService(store, appCtx.Tracer)
	interfaces.NewInventoryHandler(svc).RegisterRoutes(appCtx.Router)
	return nil
}

func newStore(appCtx bootstrap.AppCtx) (domain.Store, error) {
	cfg := appCtx.Config
	switch cfg.Inventory.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Infra.Redis.Addr,
			Password: cfg.Infra.Redis.Password,
			DB:       cfg.Infra.Redis.DB,
		})
		appCtx.OnShutdown(func(context.Context) error { return client.Close() })

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, errors.Wrapf(err, "connect redis %s", cfg.Infra.Redis.Addr)
		}

		store := infrastructure.NewRedisStore(client)
		if err := store.Seed(ctx, cfg.Inventory.Seed); err != nil {
			return nil, err
		}
		zlog.Info().Str("addr", cfg.Infra.Redis.Addr).Int("products", len(cfg.Inventory.Seed)).Msg("using redis inventory store")
		return store, nil
	default:
		zlog.Info().Int("products", len(cfg.Inventory.Seed)).Msg("using in-memory inventory store")
		return infrastructure.NewMemoryStore(cfg.Inventory.Seed), nil
	}
}
