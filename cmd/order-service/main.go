// cmd/order-service/main.go
package main

import (
	"context"

	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"stockflow/internal/pkg/bootstrap"
	"stockflow/internal/pkg/config"
	"stockflow/internal/pkg/httpclient"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/order/application"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/infrastructure"
	"stockflow/internal/service/order/infrastructure/adapter"
	"stockflow/internal/service/order/interfaces"
	"stockflow/internal/service/order/port"
)

const serviceName = "order-service"

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		Port:             8080,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(appCtx bootstrap.AppCtx) error {
	cfg := appCtx.Config

	orderLog, err := newOrderLog(appCtx)
	if err != nil {
		return err
	}

	inventory := adapter.NewInventoryHTTPAdapter(httpclient.NewClient(appCtx.Tracer), newResolver(appCtx))

	svc := application.NewOrderApplicationService(
		orderLog,
		inventory,
		newPublisher(appCtx),
		cfg.Order.ProcessingTimeout,
		appCtx.Tracer,
	)
	interfaces.NewOrderHandler(svc).RegisterRoutes(appCtx.Router)
	return nil
}

func newResolver(appCtx bootstrap.AppCtx) adapter.EndpointResolver {
	cfg := appCtx.Config
	if appCtx.Nacos != nil {
		zlog.Info().Str("service", cfg.Order.InventoryServiceName).Msg("resolving inventory service through nacos")
		return adapter.NacosResolver{Discoverer: appCtx.Nacos, ServiceName: cfg.Order.InventoryServiceName}
	}
	zlog.Info().Str("base_url", cfg.Order.InventoryBaseURL).Msg("using static inventory endpoint")
	return adapter.StaticResolver{BaseURL: cfg.Order.InventoryBaseURL}
}

// newPublisher 没有配置 Kafka 时返回 nil，订单结果事件不发送
func newPublisher(appCtx bootstrap.AppCtx) port.OrderOutcomePublisher {
	kafkaCfg := appCtx.Config.Infra.Kafka
	if len(kafkaCfg.Brokers) == 0 {
		zlog.Info().Msg("kafka brokers not configured, order outcome events disabled")
		return nil
	}
	writer := mq.NewWriter(kafkaCfg.Brokers, kafkaCfg.OrderOutcomeTopic)
	appCtx.OnShutdown(func(context.Context) error { return writer.Close() })
	zlog.Info().Strs("brokers", kafkaCfg.Brokers).Str("topic", kafkaCfg.OrderOutcomeTopic).Msg("publishing order outcomes")
	return infrastructure.NewKafkaOutcomePublisher(writer)
}

func newOrderLog(appCtx bootstrap.AppCtx) (domain.OrderLog, error) {
	cfg := appCtx.Config
	if cfg.Order.LogBackend != config.BackendMySQL {
		zlog.Info().Msg("using in-memory order log")
		return infrastructure.NewMemoryOrderLog(), nil
	}

	db, err := gorm.Open(mysql.Open(cfg.Infra.MySQL.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB from gorm")
	}
	appCtx.OnShutdown(func(context.Context) error { return sqlDB.Close() })

	zlog.Info().Msg("using mysql order log")
	return infrastructure.NewGormOrderLog(db)
}
