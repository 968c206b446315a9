// cmd/api-gateway/main.go
package main

import (
	zlog "github.com/rs/zerolog/log"

	"stockflow/internal/pkg/bootstrap"
	"stockflow/internal/pkg/httpclient"
	"stockflow/internal/service/gateway"
)

const serviceName = "api-gateway"

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		Port:             8000,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(appCtx bootstrap.AppCtx) error {
	cfg := appCtx.Config.Gateway

	orders, err := gateway.ParseUpstream("order-service", "/orders", cfg.OrderBaseURL)
	if err != nil {
		return err
	}
	inventory, err := gateway.ParseUpstream("inventory-service", "/inventory", cfg.InventoryBaseURL)
	if err != nil {
		return err
	}

	gateway.New(httpclient.NewClient(appCtx.Tracer), orders, inventory).RegisterRoutes(appCtx.Router)
	zlog.Info().Str("orders", orders.Target.String()).Str("inventory", inventory.Target.String()).Msg("gateway upstreams configured")
	return nil
}
