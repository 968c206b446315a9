package saga

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/order/domain"
)

// AvailabilityHandler 负责库存检查步骤。检查结果只是参考，不做任何预留。
type AvailabilityHandler struct {
	NextHandler
}

func (h *AvailabilityHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CheckAvailability")
	defer span.End()
	defer observeStep("check_availability", time.Now())

	span.SetAttributes(
		attribute.Int64("product.id", orderCtx.ProductID),
		attribute.Int("product.quantity", orderCtx.Quantity),
	)

	available, err := orderCtx.Inventory.CheckAvailability(ctx, orderCtx.ProductID, orderCtx.Quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "availability check failed")
		return err
	}

	if !available {
		logger.Ctx(ctx).Warn().
			Int64("product_id", orderCtx.ProductID).
			Int("quantity", orderCtx.Quantity).
			Msg("product not available")
		span.AddEvent("Product not available")
		orderCtx.Fail(domain.ReasonProductNotAvailable)
		return nil
	}

	span.AddEvent("Product available")
	return h.executeNext(orderCtx)
}
