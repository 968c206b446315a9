package saga

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/order/domain"
)

// ReservationHandler 负责库存预留步骤。
// 这是唯一会修改库存的步骤，也是最后一步，所以失败时没有需要回滚的东西。
type ReservationHandler struct {
	NextHandler
}

func (h *ReservationHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Reserve")
	defer span.End()
	defer observeStep("reserve", time.Now())

	span.SetAttributes(
		attribute.Int64("product.id", orderCtx.ProductID),
		attribute.Int("product.quantity", orderCtx.Quantity),
	)

	result, err := orderCtx.Inventory.Reserve(ctx, orderCtx.ProductID, orderCtx.Quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reservation call failed")
		return err
	}

	if !result.Success {
		// 检查通过之后被并发请求抢走库存，也会走到这里
		logger.Ctx(ctx).Warn().
			Int64("product_id", orderCtx.ProductID).
			Str("message", result.Message).
			Msg("reservation rejected by inventory")
		span.AddEvent("Reservation rejected", trace.WithAttributes(attribute.String("inventory.message", result.Message)))
		orderCtx.Fail(domain.ReasonReserveFailed)
		return nil
	}

	span.AddEvent("Stock reserved")
	orderCtx.Confirm()
	return h.executeNext(orderCtx)
}
