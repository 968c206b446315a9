package saga

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ProductLookupHandler 查询商品名称，写进订单快照
type ProductLookupHandler struct {
	NextHandler
}

func (h *ProductLookupHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.GetProduct")
	defer span.End()
	defer observeStep("get_product", time.Now())

	span.SetAttributes(attribute.Int64("product.id", orderCtx.ProductID))

	product, err := orderCtx.Inventory.GetProduct(ctx, orderCtx.ProductID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "product lookup failed")
		return err
	}

	orderCtx.ProductName = product.Name
	span.SetAttributes(attribute.String("product.name", product.Name))
	return h.executeNext(orderCtx)
}
