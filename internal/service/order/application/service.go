// internal/service/order/application/service.go
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/service/order/application/saga"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/port"
)

// OrderApplicationService 负责下单流程的编排。
// CreateOrder 不返回 error：任何一步失败都会被记录成一条 Failed 订单。
type OrderApplicationService struct {
	orderLog          domain.OrderLog
	inventory         port.InventoryGateway
	publisher         port.OrderOutcomePublisher
	processingTimeout time.Duration
	tracer            trace.Tracer
}

// NewOrderApplicationService publisher 可以为 nil，此时不发送订单结果事件
func NewOrderApplicationService(
	orderLog domain.OrderLog,
	inventory port.InventoryGateway,
	publisher port.OrderOutcomePublisher,
	processingTimeout time.Duration,
	tracer trace.Tracer,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderLog:          orderLog,
		inventory:         inventory,
		publisher:         publisher,
		processingTimeout: processingTimeout,
		tracer:            tracer,
	}
}

// CreateOrder 调用方负责保证 productID 存在且 quantity > 0。
// 订单日志写入失败时返回的订单 Recorded() 为 false，由边界层决定如何响应。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, productID int64, quantity int) domain.Order {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("product.quantity", quantity),
	)
	log := logger.Ctx(ctx)
	log.Info().Int64("product_id", productID).Int("quantity", quantity).Msg("creating order")

	// 每个订单的远程调用共享一个独立的超时
	processingCtx, cancel := context.WithTimeout(ctx, s.processingTimeout)
	defer cancel()

	orderCtx := &saga.OrderContext{
		Ctx:       processingCtx,
		Tracer:    s.tracer,
		ProductID: productID,
		Quantity:  quantity,
		Inventory: s.inventory,
	}

	status := s.runChain(orderCtx)

	productName := orderCtx.ProductName
	if productName == "" {
		productName = domain.UnknownProductName
	}

	// 超时或客户端断开后仍然要把结果记下来
	recordCtx := context.WithoutCancel(ctx)
	order, err := s.orderLog.Append(recordCtx, domain.Order{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		Status:      status,
	})
	if err != nil {
		span.RecordError(err, trace.WithAttributes(attribute.Bool("critical.error", true)))
		span.SetStatus(codes.Error, "failed to record order")
		log.Error().Err(err).Int64("product_id", productID).Str("status", status.String()).Msg("CRITICAL: failed to record order outcome")
		order.ID = 0
		return order
	}

	span.SetAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.String("order.status", string(status.Kind())),
	)
	metrics.OrdersTotal.WithLabelValues(statusLabel(status)).Inc()

	if status.IsConfirmed() {
		log.Info().Int64("order_id", order.ID).Str("product_name", productName).Int("quantity", quantity).Msg("order confirmed")
	} else {
		span.SetStatus(codes.Error, status.Reason())
		log.Warn().Int64("order_id", order.ID).Int64("product_id", productID).Str("reason", status.Reason()).Msg("order failed")
	}

	s.publishOutcome(recordCtx, order)
	return order
}

// ListOrders 按创建顺序返回所有订单
func (s *OrderApplicationService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()

	orders, err := s.orderLog.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return orders, nil
}

func (s *OrderApplicationService) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", id))

	order, err := s.orderLog.Get(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return order, err
}

// runChain 执行责任链并把结果折叠成一个 Status，步骤里的 panic 也会被转换成 Failed
func (s *OrderApplicationService) runChain(orderCtx *saga.OrderContext) (status domain.Status) {
	chain := s.buildChain()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("panic: %v", r)
			}
		}()
		return chain.Handle(orderCtx)
	}()

	if err != nil {
		logger.Ctx(orderCtx.Ctx).Error().Err(err).Int64("product_id", orderCtx.ProductID).Msg("order saga aborted")
		return domain.Failed(domain.CommunicationErrorPrefix + err.Error())
	}

	outcome, ok := orderCtx.Outcome()
	if !ok {
		return domain.Failed(fmt.Sprintf("order saga finished without an outcome for product %d", orderCtx.ProductID))
	}
	return outcome
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	chain := new(saga.AvailabilityHandler)
	chain.SetNext(new(saga.ProductLookupHandler)).
		SetNext(new(saga.ReservationHandler))
	return chain
}

func (s *OrderApplicationService) publishOutcome(ctx context.Context, order domain.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderOutcome(ctx, order); err != nil {
		metrics.OutcomePublishFailures.Inc()
		trace.SpanFromContext(ctx).RecordError(err)
		logger.Ctx(ctx).Warn().Err(err).Int64("order_id", order.ID).Msg("failed to publish order outcome")
	}
}

func statusLabel(s domain.Status) string {
	if s.IsConfirmed() {
		return "confirmed"
	}
	return "failed"
}
