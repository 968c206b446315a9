package saga

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/pkg/metrics"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/port"
)

// OrderContext 在 Saga 流程中传递上下文数据。
type OrderContext struct {
	Ctx    context.Context
	Tracer trace.Tracer

	ProductID int64
	Quantity  int

	Inventory port.InventoryGateway

	// ProductName 在商品查询步骤之后才有值
	ProductName string

	outcome *domain.Status
}

// Fail 以业务原因结束流程，后续步骤不再执行
func (c *OrderContext) Fail(reason string) {
	s := domain.Failed(reason)
	c.outcome = &s
}

func (c *OrderContext) Confirm() {
	s := domain.Confirmed()
	c.outcome = &s
}

// Outcome 流程没有给出结论时 ok 为 false
func (c *OrderContext) Outcome() (domain.Status, bool) {
	if c.outcome == nil {
		return domain.Status{}, false
	}
	return *c.outcome, true
}

// Handler 是责任链上的一个步骤。
// 返回 error 表示与库存服务通信失败；业务上的拒绝通过 OrderContext.Fail 表达。
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}

func observeStep(step string, start time.Time) {
	metrics.SagaStepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}
