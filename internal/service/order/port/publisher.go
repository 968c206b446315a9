package port

import (
	"context"

	"stockflow/internal/service/order/domain"
)

// OrderOutcomePublisher 对外广播已记录的订单结果，仅用于审计，失败不影响订单本身
type OrderOutcomePublisher interface {
	PublishOrderOutcome(ctx context.Context, order domain.Order) error
}
