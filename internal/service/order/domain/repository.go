// internal/service/order/domain/repository.go
package domain

import "context"

// OrderLog 是只追加的订单记录。
// ID 在 Append 时分配，Confirmed 和 Failed 共用一个严格递增的计数器。
type OrderLog interface {
	// Append 忽略传入的 ID，返回带有新 ID 的订单
	Append(ctx context.Context, order Order) (Order, error)
	// List 按写入顺序返回所有订单的副本
	List(ctx context.Context) ([]Order, error)
	// Get 不存在时返回 ErrOrderNotFound
	Get(ctx context.Context, id int64) (Order, error)
}
