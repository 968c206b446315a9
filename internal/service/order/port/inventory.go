package port

import (
	"context"
)

// Product 是从库存服务读到的商品信息
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ReservationResult 是库存服务对预留请求的答复。
// Success=false 表示库存服务拒绝了这次预留（库存不足、商品不存在等），不是通信故障。
type ReservationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// InventoryGateway 是库存服务的出站端口。
// 返回 error 只代表通信或协议层面的故障。
type InventoryGateway interface {
	// CheckAvailability 结果仅供参考，以 Reserve 为准
	CheckAvailability(ctx context.Context, productID int64, quantity int) (bool, error)
	GetProduct(ctx context.Context, productID int64) (Product, error)
	Reserve(ctx context.Context, productID int64, quantity int) (ReservationResult, error)
}
