package domain

import "context"

// Store 定义了库存的存取接口
type Store interface {
	// List 返回所有商品的快照
	List(ctx context.Context) ([]Product, error)
	// Get 商品不存在时返回 ErrProductNotFound
	Get(ctx context.Context, id int64) (Product, error)
	// CheckAvailability 只读，结果仅供参考：之后的 Reserve 仍可能因为并发而失败。
	// quantity <= 0 或商品不存在时返回 false。
	CheckAvailability(ctx context.Context, id int64, quantity int) (bool, error)
	// Reserve 原子地检查并扣减库存。
	// 失败时返回 ErrInvalidQuantity / ErrProductNotFound / ErrInsufficientStock，且不修改任何状态；
	// 其他错误视为内部故障。
	Reserve(ctx context.Context, id int64, quantity int) error
}
