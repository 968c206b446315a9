// internal/service/inventory/domain/product.go
package domain

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient quantity")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Product 是库存服务持有的商品。Quantity 只能通过 Reserve 减少，永远不会小于 0。
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}
