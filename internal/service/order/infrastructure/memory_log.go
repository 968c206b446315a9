package infrastructure

import (
	"context"
	"sync"

	"stockflow/internal/service/order/domain"
)

// MemoryOrderLog 是进程内的订单日志，重启后清空
type MemoryOrderLog struct {
	mu     sync.RWMutex
	orders []domain.Order
	index  map[int64]int
	nextID int64
}

func NewMemoryOrderLog() *MemoryOrderLog {
	return &MemoryOrderLog{index: make(map[int64]int), nextID: 1}
}

// Append 分配 ID 和写入在同一把锁内完成，所以写入顺序就是 ID 顺序
func (l *MemoryOrderLog) Append(_ context.Context, order domain.Order) (domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order.ID = l.nextID
	l.nextID++
	l.index[order.ID] = len(l.orders)
	l.orders = append(l.orders, order)
	return order, nil
}

func (l *MemoryOrderLog) List(_ context.Context) ([]domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Order, len(l.orders))
	copy(out, l.orders)
	return out, nil
}

func (l *MemoryOrderLog) Get(_ context.Context, id int64) (domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return l.orders[i], nil
}
