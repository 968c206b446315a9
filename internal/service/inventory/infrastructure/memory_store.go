// internal/service/inventory/infrastructure/memory_store.go
package infrastructure

import (
	"context"
	"sort"
	"sync/atomic"

	"stockflow/internal/pkg/config"
	"stockflow/internal/service/inventory/domain"
)

type stockEntry struct {
	name     string
	quantity atomic.Int64
}

// MemoryStore 是进程内的库存实现。
// 商品集合在构造后不再变化，所以 map 本身无需加锁；每个商品的数量用 CAS 循环扣减。
type MemoryStore struct {
	products map[int64]*stockEntry
	ids      []int64
}

func NewMemoryStore(seed []config.ProductSeed) *MemoryStore {
	s := &MemoryStore{products: make(map[int64]*stockEntry, len(seed))}
	for _, p := range seed {
		e, ok := s.products[p.ID]
		if !ok {
			e = &stockEntry{}
			s.products[p.ID] = e
			s.ids = append(s.ids, p.ID)
		}
		// 重复的 id 以最后一条为准
		e.name = p.Name
		e.quantity.Store(int64(p.Quantity))
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	return s
}

func (s *MemoryStore) List(_ context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(s.ids))
	for _, id := range s.ids {
		e := s.products[id]
		out = append(out, domain.Product{ID: id, Name: e.name, Quantity: int(e.quantity.Load())})
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (domain.Product, error) {
	e, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return domain.Product{ID: id, Name: e.name, Quantity: int(e.quantity.Load())}, nil
}

func (s *MemoryStore) CheckAvailability(_ context.Context, id int64, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, nil
	}
	e, ok := s.products[id]
	if !ok {
		return false, nil
	}
	return e.quantity.Load() >= int64(quantity), nil
}

func (s *MemoryStore) Reserve(_ context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	e, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	want := int64(quantity)
	for {
		cur := e.quantity.Load()
		if cur < want {
			return domain.ErrInsufficientStock
		}
		if e.quantity.CompareAndSwap(cur, cur-want) {
			return nil
		}
	}
}
