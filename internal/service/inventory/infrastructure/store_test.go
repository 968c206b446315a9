package infrastructure

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"stockflow/internal/pkg/config"
	"stockflow/internal/service/inventory/domain"
)

type storeFactory func(t *testing.T, seed []config.ProductSeed) domain.Store

func memoryFactory(_ *testing.T, seed []config.ProductSeed) domain.Store {
	return NewMemoryStore(seed)
}

func redisFactory(t *testing.T, seed []config.ProductSeed) domain.Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client)
	require.NoError(t, s.Seed(context.Background(), seed))
	return s
}

func forEachStore(t *testing.T, fn func(t *testing.T, newStore storeFactory)) {
	t.Run("memory", func(t *testing.T) { fn(t, memoryFactory) })
	t.Run("redis", func(t *testing.T) { fn(t, redisFactory) })
}

func TestStore_ListAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s := newStore(t, config.DefaultSeed())

		products, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Product{
			{ID: 1, Name: "Laptop", Quantity: 10},
			{ID: 2, Name: "Mouse", Quantity: 50},
			{ID: 3, Name: "Keyboard", Quantity: 30},
		}, products)

		p, err := s.Get(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, domain.Product{ID: 2, Name: "Mouse", Quantity: 50}, p)

		_, err = s.Get(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

func TestStore_CheckAvailability(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s := newStore(t, config.DefaultSeed())

		cases := []struct {
			name     string
			id       int64
			quantity int
			want     bool
		}{
			{"exact stock", 1, 10, true},
			{"below stock", 1, 1, true},
			{"above stock", 1, 11, false},
			{"zero quantity", 1, 0, false},
			{"negative quantity", 1, -3, false},
			{"unknown product", 999, 1, false},
		}
		for _, tc := range cases {
			got, err := s.CheckAvailability(ctx, tc.id, tc.quantity)
			require.NoError(t, err, tc.name)
			assert.Equal(t, tc.want, got, tc.name)
		}

		p, err := s.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 10, p.Quantity, "check must not mutate")
	})
}

func TestStore_Reserve(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s := newStore(t, config.DefaultSeed())

		require.NoError(t, s.Reserve(ctx, 1, 4))
		p, _ := s.Get(ctx, 1)
		assert.Equal(t, 6, p.Quantity)

		assert.ErrorIs(t, s.Reserve(ctx, 1, 7), domain.ErrInsufficientStock)
		assert.ErrorIs(t, s.Reserve(ctx, 999, 1), domain.ErrProductNotFound)
		assert.ErrorIs(t, s.Reserve(ctx, 1, 0), domain.ErrInvalidQuantity)
		assert.ErrorIs(t, s.Reserve(ctx, 1, -1), domain.ErrInvalidQuantity)

		p, _ = s.Get(ctx, 1)
		assert.Equal(t, 6, p.Quantity, "failed reserves must not mutate")

		require.NoError(t, s.Reserve(ctx, 1, 6))
		p, _ = s.Get(ctx, 1)
		assert.Equal(t, 0, p.Quantity)
		assert.ErrorIs(t, s.Reserve(ctx, 1, 1), domain.ErrInsufficientStock)
	})
}

func TestStore_ConcurrentReservesNeverOversell(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		const stock = 100
		s := newStore(t, []config.ProductSeed{{ID: 7, Name: "Widget", Quantity: stock}})

		var reserved atomic.Int64
		var g errgroup.Group
		for i := 0; i < 64; i++ {
			qty := i%3 + 1
			g.Go(func() error {
				err := s.Reserve(ctx, 7, qty)
				switch {
				case err == nil:
					reserved.Add(int64(qty))
					return nil
				case errors.Is(err, domain.ErrInsufficientStock):
					return nil
				default:
					return err
				}
			})
		}
		require.NoError(t, g.Wait())

		p, err := s.Get(ctx, 7)
		require.NoError(t, err)
		assert.LessOrEqual(t, reserved.Load(), int64(stock))
		assert.Equal(t, stock-int(reserved.Load()), p.Quantity)
		assert.GreaterOrEqual(t, p.Quantity, 0)
	})
}

func TestRedisStore_SeedKeepsRemainingStock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client)
	require.NoError(t, s.Seed(ctx, config.DefaultSeed()))
	require.NoError(t, s.Reserve(ctx, 1, 3))

	require.NoError(t, s.Seed(ctx, config.DefaultSeed()))
	p, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Quantity)
}

func TestRedisStore_ConnectionFailureIsInternalError(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	s := NewRedisStore(client)
	require.NoError(t, s.Seed(ctx, config.DefaultSeed()))
	mr.Close()

	err := s.Reserve(ctx, 1, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInsufficientStock)
	assert.NotErrorIs(t, err, domain.ErrProductNotFound)
}

func TestMemoryStore_DuplicateSeedIDs(t *testing.T) {
	s := NewMemoryStore([]config.ProductSeed{
		{ID: 1, Name: "Old", Quantity: 1},
		{ID: 1, Name: "New", Quantity: 5},
	})
	products, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{{ID: 1, Name: "New", Quantity: 5}}, products)
}
