// internal/service/inventory/infrastructure/redis_store.go
package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"stockflow/internal/pkg/config"
	"stockflow/internal/service/inventory/domain"
)

const productIndexKey = "inventory:products"

func productKey(id int64) string {
	return fmt.Sprintf("inventory:product:{%d}", id)
}

// reserveScript 在 Redis 服务端一次性完成检查和扣减
var reserveScript = redis.NewScript(`
-- KEYS[1]: 商品 hash, 例如 inventory:product:{1}
-- ARGV[1]: 要预留的数量
if redis.call('exists', KEYS[1]) == 0 then
    return -1 -- 商品不存在
end

local stock = tonumber(redis.call('hget', KEYS[1], 'quantity'))
local want = tonumber(ARGV[1])

if stock == nil or stock < want then
    return 0 -- 库存不足
end

redis.call('hincrby', KEYS[1], 'quantity', -want)
return 1
`)

// RedisStore 把库存放在 Redis hash 里，多个库存实例可以共享同一份数据
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Seed 写入初始目录。已经存在的商品只更新名称，不覆盖剩余数量，重启不会把库存重置。
func (s *RedisStore) Seed(ctx context.Context, seed []config.ProductSeed) error {
	pipe := s.client.TxPipeline()
	for _, p := range seed {
		key := productKey(p.ID)
		pipe.HSet(ctx, key, "name", p.Name)
		pipe.HSetNX(ctx, key, "quantity", p.Quantity)
		pipe.SAdd(ctx, productIndexKey, p.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "seed redis inventory")
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]domain.Product, error) {
	members, err := s.client.SMembers(ctx, productIndexKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list product ids")
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad product id %q in index", m)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, productKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrap(err, "load products")
	}

	out := make([]domain.Product, 0, len(ids))
	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		p, err := toProduct(id, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, id int64) (domain.Product, error) {
	fields, err := s.client.HGetAll(ctx, productKey(id)).Result()
	if err != nil {
		return domain.Product{}, errors.Wrapf(err, "get product %d", id)
	}
	if len(fields) == 0 {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return toProduct(id, fields)
}

func (s *RedisStore) CheckAvailability(ctx context.Context, id int64, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, nil
	}
	stock, err := s.client.HGet(ctx, productKey(id), "quantity").Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "check availability of product %d", id)
	}
	return stock >= quantity, nil
}

func (s *RedisStore) Reserve(ctx context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	code, err := reserveScript.Run(ctx, s.client, []string{productKey(id)}, quantity).Int64()
	if err != nil {
		return errors.Wrapf(err, "run reserve script for product %d", id)
	}
	switch code {
	case 1:
		return nil
	case 0:
		return domain.ErrInsufficientStock
	case -1:
		return domain.ErrProductNotFound
	default:
		return errors.Errorf("unknown result code from reserve script: %d", code)
	}
}

func toProduct(id int64, fields map[string]string) (domain.Product, error) {
	qty, err := strconv.Atoi(fields["quantity"])
	if err != nil {
		return domain.Product{}, errors.Wrapf(err, "bad quantity for product %d", id)
	}
	return domain.Product{ID: id, Name: fields["name"], Quantity: qty}, nil
}
