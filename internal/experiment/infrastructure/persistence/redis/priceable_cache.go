package redis

import (
	"context"
	"time"

	"github.com/wyfcoding/pricelab/internal/experiment/domain"
	"github.com/wyfcoding/pricelab/pkg/cache"
)

const keyPrefix = "pricelab:priceable:"

// priceableIDCache 基于 Redis 的可计价实体 ID 缓存。
// 平台侧的商品到主变体映射变化很少，缓存可以省掉轮换时的解析调用。
type priceableIDCache struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewPriceableIDCache 创建可计价实体 ID 缓存
func NewPriceableIDCache(c *cache.RedisCache, ttl time.Duration) domain.PriceableIDCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &priceableIDCache{cache: c, ttl: ttl}
}

func (p *priceableIDCache) Get(ctx context.Context, tenantID, productID string) (string, error) {
	return p.cache.Get(ctx, keyPrefix+tenantID+":"+productID)
}

func (p *priceableIDCache) Set(ctx context.Context, tenantID, productID, priceableID string) error {
	return p.cache.Set(ctx, keyPrefix+tenantID+":"+productID, priceableID, p.ttl)
}
