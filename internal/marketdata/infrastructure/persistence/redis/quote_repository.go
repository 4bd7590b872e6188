// Package redis 提供报价仓储的 Redis 实现
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
	"github.com/wyfcoding/papertrading/pkg/cache"
)

// QuoteRedisRepository 基于 Redis 的报价仓储
// 键格式 quote:<symbol>，组合服务的价格提供方按同一约定读取。
type QuoteRedisRepository struct {
	cache  *cache.RedisCache
	prefix string
	ttl    time.Duration
}

// NewQuoteRedisRepository 创建 Redis 报价仓储
func NewQuoteRedisRepository(c *cache.RedisCache) *QuoteRedisRepository {
	return &QuoteRedisRepository{
		cache:  c,
		prefix: "quote:",
		ttl:    24 * time.Hour,
	}
}

// Save 实现 domain.QuoteRepository.Save
func (r *QuoteRedisRepository) Save(ctx context.Context, quote *domain.Quote) error {
	if quote == nil {
		return nil
	}
	if err := r.cache.SetJSON(ctx, r.key(quote.Symbol), quote, r.ttl); err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	return nil
}

// GetLatest 实现 domain.QuoteRepository.GetLatest，不存在时返回 nil, nil
func (r *QuoteRedisRepository) GetLatest(ctx context.Context, symbol string) (*domain.Quote, error) {
	var quote domain.Quote
	if err := r.cache.GetJSON(ctx, r.key(symbol), &quote); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote.Symbol == "" {
		return nil, nil
	}
	return &quote, nil
}

func (r *QuoteRedisRepository) key(symbol string) string {
	return r.prefix + symbol
}
