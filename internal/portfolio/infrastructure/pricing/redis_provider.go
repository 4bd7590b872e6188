// Package pricing 对接行情服务的报价缓存，实现价格提供方接口
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/pkg/cache"
)

// quotePayload 行情服务写入 Redis 的报价结构
type quotePayload struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RedisPriceProvider 从行情服务的 Redis 报价缓存读取当前价格
// 报价不存在时返回 nil, nil，估值方按无报价处理。
type RedisPriceProvider struct {
	cache *cache.RedisCache
}

// NewRedisPriceProvider 创建 Redis 价格提供方
func NewRedisPriceProvider(c *cache.RedisCache) *RedisPriceProvider {
	return &RedisPriceProvider{cache: c}
}

// GetPrice 实现 domain.PriceProvider.GetPrice
func (p *RedisPriceProvider) GetPrice(ctx context.Context, symbol string) (*decimal.Decimal, error) {
	var quote quotePayload
	if err := p.cache.GetJSON(ctx, quoteKey(symbol), &quote); err != nil {
		return nil, fmt.Errorf("failed to read quote for %s: %w", symbol, err)
	}
	if quote.Symbol == "" {
		return nil, nil
	}
	return &quote.Price, nil
}

func quoteKey(symbol string) string {
	return fmt.Sprintf("quote:%s", symbol)
}
