package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// StaticPriceProvider 固定价格表提供方，用于内存模式与测试
type StaticPriceProvider struct {
	mu     sync.RWMutex
	quotes map[string]decimal.Decimal
}

// NewStaticPriceProvider 创建固定价格提供方
func NewStaticPriceProvider(quotes map[string]decimal.Decimal) *StaticPriceProvider {
	if quotes == nil {
		quotes = make(map[string]decimal.Decimal)
	}
	return &StaticPriceProvider{quotes: quotes}
}

// SetPrice 设置标的价格
func (p *StaticPriceProvider) SetPrice(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[symbol] = price
}

// GetPrice 实现 domain.PriceProvider.GetPrice
func (p *StaticPriceProvider) GetPrice(ctx context.Context, symbol string) (*decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	price, ok := p.quotes[symbol]
	if !ok {
		return nil, nil
	}
	return &price, nil
}
