// Package domain 包含行情服务的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// 领域错误
var (
	// ErrInvalidQuote 报价非法（标的为空或价格不为正）
	ErrInvalidQuote = errors.New("invalid quote")
	// ErrQuoteNotFound 报价不存在
	ErrQuoteNotFound = errors.New("quote not found")
)

// PriceUpdatedEventType 价格更新事件类型
const PriceUpdatedEventType = "marketdata.price.updated"

// Quote 标的最新报价
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewQuote 创建报价
func NewQuote(symbol string, price decimal.Decimal, at time.Time) (*Quote, error) {
	if symbol == "" || !price.IsPositive() {
		return nil, ErrInvalidQuote
	}
	return &Quote{
		Symbol:    symbol,
		Price:     price,
		UpdatedAt: at,
	}, nil
}

// QuoteRepository 报价仓储接口
type QuoteRepository interface {
	// Save 保存最新报价（覆盖旧值）
	Save(ctx context.Context, quote *Quote) error
	// GetLatest 获取最新报价，不存在时返回 nil, nil
	GetLatest(ctx context.Context, symbol string) (*Quote, error)
}
