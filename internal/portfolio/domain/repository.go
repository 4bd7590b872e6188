package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PositionRepository 持仓仓储接口
type PositionRepository interface {
	// Save 保存持仓（新建或更新）
	Save(ctx context.Context, position *Position) error
	// Delete 删除持仓（清仓后移除）
	Delete(ctx context.Context, portfolioID, symbol string) error
	// Get 获取指定持仓，不存在时返回 nil, nil
	Get(ctx context.Context, portfolioID, symbol string) (*Position, error)
	// ListByPortfolio 获取组合下全部持仓
	ListByPortfolio(ctx context.Context, portfolioID string) ([]*Position, error)
}

// OrderRepository 订单历史仓储接口
// 订单记录只追加不修改。
type OrderRepository interface {
	// Append 追加一条订单记录
	Append(ctx context.Context, order *Order) error
	// ListByPortfolio 按时间倒序分页获取订单历史，返回记录与总数
	ListByPortfolio(ctx context.Context, portfolioID string, offset, limit int) ([]*Order, int64, error)
	// ListChronological 按时间正序获取组合全部订单，用于账本重放
	ListChronological(ctx context.Context, portfolioID string) ([]*Order, error)
}

// PriceProvider 行情价格提供方接口
// 由基础设施层对接行情服务实现，不存在报价时返回 nil, nil。
type PriceProvider interface {
	GetPrice(ctx context.Context, symbol string) (*decimal.Decimal, error)
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}
