package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide 买卖方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Valid 方向是否合法
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// Order 成交流水记录
// 流水只追加不修改，按 Seq 严格递增。已实现盈亏仅在卖出时有意义，买入时为零。
type Order struct {
	// Seq 组合内单调递增序号
	Seq int64 `json:"seq"`
	// OrderID 全局唯一订单号
	OrderID string `json:"order_id"`
	// PortfolioID 所属组合
	PortfolioID string `json:"portfolio_id"`
	// Symbol 标的代码
	Symbol string `json:"symbol"`
	// Side 买卖方向
	Side OrderSide `json:"side"`
	// Quantity 成交数量
	Quantity decimal.Decimal `json:"quantity"`
	// Price 成交价格
	Price decimal.Decimal `json:"price"`
	// RealizedPnL 本笔卖出的已实现盈亏
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	// RealizedPnLPercent 已实现盈亏百分比
	RealizedPnLPercent decimal.Decimal `json:"realized_pnl_percent"`
	// CreatedAt 成交时间
	CreatedAt time.Time `json:"created_at"`
}

// IsSell 是否为卖出流水
func (o *Order) IsSell() bool {
	return o.Side == OrderSideSell
}

// Clone 返回流水记录的副本
func (o *Order) Clone() *Order {
	cp := *o
	return &cp
}
