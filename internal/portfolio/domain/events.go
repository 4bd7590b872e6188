package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// 领域事件类型
const (
	EventTypeFillApplied    = "portfolio.fill.applied"
	EventTypePositionOpened = "portfolio.position.opened"
	EventTypePositionClosed = "portfolio.position.closed"
)

// FillAppliedEvent 成交已入账事件
type FillAppliedEvent struct {
	OrderID            string          `json:"order_id"`
	PortfolioID        string          `json:"portfolio_id"`
	Symbol             string          `json:"symbol"`
	Side               OrderSide       `json:"side"`
	Quantity           decimal.Decimal `json:"quantity"`
	Price              decimal.Decimal `json:"price"`
	RealizedPnL        decimal.Decimal `json:"realized_pnl"`
	RealizedPnLPercent decimal.Decimal `json:"realized_pnl_percent"`
	PositionQuantity   decimal.Decimal `json:"position_quantity"`
	PositionAvgCost    decimal.Decimal `json:"position_avg_cost"`
	OccurredAt         time.Time       `json:"occurred_at"`
}

// PositionOpenedEvent 新建持仓事件
type PositionOpenedEvent struct {
	PortfolioID string          `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// PositionClosedEvent 持仓清零事件
type PositionClosedEvent struct {
	PortfolioID string          `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
