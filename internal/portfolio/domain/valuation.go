package domain

import (
	"github.com/shopspring/decimal"
)

// Valuation 持仓估值结果
type Valuation struct {
	Symbol               string          `json:"symbol"`
	Quantity             decimal.Decimal `json:"quantity"`
	AverageCost          decimal.Decimal `json:"average_cost"`
	CurrentPrice         decimal.Decimal `json:"current_price"`
	MarketValue          decimal.Decimal `json:"market_value"`
	CostBasis            decimal.Decimal `json:"cost_basis"`
	UnrealizedPnL        decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPercent decimal.Decimal `json:"unrealized_pnl_percent"`
}

// ValuationCalculator 估值计算器
// 纯函数式领域服务：结合持仓与外部传入的当前价格计算市值与未实现盈亏。
// 账本自身不持有任何行情数据，价格始终由调用方提供。
type ValuationCalculator struct{}

// NewValuationCalculator 创建估值计算器实例
func NewValuationCalculator() *ValuationCalculator {
	return &ValuationCalculator{}
}

// Valuate 计算持仓估值
// marketValue = quantity * currentPrice
// unrealizedPnL = marketValue - quantity * averageCost
// unrealizedPnLPercent = unrealizedPnL / (quantity * averageCost) * 100，成本为零时为零
func (c *ValuationCalculator) Valuate(position *Position, currentPrice decimal.Decimal) *Valuation {
	marketValue := position.Quantity.Mul(currentPrice)
	costBasis := position.CostBasis()
	unrealized := marketValue.Sub(costBasis)

	unrealizedPercent := decimal.Zero
	if costBasis.IsPositive() {
		unrealizedPercent = unrealized.Div(costBasis).Mul(decimal.NewFromInt(100))
	}

	return &Valuation{
		Symbol:               position.Symbol,
		Quantity:             position.Quantity,
		AverageCost:          position.AverageCost,
		CurrentPrice:         currentPrice,
		MarketValue:          marketValue,
		CostBasis:            costBasis,
		UnrealizedPnL:        unrealized,
		UnrealizedPnLPercent: unrealizedPercent,
	}
}

// UnrealizedPnL 计算未实现盈亏
func (c *ValuationCalculator) UnrealizedPnL(position *Position, currentPrice decimal.Decimal) decimal.Decimal {
	if position.Quantity.IsZero() {
		return decimal.Zero
	}
	return currentPrice.Sub(position.AverageCost).Mul(position.Quantity)
}
