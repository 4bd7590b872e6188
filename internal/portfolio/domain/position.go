// Package domain 包含组合账本服务的领域模型
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus 持仓状态
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

// Position 持仓
// 同一标的的全部买入批次按加权平均法合并为单一均价；卖出不改变剩余持仓的均价
type Position struct {
	// PortfolioID 所属组合
	PortfolioID string `json:"portfolio_id"`
	// Symbol 标的代码
	Symbol string `json:"symbol"`
	// Quantity 持仓数量；持仓存在期间恒大于 0
	Quantity decimal.Decimal `json:"quantity"`
	// AverageCost 加权平均成本
	AverageCost decimal.Decimal `json:"average_cost"`
	// Status 持仓状态
	Status PositionStatus `json:"status"`
	// OpenedAt 开仓时间
	OpenedAt time.Time `json:"opened_at"`
	// UpdatedAt 最近一次成交时间
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPosition 以首笔买入开仓
func NewPosition(portfolioID, symbol string, quantity, price decimal.Decimal, at time.Time) *Position {
	return &Position{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Quantity:    quantity,
		AverageCost: price,
		Status:      PositionStatusOpen,
		OpenedAt:    at,
		UpdatedAt:   at,
	}
}

// addLot 合并一笔新的买入批次，按加权平均法更新均价
// newAvg = (oldQty*oldAvg + qty*price) / (oldQty + qty)
func (p *Position) addLot(quantity, price decimal.Decimal, at time.Time) {
	newQuantity := p.Quantity.Add(quantity)
	totalCost := p.Quantity.Mul(p.AverageCost).Add(quantity.Mul(price))
	p.AverageCost = totalCost.Div(newQuantity)
	p.Quantity = newQuantity
	p.UpdatedAt = at
}

// reduce 减少持仓数量；均价不变
// 调用方必须保证 quantity <= p.Quantity
func (p *Position) reduce(quantity decimal.Decimal, at time.Time) {
	p.Quantity = p.Quantity.Sub(quantity)
	p.UpdatedAt = at
	if p.Quantity.IsZero() {
		p.Status = PositionStatusClosed
	}
}

// CostBasis 持仓成本 = 数量 * 均价
func (p *Position) CostBasis() decimal.Decimal {
	return p.Quantity.Mul(p.AverageCost)
}

// IsClosed 是否已平仓
func (p *Position) IsClosed() bool {
	return p.Status == PositionStatusClosed
}

// Clone 返回持仓的副本
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}
