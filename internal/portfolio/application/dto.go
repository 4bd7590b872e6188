package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/portfolio/domain"
)

// ApplyFillCommand 入账一笔成交的命令
type ApplyFillCommand struct {
	PortfolioID string          `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// PositionDTO 持仓视图
type PositionDTO struct {
	PortfolioID string          `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	Status      string          `json:"status"`
	OpenedAt    time.Time       `json:"opened_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderDTO 成交流水视图
type OrderDTO struct {
	OrderID            string          `json:"order_id"`
	PortfolioID        string          `json:"portfolio_id"`
	Symbol             string          `json:"symbol"`
	Side               string          `json:"side"`
	Quantity           decimal.Decimal `json:"quantity"`
	Price              decimal.Decimal `json:"price"`
	RealizedPnL        decimal.Decimal `json:"realized_pnl"`
	RealizedPnLPercent decimal.Decimal `json:"realized_pnl_percent"`
	CreatedAt          time.Time       `json:"created_at"`
}

// FillResultDTO 成交入账结果
type FillResultDTO struct {
	Order    *OrderDTO    `json:"order"`
	Position *PositionDTO `json:"position"`
}

// OrderListDTO 分页的流水列表
type OrderListDTO struct {
	Orders   []*OrderDTO `json:"orders"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// ValuationDTO 单个持仓估值视图
type ValuationDTO struct {
	Symbol               string          `json:"symbol"`
	Quantity             decimal.Decimal `json:"quantity"`
	AverageCost          decimal.Decimal `json:"average_cost"`
	CurrentPrice         decimal.Decimal `json:"current_price"`
	PriceAvailable       bool            `json:"price_available"`
	MarketValue          decimal.Decimal `json:"market_value"`
	CostBasis            decimal.Decimal `json:"cost_basis"`
	UnrealizedPnL        decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPercent decimal.Decimal `json:"unrealized_pnl_percent"`
}

// PortfolioValuationDTO 组合整体估值视图
type PortfolioValuationDTO struct {
	PortfolioID        string          `json:"portfolio_id"`
	Positions          []*ValuationDTO `json:"positions"`
	TotalMarketValue   decimal.Decimal `json:"total_market_value"`
	TotalCostBasis     decimal.Decimal `json:"total_cost_basis"`
	TotalUnrealizedPnL decimal.Decimal `json:"total_unrealized_pnl"`
}

func toPositionDTO(position *domain.Position) *PositionDTO {
	return &PositionDTO{
		PortfolioID: position.PortfolioID,
		Symbol:      position.Symbol,
		Quantity:    position.Quantity,
		AverageCost: position.AverageCost,
		CostBasis:   position.CostBasis(),
		Status:      string(position.Status),
		OpenedAt:    position.OpenedAt,
		UpdatedAt:   position.UpdatedAt,
	}
}

func toOrderDTO(order *domain.Order) *OrderDTO {
	return &OrderDTO{
		OrderID:            order.OrderID,
		PortfolioID:        order.PortfolioID,
		Symbol:             order.Symbol,
		Side:               string(order.Side),
		Quantity:           order.Quantity,
		Price:              order.Price,
		RealizedPnL:        order.RealizedPnL,
		RealizedPnLPercent: order.RealizedPnLPercent,
		CreatedAt:          order.CreatedAt,
	}
}

func toValuationDTO(valuation *domain.Valuation, priceAvailable bool) *ValuationDTO {
	return &ValuationDTO{
		Symbol:               valuation.Symbol,
		Quantity:             valuation.Quantity,
		AverageCost:          valuation.AverageCost,
		CurrentPrice:         valuation.CurrentPrice,
		PriceAvailable:       priceAvailable,
		MarketValue:          valuation.MarketValue,
		CostBasis:            valuation.CostBasis,
		UnrealizedPnL:        valuation.UnrealizedPnL,
		UnrealizedPnLPercent: valuation.UnrealizedPnLPercent,
	}
}
