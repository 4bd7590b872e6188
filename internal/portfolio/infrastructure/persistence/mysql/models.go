// Package mysql 提供了持仓与订单仓储接口的 MySQL GORM 实现。
package mysql

import (
	"time"

	"gorm.io/gorm"
)

// PositionModel 持仓数据库模型
type PositionModel struct {
	gorm.Model
	PortfolioID string    `gorm:"column:portfolio_id;type:varchar(32);uniqueIndex:uk_portfolio_symbol;not null"`
	Symbol      string    `gorm:"column:symbol;type:varchar(20);uniqueIndex:uk_portfolio_symbol;not null"`
	Quantity    string    `gorm:"column:quantity;type:decimal(32,18);not null"`
	AverageCost string    `gorm:"column:average_cost;type:decimal(32,18);not null"`
	Status      string    `gorm:"column:status;type:varchar(20);index;not null"`
	OpenedAt    time.Time `gorm:"column:opened_at;type:datetime(6);not null"`
	LastFillAt  time.Time `gorm:"column:last_fill_at;type:datetime(6);not null"`
}

// TableName 指定表名
func (PositionModel) TableName() string {
	return "positions"
}

// OrderModel 订单流水数据库模型
type OrderModel struct {
	gorm.Model
	OrderID            string    `gorm:"column:order_id;type:varchar(32);uniqueIndex;not null"`
	Seq                int64     `gorm:"column:seq;type:bigint;index:idx_portfolio_seq,priority:2;not null"`
	PortfolioID        string    `gorm:"column:portfolio_id;type:varchar(32);index:idx_portfolio_seq,priority:1;not null"`
	Symbol             string    `gorm:"column:symbol;type:varchar(20);index;not null"`
	Side               string    `gorm:"column:side;type:varchar(10);not null"`
	Quantity           string    `gorm:"column:quantity;type:decimal(32,18);not null"`
	Price              string    `gorm:"column:price;type:decimal(32,18);not null"`
	RealizedPnL        string    `gorm:"column:realized_pnl;type:decimal(32,18);not null"`
	RealizedPnLPercent string    `gorm:"column:realized_pnl_percent;type:decimal(32,18);not null"`
	FilledAt           time.Time `gorm:"column:filled_at;type:datetime(6);not null"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "orders"
}
