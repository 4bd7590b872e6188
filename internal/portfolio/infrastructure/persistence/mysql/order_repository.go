package mysql

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/portfolio/domain"
	"github.com/wyfcoding/papertrading/pkg/contextx"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"gorm.io/gorm"
)

// orderRepositoryImpl 是 domain.OrderRepository 接口的 GORM 实现。
type orderRepositoryImpl struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储实例
func NewOrderRepository(db *gorm.DB) domain.OrderRepository {
	return &orderRepositoryImpl{db: db}
}

// Append 实现 domain.OrderRepository.Append
func (r *orderRepositoryImpl) Append(ctx context.Context, order *domain.Order) error {
	model := r.fromDomain(order)
	if err := r.getDB(ctx).WithContext(ctx).Create(model).Error; err != nil {
		logger.Error(ctx, "order_repository.Append failed", "order_id", order.OrderID, "error", err)
		return fmt.Errorf("failed to append order: %w", err)
	}
	return nil
}

// ListByPortfolio 实现 domain.OrderRepository.ListByPortfolio，按序号倒序分页
func (r *orderRepositoryImpl) ListByPortfolio(ctx context.Context, portfolioID string, offset, limit int) ([]*domain.Order, int64, error) {
	var models []OrderModel
	var total int64

	db := r.getDB(ctx).WithContext(ctx).Model(&OrderModel{}).Where("portfolio_id = ?", portfolioID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}
	if err := db.Order("seq desc").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		logger.Error(ctx, "order_repository.ListByPortfolio failed", "portfolio_id", portfolioID, "error", err)
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders, err := r.toDomainList(models)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListChronological 实现 domain.OrderRepository.ListChronological，按序号正序返回全部流水
func (r *orderRepositoryImpl) ListChronological(ctx context.Context, portfolioID string) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.getDB(ctx).WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("seq asc").
		Find(&models).Error
	if err != nil {
		logger.Error(ctx, "order_repository.ListChronological failed", "portfolio_id", portfolioID, "error", err)
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	return r.toDomainList(models)
}

func (r *orderRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

func (r *orderRepositoryImpl) fromDomain(order *domain.Order) *OrderModel {
	return &OrderModel{
		OrderID:            order.OrderID,
		Seq:                order.Seq,
		PortfolioID:        order.PortfolioID,
		Symbol:             order.Symbol,
		Side:               string(order.Side),
		Quantity:           order.Quantity.String(),
		Price:              order.Price.String(),
		RealizedPnL:        order.RealizedPnL.String(),
		RealizedPnLPercent: order.RealizedPnLPercent.String(),
		FilledAt:           order.CreatedAt,
	}
}

func (r *orderRepositoryImpl) toDomainList(models []OrderModel) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		order, err := r.toDomain(&models[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *orderRepositoryImpl) toDomain(model *OrderModel) (*domain.Order, error) {
	fields := map[string]string{
		"quantity":             model.Quantity,
		"price":                model.Price,
		"realized_pnl":         model.RealizedPnL,
		"realized_pnl_percent": model.RealizedPnLPercent,
	}
	parsed := make(map[string]decimal.Decimal, len(fields))
	for name, raw := range fields {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s in order %s: %w", name, model.OrderID, err)
		}
		parsed[name] = value
	}

	return &domain.Order{
		Seq:                model.Seq,
		OrderID:            model.OrderID,
		PortfolioID:        model.PortfolioID,
		Symbol:             model.Symbol,
		Side:               domain.OrderSide(model.Side),
		Quantity:           parsed["quantity"],
		Price:              parsed["price"],
		RealizedPnL:        parsed["realized_pnl"],
		RealizedPnLPercent: parsed["realized_pnl_percent"],
		CreatedAt:          model.FilledAt,
	}, nil
}
