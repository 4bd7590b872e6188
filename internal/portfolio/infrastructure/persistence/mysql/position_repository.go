package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/portfolio/domain"
	"github.com/wyfcoding/papertrading/pkg/contextx"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// positionRepositoryImpl 是 domain.PositionRepository 接口的 GORM 实现。
type positionRepositoryImpl struct {
	db *gorm.DB
}

// NewPositionRepository 创建持仓仓储实例
func NewPositionRepository(db *gorm.DB) domain.PositionRepository {
	return &positionRepositoryImpl{db: db}
}

// Save 实现 domain.PositionRepository.Save
func (r *positionRepositoryImpl) Save(ctx context.Context, position *domain.Position) error {
	model := r.fromDomain(position)
	err := r.getDB(ctx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "portfolio_id"}, {Name: "symbol"}},
		UpdateAll: true,
	}).Create(model).Error

	if err != nil {
		logger.Error(ctx, "position_repository.Save failed",
			"portfolio_id", position.PortfolioID, "symbol", position.Symbol, "error", err)
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// Delete 实现 domain.PositionRepository.Delete
func (r *positionRepositoryImpl) Delete(ctx context.Context, portfolioID, symbol string) error {
	err := r.getDB(ctx).WithContext(ctx).
		Where("portfolio_id = ? AND symbol = ?", portfolioID, symbol).
		Delete(&PositionModel{}).Error
	if err != nil {
		logger.Error(ctx, "position_repository.Delete failed",
			"portfolio_id", portfolioID, "symbol", symbol, "error", err)
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// Get 实现 domain.PositionRepository.Get，不存在时返回 nil, nil
func (r *positionRepositoryImpl) Get(ctx context.Context, portfolioID, symbol string) (*domain.Position, error) {
	var model PositionModel
	err := r.getDB(ctx).WithContext(ctx).
		Where("portfolio_id = ? AND symbol = ?", portfolioID, symbol).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "position_repository.Get failed",
			"portfolio_id", portfolioID, "symbol", symbol, "error", err)
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return r.toDomain(&model)
}

// ListByPortfolio 实现 domain.PositionRepository.ListByPortfolio
func (r *positionRepositoryImpl) ListByPortfolio(ctx context.Context, portfolioID string) ([]*domain.Position, error) {
	var models []PositionModel
	err := r.getDB(ctx).WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("symbol asc").
		Find(&models).Error
	if err != nil {
		logger.Error(ctx, "position_repository.ListByPortfolio failed",
			"portfolio_id", portfolioID, "error", err)
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	positions := make([]*domain.Position, 0, len(models))
	for i := range models {
		position, err := r.toDomain(&models[i])
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, nil
}

func (r *positionRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

func (r *positionRepositoryImpl) fromDomain(position *domain.Position) *PositionModel {
	return &PositionModel{
		PortfolioID: position.PortfolioID,
		Symbol:      position.Symbol,
		Quantity:    position.Quantity.String(),
		AverageCost: position.AverageCost.String(),
		Status:      string(position.Status),
		OpenedAt:    position.OpenedAt,
		LastFillAt:  position.UpdatedAt,
	}
}

func (r *positionRepositoryImpl) toDomain(model *PositionModel) (*domain.Position, error) {
	quantity, err := decimal.NewFromString(model.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity in position %s/%s: %w", model.PortfolioID, model.Symbol, err)
	}
	averageCost, err := decimal.NewFromString(model.AverageCost)
	if err != nil {
		return nil, fmt.Errorf("invalid average cost in position %s/%s: %w", model.PortfolioID, model.Symbol, err)
	}
	return &domain.Position{
		PortfolioID: model.PortfolioID,
		Symbol:      model.Symbol,
		Quantity:    quantity,
		AverageCost: averageCost,
		Status:      domain.PositionStatus(model.Status),
		OpenedAt:    model.OpenedAt,
		UpdatedAt:   model.LastFillAt,
	}, nil
}
