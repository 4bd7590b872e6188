// Package application 实现组合账本服务的应用层，协调领域对象与基础设施
package application

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/portfolio/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/metrics"
	"github.com/wyfcoding/papertrading/pkg/utils"
)

// TxManager 事务管理接口
// MySQL 实现开启 GORM 事务并通过 context 传递给仓储；内存实现直接执行。
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ledgerEntry 缓存中的账本条目
// mu 串行化同一组合的加载、成交入账与持久化；evicted 标记条目已因
// 持久化失败被废弃，持有旧指针的调用方必须重新获取。
type ledgerEntry struct {
	mu      sync.Mutex
	ledger  *domain.Ledger
	loaded  bool
	evicted bool
}

// PortfolioService 组合账本应用服务
// 每个组合对应一个内存账本，首次访问时从订单流水重放重建。
// 成交入账先在账本内存状态上执行，再于同一事务内持久化持仓、流水与
// 发件箱消息；事务失败时废弃缓存账本，下次访问重新从流水重放。
// 持仓与估值读取走持仓仓储，即读取已提交状态，可被仓储层的读缓存加速。
type PortfolioService struct {
	positions domain.PositionRepository
	orders    domain.OrderRepository
	prices    domain.PriceProvider
	publisher domain.EventPublisher
	tx        TxManager
	metrics   *metrics.Metrics
	calc      *domain.ValuationCalculator

	mu      sync.Mutex
	ledgers map[string]*ledgerEntry
}

// NewPortfolioService 创建组合账本应用服务
func NewPortfolioService(
	positions domain.PositionRepository,
	orders domain.OrderRepository,
	prices domain.PriceProvider,
	publisher domain.EventPublisher,
	tx TxManager,
	m *metrics.Metrics,
) *PortfolioService {
	return &PortfolioService{
		positions: positions,
		orders:    orders,
		prices:    prices,
		publisher: publisher,
		tx:        tx,
		metrics:   m,
		calc:      domain.NewValuationCalculator(),
		ledgers:   make(map[string]*ledgerEntry),
	}
}

// ApplyFill 入账一笔成交
// 整个调用对外表现为全有或全无：校验失败或持久化失败时不产生任何可见变更。
func (s *PortfolioService) ApplyFill(ctx context.Context, cmd ApplyFillCommand) (*FillResultDTO, error) {
	side := domain.OrderSide(strings.ToUpper(cmd.Side))
	if cmd.PortfolioID == "" || !side.Valid() {
		s.countRejected()
		return nil, domain.ErrInvalidOrderInput
	}

	entry, err := s.lockEntry(ctx, cmd.PortfolioID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	orderID := fmt.Sprintf("ORD-%d", utils.GenID())

	var position *domain.Position
	var order *domain.Order
	if side == domain.OrderSideSell {
		position, order, err = entry.ledger.ApplySell(orderID, cmd.Symbol, cmd.Quantity, cmd.Price)
	} else {
		position, order, err = entry.ledger.ApplyBuy(orderID, cmd.Symbol, cmd.Quantity, cmd.Price)
	}
	if err != nil {
		s.countRejected()
		return nil, err
	}

	event := domain.FillAppliedEvent{
		OrderID:            order.OrderID,
		PortfolioID:        order.PortfolioID,
		Symbol:             order.Symbol,
		Side:               order.Side,
		Quantity:           order.Quantity,
		Price:              order.Price,
		RealizedPnL:        order.RealizedPnL,
		RealizedPnLPercent: order.RealizedPnLPercent,
		PositionQuantity:   position.Quantity,
		PositionAvgCost:    position.AverageCost,
		OccurredAt:         order.CreatedAt,
	}

	opened := !order.IsSell() && position.Quantity.Equal(order.Quantity)

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if position.IsClosed() {
			if err := s.positions.Delete(txCtx, position.PortfolioID, position.Symbol); err != nil {
				return err
			}
		} else {
			if err := s.positions.Save(txCtx, position); err != nil {
				return err
			}
		}
		if err := s.orders.Append(txCtx, order); err != nil {
			return err
		}
		if err := s.publisher.Publish(txCtx, domain.EventTypeFillApplied, event); err != nil {
			return err
		}
		if opened {
			return s.publisher.Publish(txCtx, domain.EventTypePositionOpened, domain.PositionOpenedEvent{
				PortfolioID: position.PortfolioID,
				Symbol:      position.Symbol,
				Quantity:    position.Quantity,
				AverageCost: position.AverageCost,
				OccurredAt:  order.CreatedAt,
			})
		}
		if position.IsClosed() {
			return s.publisher.Publish(txCtx, domain.EventTypePositionClosed, domain.PositionClosedEvent{
				PortfolioID: position.PortfolioID,
				Symbol:      position.Symbol,
				RealizedPnL: order.RealizedPnL,
				OccurredAt:  order.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		// 内存账本已变更而持久化失败，废弃缓存，下次访问重新重放
		s.evict(cmd.PortfolioID, entry)
		logger.Error(ctx, "failed to persist fill", "portfolio_id", cmd.PortfolioID, "order_id", orderID, "error", err)
		return nil, err
	}

	s.countApplied(position, order)
	logger.Info(ctx, "fill applied",
		"portfolio_id", cmd.PortfolioID, "order_id", orderID,
		"symbol", cmd.Symbol, "side", string(side),
		"quantity", cmd.Quantity.String(), "price", cmd.Price.String())

	return &FillResultDTO{Order: toOrderDTO(order), Position: toPositionDTO(position)}, nil
}

// ListPositions 返回组合的全部持仓
func (s *PortfolioService) ListPositions(ctx context.Context, portfolioID string) ([]*PositionDTO, error) {
	positions, err := s.positions.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	result := make([]*PositionDTO, 0, len(positions))
	for _, position := range positions {
		result = append(result, toPositionDTO(position))
	}
	return result, nil
}

// GetPosition 返回指定标的持仓
func (s *PortfolioService) GetPosition(ctx context.Context, portfolioID, symbol string) (*PositionDTO, error) {
	position, err := s.positions.Get(ctx, portfolioID, symbol)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, domain.ErrPositionNotFound
	}
	return toPositionDTO(position), nil
}

// ListOrders 按时间倒序分页返回成交流水
func (s *PortfolioService) ListOrders(ctx context.Context, portfolioID string, page, pageSize int) (*OrderListDTO, error) {
	p := utils.NewPagination(page, pageSize, 0)
	orders, total, err := s.orders.ListByPortfolio(ctx, portfolioID, p.Offset(), p.Limit())
	if err != nil {
		return nil, err
	}

	result := make([]*OrderDTO, 0, len(orders))
	for _, order := range orders {
		result = append(result, toOrderDTO(order))
	}
	return &OrderListDTO{
		Orders:   result,
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}, nil
}

// GetValuation 返回指定持仓的估值
// 无可用报价时按成本价估值，PriceAvailable 为 false。
func (s *PortfolioService) GetValuation(ctx context.Context, portfolioID, symbol string) (*ValuationDTO, error) {
	position, err := s.positions.Get(ctx, portfolioID, symbol)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, domain.ErrPositionNotFound
	}

	return s.valuate(ctx, position), nil
}

// GetPortfolioValuation 返回组合整体估值
func (s *PortfolioService) GetPortfolioValuation(ctx context.Context, portfolioID string) (*PortfolioValuationDTO, error) {
	positions, err := s.positions.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	result := &PortfolioValuationDTO{
		PortfolioID:        portfolioID,
		Positions:          make([]*ValuationDTO, 0, len(positions)),
		TotalMarketValue:   decimal.Zero,
		TotalCostBasis:     decimal.Zero,
		TotalUnrealizedPnL: decimal.Zero,
	}
	for _, position := range positions {
		valuation := s.valuate(ctx, position)
		result.Positions = append(result.Positions, valuation)
		result.TotalMarketValue = result.TotalMarketValue.Add(valuation.MarketValue)
		result.TotalCostBasis = result.TotalCostBasis.Add(valuation.CostBasis)
		result.TotalUnrealizedPnL = result.TotalUnrealizedPnL.Add(valuation.UnrealizedPnL)
	}
	return result, nil
}

func (s *PortfolioService) valuate(ctx context.Context, position *domain.Position) *ValuationDTO {
	price, err := s.prices.GetPrice(ctx, position.Symbol)
	if err != nil {
		logger.Warn(ctx, "failed to fetch price", "symbol", position.Symbol, "error", err)
	}
	if price == nil {
		// 报价缺失时按成本价估值，未实现盈亏为零
		return toValuationDTO(s.calc.Valuate(position, position.AverageCost), false)
	}
	return toValuationDTO(s.calc.Valuate(position, *price), true)
}

// lockEntry 获取组合账本条目并持有其锁
// 首次访问时从订单流水重放重建账本；返回时调用方持有 entry.mu。
func (s *PortfolioService) lockEntry(ctx context.Context, portfolioID string) (*ledgerEntry, error) {
	for {
		s.mu.Lock()
		entry, ok := s.ledgers[portfolioID]
		if !ok {
			entry = &ledgerEntry{ledger: domain.NewLedger(portfolioID)}
			s.ledgers[portfolioID] = entry
		}
		s.mu.Unlock()

		entry.mu.Lock()
		if entry.evicted {
			entry.mu.Unlock()
			continue
		}
		if !entry.loaded {
			history, err := s.orders.ListChronological(ctx, portfolioID)
			if err != nil {
				entry.mu.Unlock()
				return nil, fmt.Errorf("failed to load order history: %w", err)
			}
			if err := entry.ledger.Replay(history); err != nil {
				entry.mu.Unlock()
				return nil, fmt.Errorf("failed to replay ledger: %w", err)
			}
			entry.loaded = true
		}
		return entry, nil
	}
}

// evict 废弃缓存条目；调用方必须持有 entry.mu
func (s *PortfolioService) evict(portfolioID string, entry *ledgerEntry) {
	entry.evicted = true
	s.mu.Lock()
	if current, ok := s.ledgers[portfolioID]; ok && current == entry {
		delete(s.ledgers, portfolioID)
	}
	s.mu.Unlock()
}

func (s *PortfolioService) countRejected() {
	if s.metrics != nil {
		s.metrics.FillsRejected.Inc()
	}
}

func (s *PortfolioService) countApplied(position *domain.Position, order *domain.Order) {
	if s.metrics == nil {
		return
	}
	s.metrics.FillsTotal.Inc()
	if position.IsClosed() {
		s.metrics.PositionsActive.Dec()
	} else if !order.IsSell() && position.Quantity.Equal(order.Quantity) {
		s.metrics.PositionsActive.Inc()
	}
}
