// Package memory 提供持仓与订单仓储的内存实现，用于本地模拟模式与测试
package memory

import (
	"context"
	"sync"

	"github.com/wyfcoding/papertrading/internal/portfolio/domain"
)

// PositionRepository 持仓仓储的内存实现
type PositionRepository struct {
	mu        sync.RWMutex
	positions map[string]map[string]*domain.Position
}

// NewPositionRepository 创建内存持仓仓储
func NewPositionRepository() *PositionRepository {
	return &PositionRepository{
		positions: make(map[string]map[string]*domain.Position),
	}
}

// Save 实现 domain.PositionRepository.Save
func (r *PositionRepository) Save(ctx context.Context, position *domain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bysymbol, ok := r.positions[position.PortfolioID]
	if !ok {
		bysymbol = make(map[string]*domain.Position)
		r.positions[position.PortfolioID] = bysymbol
	}
	bysymbol[position.Symbol] = position.Clone()
	return nil
}

// Delete 实现 domain.PositionRepository.Delete
func (r *PositionRepository) Delete(ctx context.Context, portfolioID, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bysymbol, ok := r.positions[portfolioID]; ok {
		delete(bysymbol, symbol)
	}
	return nil
}

// Get 实现 domain.PositionRepository.Get，不存在时返回 nil, nil
func (r *PositionRepository) Get(ctx context.Context, portfolioID, symbol string) (*domain.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	position, ok := r.positions[portfolioID][symbol]
	if !ok {
		return nil, nil
	}
	return position.Clone(), nil
}

// ListByPortfolio 实现 domain.PositionRepository.ListByPortfolio
func (r *PositionRepository) ListByPortfolio(ctx context.Context, portfolioID string) ([]*domain.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bysymbol := r.positions[portfolioID]
	result := make([]*domain.Position, 0, len(bysymbol))
	for _, position := range bysymbol {
		result = append(result, position.Clone())
	}
	return result, nil
}

// Snapshot 实现 Snapshotter
func (r *PositionRepository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]map[string]*domain.Position, len(r.positions))
	for portfolioID, bysymbol := range r.positions {
		copied := make(map[string]*domain.Position, len(bysymbol))
		for symbol, position := range bysymbol {
			copied[symbol] = position.Clone()
		}
		saved[portfolioID] = copied
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.positions = saved
		r.mu.Unlock()
	}
}

// OrderRepository 订单流水仓储的内存实现
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string][]*domain.Order
}

// NewOrderRepository 创建内存订单仓储
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string][]*domain.Order),
	}
}

// Append 实现 domain.OrderRepository.Append
func (r *OrderRepository) Append(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[order.PortfolioID] = append(r.orders[order.PortfolioID], order.Clone())
	return nil
}

// ListByPortfolio 实现 domain.OrderRepository.ListByPortfolio，按时间倒序分页
func (r *OrderRepository) ListByPortfolio(ctx context.Context, portfolioID string, offset, limit int) ([]*domain.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.orders[portfolioID]
	total := int64(len(all))

	result := make([]*domain.Order, 0, limit)
	for i := len(all) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, all[i].Clone())
	}
	return result, total, nil
}

// ListChronological 实现 domain.OrderRepository.ListChronological
func (r *OrderRepository) ListChronological(ctx context.Context, portfolioID string) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.orders[portfolioID]
	result := make([]*domain.Order, len(all))
	for i, order := range all {
		result[i] = order.Clone()
	}
	return result, nil
}

// Snapshot 实现 Snapshotter
func (r *OrderRepository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string][]*domain.Order, len(r.orders))
	for portfolioID, orders := range r.orders {
		copied := make([]*domain.Order, len(orders))
		for i, order := range orders {
			copied[i] = order.Clone()
		}
		saved[portfolioID] = copied
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.orders = saved
		r.mu.Unlock()
	}
}

// Snapshotter 可快照的内存资源；Snapshot 返回恢复到快照时刻的函数
type Snapshotter interface {
	Snapshot() (restore func())
}

// TxManager 内存事务管理器
// 执行函数体前对注册的资源做快照，函数返回错误时按逆序恢复，
// 使失败的调用不留下部分写入。
type TxManager struct {
	resources []Snapshotter
}

// NewTxManager 创建内存事务管理器
func NewTxManager(resources ...Snapshotter) *TxManager {
	return &TxManager{resources: resources}
}

// WithinTx 执行函数体；失败时恢复全部资源快照
func (t *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	restores := make([]func(), 0, len(t.resources))
	for _, resource := range t.resources {
		restores = append(restores, resource.Snapshot())
	}
	if err := fn(ctx); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}

// EventPublisher 事件发布器的内存实现，记录发布的事件供测试断言
type EventPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

// PublishedEvent 已发布的事件
type PublishedEvent struct {
	EventType string
	Payload   any
}

// NewEventPublisher 创建内存事件发布器
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

// Publish 记录事件
func (p *EventPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, PublishedEvent{EventType: eventType, Payload: payload})
	return nil
}

// Snapshot 实现 Snapshotter
func (p *EventPublisher) Snapshot() func() {
	p.mu.Lock()
	length := len(p.events)
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		p.events = p.events[:length]
		p.mu.Unlock()
	}
}

// Events 返回已发布事件的副本
func (p *EventPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]PublishedEvent, len(p.events))
	copy(result, p.events)
	return result
}
