package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger 组合账本
// 单个组合的同步状态机：持仓集合与追加式成交流水。
// 每次 ApplyBuy/ApplySell 在返回前完整执行（校验、变更、追加流水），
// 所有前置校验先于任何状态变更，校验失败时账本保持不变。
// 内部互斥锁是组合级别的串行化点；不同组合各持有独立的 Ledger 实例，互不影响。
type Ledger struct {
	mu          sync.Mutex
	portfolioID string
	positions   map[string]*Position
	orders      []*Order
	seq         int64
}

// NewLedger 创建空账本
func NewLedger(portfolioID string) *Ledger {
	return &Ledger{
		portfolioID: portfolioID,
		positions:   make(map[string]*Position),
	}
}

// PortfolioID 返回所属组合 ID
func (l *Ledger) PortfolioID() string {
	return l.portfolioID
}

// ApplyBuy 应用一笔买入成交
// 无持仓时开仓，已有持仓时按加权平均法合并均价；追加 BUY 流水。
// 返回更新后的持仓快照与流水记录。
func (l *Ledger) ApplyBuy(orderID, symbol string, quantity, price decimal.Decimal) (*Position, *Order, error) {
	return l.applyBuy(orderID, symbol, quantity, price, time.Now())
}

func (l *Ledger) applyBuy(orderID, symbol string, quantity, price decimal.Decimal, at time.Time) (*Position, *Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := validateFill(symbol, quantity, price); err != nil {
		return nil, nil, err
	}

	position, ok := l.positions[symbol]
	if !ok {
		position = NewPosition(l.portfolioID, symbol, quantity, price, at)
		l.positions[symbol] = position
	} else {
		position.addLot(quantity, price, at)
	}

	order := l.appendOrder(orderID, symbol, OrderSideBuy, quantity, price, decimal.Zero, decimal.Zero, at)
	return position.Clone(), order.Clone(), nil
}

// ApplySell 应用一笔卖出成交
// 按卖出时的持仓均价计算已实现盈亏；数量恰好清零时持仓从账本移除，
// 返回的快照为墓碑（Quantity 为零、Status 为 CLOSED）。部分卖出不改变均价。
func (l *Ledger) ApplySell(orderID, symbol string, quantity, price decimal.Decimal) (*Position, *Order, error) {
	return l.applySell(orderID, symbol, quantity, price, time.Now())
}

func (l *Ledger) applySell(orderID, symbol string, quantity, price decimal.Decimal, at time.Time) (*Position, *Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := validateFill(symbol, quantity, price); err != nil {
		return nil, nil, err
	}

	position, ok := l.positions[symbol]
	if !ok || position.Quantity.LessThan(quantity) {
		return nil, nil, ErrInsufficientPosition
	}

	realized := quantity.Mul(price.Sub(position.AverageCost))
	soldCost := quantity.Mul(position.AverageCost)
	realizedPercent := decimal.Zero
	if soldCost.IsPositive() {
		realizedPercent = realized.Div(soldCost).Mul(decimal.NewFromInt(100))
	}

	position.reduce(quantity, at)
	if position.IsClosed() {
		delete(l.positions, symbol)
	}

	order := l.appendOrder(orderID, symbol, OrderSideSell, quantity, price, realized, realizedPercent, at)
	return position.Clone(), order.Clone(), nil
}

// Position 查询持仓快照；无持仓时返回 (nil, false)，这是正常结果而非错误
func (l *Ledger) Position(symbol string) (*Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	position, ok := l.positions[symbol]
	if !ok {
		return nil, false
	}
	return position.Clone(), true
}

// Positions 返回全部持仓快照
func (l *Ledger) Positions() []*Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]*Position, 0, len(l.positions))
	for _, position := range l.positions {
		result = append(result, position.Clone())
	}
	return result
}

// Orders 返回按时间倒序（最近优先）的流水副本；可重复调用，无副作用
func (l *Ledger) Orders() []*Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]*Order, len(l.orders))
	for i, order := range l.orders {
		result[len(l.orders)-1-i] = order.Clone()
	}
	return result
}

// Replay 从空状态按原始顺序重放流水，重建账本
// 账本状态是流水的确定性折叠：重放结果必须与在线状态一致，
// 流水记录沿用原始的 OrderID 与成交时间。
func (l *Ledger) Replay(orders []*Order) error {
	l.mu.Lock()
	l.positions = make(map[string]*Position)
	l.orders = nil
	l.seq = 0
	l.mu.Unlock()

	for _, order := range orders {
		var err error
		if order.IsSell() {
			_, _, err = l.applySell(order.OrderID, order.Symbol, order.Quantity, order.Price, order.CreatedAt)
		} else {
			_, _, err = l.applyBuy(order.OrderID, order.Symbol, order.Quantity, order.Price, order.CreatedAt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// appendOrder 追加流水；调用方必须持有锁
func (l *Ledger) appendOrder(orderID, symbol string, side OrderSide, quantity, price, realized, realizedPercent decimal.Decimal, at time.Time) *Order {
	l.seq++
	order := &Order{
		Seq:                l.seq,
		OrderID:            orderID,
		PortfolioID:        l.portfolioID,
		Symbol:             symbol,
		Side:               side,
		Quantity:           quantity,
		Price:              price,
		RealizedPnL:        realized,
		RealizedPnLPercent: realizedPercent,
		CreatedAt:          at,
	}
	l.orders = append(l.orders, order)
	return order
}

// validateFill 校验成交输入；任何校验失败都发生在状态变更之前
// 数量必须是正整数股数，价格必须为正。
func validateFill(symbol string, quantity, price decimal.Decimal) error {
	if symbol == "" || !quantity.IsPositive() || !quantity.IsInteger() || !price.IsPositive() {
		return ErrInvalidOrderInput
	}
	return nil
}
