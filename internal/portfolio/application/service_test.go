package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/papertrading/internal/portfolio/domain"
	"github.com/wyfcoding/papertrading/internal/portfolio/infrastructure/persistence/memory"
	"github.com/wyfcoding/papertrading/internal/portfolio/infrastructure/pricing"
)

type fixture struct {
	service   *PortfolioService
	positions *memory.PositionRepository
	orders    *memory.OrderRepository
	publisher *memory.EventPublisher
	prices    *pricing.StaticPriceProvider
}

func newFixture() *fixture {
	positions := memory.NewPositionRepository()
	orders := memory.NewOrderRepository()
	publisher := memory.NewEventPublisher()
	prices := pricing.NewStaticPriceProvider(nil)
	tx := memory.NewTxManager(positions, orders, publisher)
	service := NewPortfolioService(positions, orders, prices, publisher, tx, nil)
	return &fixture{
		service:   service,
		positions: positions,
		orders:    orders,
		publisher: publisher,
		prices:    prices,
	}
}

func buy(symbol, quantity, price string) ApplyFillCommand {
	return ApplyFillCommand{
		PortfolioID: "PF-1",
		Symbol:      symbol,
		Side:        "BUY",
		Quantity:    decimal.RequireFromString(quantity),
		Price:       decimal.RequireFromString(price),
	}
}

func sell(symbol, quantity, price string) ApplyFillCommand {
	cmd := buy(symbol, quantity, price)
	cmd.Side = "SELL"
	return cmd
}

func TestApplyFillPersistsPositionOrderAndEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	result, err := f.service.ApplyFill(ctx, buy("AAPL", "10", "100"))
	require.NoError(t, err)

	assert.NotEmpty(t, result.Order.OrderID)
	assert.True(t, result.Position.Quantity.Equal(decimal.RequireFromString("10")))

	stored, err := f.positions.Get(ctx, "PF-1", "AAPL")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.AverageCost.Equal(decimal.RequireFromString("100")))

	history, err := f.orders.ListChronological(ctx, "PF-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result.Order.OrderID, history[0].OrderID)

	published := f.publisher.Events()
	require.Len(t, published, 2)
	assert.Equal(t, domain.EventTypeFillApplied, published[0].EventType)
	assert.Equal(t, domain.EventTypePositionOpened, published[1].EventType)
}

func TestApplyFillSellClosesAndDeletesPosition(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.ApplyFill(ctx, buy("AAPL", "10", "100"))
	require.NoError(t, err)

	result, err := f.service.ApplyFill(ctx, sell("AAPL", "10", "110"))
	require.NoError(t, err)
	assert.True(t, result.Order.RealizedPnL.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, string(domain.PositionStatusClosed), result.Position.Status)

	stored, err := f.positions.Get(ctx, "PF-1", "AAPL")
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, err = f.service.GetPosition(ctx, "PF-1", "AAPL")
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)

	published := f.publisher.Events()
	require.NotEmpty(t, published)
	assert.Equal(t, domain.EventTypePositionClosed, published[len(published)-1].EventType)
}

func TestApplyFillRejectsInvalidSide(t *testing.T) {
	f := newFixture()

	cmd := buy("AAPL", "10", "100")
	cmd.Side = "HOLD"
	_, err := f.service.ApplyFill(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderInput)
}

func TestApplyFillOversellLeavesNoTrace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.ApplyFill(ctx, buy("AAPL", "10", "100"))
	require.NoError(t, err)

	_, err = f.service.ApplyFill(ctx, sell("AAPL", "11", "120"))
	assert.ErrorIs(t, err, domain.ErrInsufficientPosition)

	history, err := f.orders.ListChronological(ctx, "PF-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	position, err := f.service.GetPosition(ctx, "PF-1", "AAPL")
	require.NoError(t, err)
	assert.True(t, position.Quantity.Equal(decimal.RequireFromString("10")))
}

func TestServiceRebuildsLedgerFromHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.ApplyFill(ctx, buy("AAPL", "10", "100"))
	require.NoError(t, err)
	_, err = f.service.ApplyFill(ctx, buy("AAPL", "5", "110"))
	require.NoError(t, err)
	_, err = f.service.ApplyFill(ctx, sell("AAPL", "8", "120"))
	require.NoError(t, err)

	// 新实例共享同一订单历史，重放后状态一致
	rebuilt := NewPortfolioService(f.positions, f.orders, f.prices, f.publisher, memory.NewTxManager(), nil)
	position, err := rebuilt.GetPosition(ctx, "PF-1", "AAPL")
	require.NoError(t, err)

	wantAvg := decimal.RequireFromString("1550").Div(decimal.RequireFromString("15"))
	assert.True(t, position.Quantity.Equal(decimal.RequireFromString("7")))
	assert.True(t, position.AverageCost.Equal(wantAvg))

	// 重放后的账本只剩 7 股可卖
	_, err = rebuilt.ApplyFill(ctx, sell("AAPL", "8", "120"))
	assert.ErrorIs(t, err, domain.ErrInsufficientPosition)

	closed, err := rebuilt.ApplyFill(ctx, sell("AAPL", "7", "120"))
	require.NoError(t, err)
	assert.Equal(t, string(domain.PositionStatusClosed), closed.Position.Status)
}

func TestGetPositionReadsCommittedState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// 持仓读取直接走仓储，不依赖内存账本
	seeded := domain.NewPosition("PF-2", "TSLA",
		decimal.RequireFromString("3"), decimal.RequireFromString("400"), time.Now())
	require.NoError(t, f.positions.Save(ctx, seeded))

	position, err := f.service.GetPosition(ctx, "PF-2", "TSLA")
	require.NoError(t, err)
	assert.True(t, position.Quantity.Equal(decimal.RequireFromString("3")))

	listed, err := f.service.ListPositions(ctx, "PF-2")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "TSLA", listed[0].Symbol)
}

// flakyOrderRepository 在 failNext 置位时让下一次 Append 失败，模拟持久化失败
type flakyOrderRepository struct {
	*memory.OrderRepository
	failNext bool
}

var errAppendFailed = errors.New("append failed")

func (r *flakyOrderRepository) Append(ctx context.Context, order *domain.Order) error {
	if r.failNext {
		r.failNext = false
		return errAppendFailed
	}
	return r.OrderRepository.Append(ctx, order)
}

func TestApplyFillPersistFailureEvictsLedger(t *testing.T) {
	positions := memory.NewPositionRepository()
	orders := &flakyOrderRepository{OrderRepository: memory.NewOrderRepository()}
	publisher := memory.NewEventPublisher()
	tx := memory.NewTxManager(positions, orders.OrderRepository, publisher)
	service := NewPortfolioService(positions, orders,
		pricing.NewStaticPriceProvider(nil), publisher, tx, nil)
	ctx := context.Background()

	_, err := service.ApplyFill(ctx, buy("AAPL", "10", "100"))
	require.NoError(t, err)

	orders.failNext = true
	_, err = service.ApplyFill(ctx, buy("AAPL", "5", "200"))
	assert.ErrorIs(t, err, errAppendFailed)

	// 事务回滚且缓存账本被废弃，失败的成交不留痕迹
	position, err := service.GetPosition(ctx, "PF-1", "AAPL")
	require.NoError(t, err)
	assert.True(t, position.Quantity.Equal(decimal.RequireFromString("10")))
	assert.True(t, position.AverageCost.Equal(decimal.RequireFromString("100")))

	history, err := orders.ListChronological(ctx, "PF-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// 废弃后的账本从流水重放，后续成交基于失败前的状态
	result, err := service.ApplyFill(ctx, buy("AAPL", "5", "100"))
	require.NoError(t, err)
	assert.True(t, result.Position.Quantity.Equal(decimal.RequireFromString("15")))
	assert.True(t, result.Position.AverageCost.Equal(decimal.RequireFromString("100")))
}

func TestListOrdersPagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.service.ApplyFill(ctx, buy("AAPL", "1", "100"))
		require.NoError(t, err)
	}

	page, err := f.service.ListOrders(ctx, "PF-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Orders, 2)

	last, err := f.service.ListOrders(ctx, "PF-1", 3, 2)
	require.NoError(t, err)
	assert.Len(t, last.Orders, 1)
}

func TestGetValuationUsesCurrentPrice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.ApplyFill(ctx, buy("AAPL", "10", "100"))
	require.NoError(t, err)

	f.prices.SetPrice("AAPL", decimal.RequireFromString("120"))

	valuation, err := f.service.GetValuation(ctx, "PF-1", "AAPL")
	require.NoError(t, err)
	assert.True(t, valuation.PriceAvailable)
	assert.True(t, valuation.MarketValue.Equal(decimal.RequireFromString("1200")))
	assert.True(t, valuation.UnrealizedPnL.Equal(decimal.RequireFromString("200")))
}

func TestGetValuationFallsBackToCostWithoutQuote(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.ApplyFill(ctx, buy("AAPL", "10", "100"))
	require.NoError(t, err)

	valuation, err := f.service.GetValuation(ctx, "PF-1", "AAPL")
	require.NoError(t, err)
	assert.False(t, valuation.PriceAvailable)
	assert.True(t, valuation.MarketValue.Equal(decimal.RequireFromString("1000")))
	assert.True(t, valuation.UnrealizedPnL.IsZero())
}

func TestGetPortfolioValuationAggregates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.ApplyFill(ctx, buy("AAPL", "10", "100"))
	require.NoError(t, err)
	_, err = f.service.ApplyFill(ctx, buy("MSFT", "2", "250"))
	require.NoError(t, err)

	f.prices.SetPrice("AAPL", decimal.RequireFromString("110"))
	f.prices.SetPrice("MSFT", decimal.RequireFromString("300"))

	valuation, err := f.service.GetPortfolioValuation(ctx, "PF-1")
	require.NoError(t, err)
	assert.Len(t, valuation.Positions, 2)
	assert.True(t, valuation.TotalCostBasis.Equal(decimal.RequireFromString("1500")))
	assert.True(t, valuation.TotalMarketValue.Equal(decimal.RequireFromString("1700")))
	assert.True(t, valuation.TotalUnrealizedPnL.Equal(decimal.RequireFromString("200")))
}
