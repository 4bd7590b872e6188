package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLedgerApplyBuyOpensPosition(t *testing.T) {
	ledger := NewLedger("PF-1")

	position, order, err := ledger.ApplyBuy("ORD-1", "AAPL", dec("10"), dec("100"))
	require.NoError(t, err)

	assert.Equal(t, "AAPL", position.Symbol)
	assert.True(t, position.Quantity.Equal(dec("10")))
	assert.True(t, position.AverageCost.Equal(dec("100")))
	assert.Equal(t, PositionStatusOpen, position.Status)

	assert.Equal(t, "ORD-1", order.OrderID)
	assert.Equal(t, OrderSideBuy, order.Side)
	assert.Equal(t, int64(1), order.Seq)
	assert.True(t, order.RealizedPnL.IsZero())
}

func TestLedgerApplyBuyMergesWeightedAverage(t *testing.T) {
	ledger := NewLedger("PF-1")

	_, _, err := ledger.ApplyBuy("ORD-1", "AAPL", dec("10"), dec("100"))
	require.NoError(t, err)
	position, _, err := ledger.ApplyBuy("ORD-2", "AAPL", dec("10"), dec("200"))
	require.NoError(t, err)

	assert.True(t, position.Quantity.Equal(dec("20")))
	assert.True(t, position.AverageCost.Equal(dec("150")), "avg cost = %s", position.AverageCost)
}

func TestLedgerApplySellRealizesPnL(t *testing.T) {
	ledger := NewLedger("PF-1")
	_, _, err := ledger.ApplyBuy("ORD-1", "AAPL", dec("10"), dec("100"))
	require.NoError(t, err)
	_, _, err = ledger.ApplyBuy("ORD-2", "AAPL", dec("10"), dec("200"))
	require.NoError(t, err)

	position, order, err := ledger.ApplySell("ORD-3", "AAPL", dec("5"), dec("300"))
	require.NoError(t, err)

	// realized = 5 * (300 - 150) = 750
	assert.True(t, order.RealizedPnL.Equal(dec("750")), "realized = %s", order.RealizedPnL)
	// percent = 750 / (5*150) * 100 = 100
	assert.True(t, order.RealizedPnLPercent.Equal(dec("100")))

	// 部分卖出不改变均价
	assert.True(t, position.Quantity.Equal(dec("15")))
	assert.True(t, position.AverageCost.Equal(dec("150")))
	assert.Equal(t, PositionStatusOpen, position.Status)
}

func TestLedgerApplySellFullCloseRemovesPosition(t *testing.T) {
	ledger := NewLedger("PF-1")
	_, _, err := ledger.ApplyBuy("ORD-1", "AAPL", dec("10"), dec("100"))
	require.NoError(t, err)

	position, order, err := ledger.ApplySell("ORD-2", "AAPL", dec("10"), dec("90"))
	require.NoError(t, err)

	assert.True(t, position.Quantity.IsZero())
	assert.Equal(t, PositionStatusClosed, position.Status)
	assert.True(t, order.RealizedPnL.Equal(dec("-100")))

	_, ok := ledger.Position("AAPL")
	assert.False(t, ok)
	assert.Empty(t, ledger.Positions())

	// 清仓后重新买入视为新开仓
	reopened, _, err := ledger.ApplyBuy("ORD-3", "AAPL", dec("4"), dec("80"))
	require.NoError(t, err)
	assert.True(t, reopened.AverageCost.Equal(dec("80")))
}

func TestLedgerApplySellInsufficientLeavesStateUnchanged(t *testing.T) {
	ledger := NewLedger("PF-1")
	_, _, err := ledger.ApplyBuy("ORD-1", "AAPL", dec("10"), dec("100"))
	require.NoError(t, err)

	_, _, err = ledger.ApplySell("ORD-2", "AAPL", dec("11"), dec("120"))
	assert.ErrorIs(t, err, ErrInsufficientPosition)

	_, _, err = ledger.ApplySell("ORD-3", "MSFT", dec("1"), dec("120"))
	assert.ErrorIs(t, err, ErrInsufficientPosition)

	position, ok := ledger.Position("AAPL")
	require.True(t, ok)
	assert.True(t, position.Quantity.Equal(dec("10")))
	assert.True(t, position.AverageCost.Equal(dec("100")))
	assert.Len(t, ledger.Orders(), 1)
}

func TestLedgerRejectsInvalidFill(t *testing.T) {
	ledger := NewLedger("PF-1")

	tests := []struct {
		name     string
		symbol   string
		quantity string
		price    string
	}{
		{"empty symbol", "", "10", "100"},
		{"zero quantity", "AAPL", "0", "100"},
		{"negative quantity", "AAPL", "-5", "100"},
		{"fractional quantity", "AAPL", "1.5", "100"},
		{"zero price", "AAPL", "10", "0"},
		{"negative price", "AAPL", "10", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ledger.ApplyBuy("ORD-X", tt.symbol, dec(tt.quantity), dec(tt.price))
			assert.ErrorIs(t, err, ErrInvalidOrderInput)
			_, _, err = ledger.ApplySell("ORD-X", tt.symbol, dec(tt.quantity), dec(tt.price))
			assert.ErrorIs(t, err, ErrInvalidOrderInput)
		})
	}

	assert.Empty(t, ledger.Positions())
	assert.Empty(t, ledger.Orders())
}

func TestLedgerMixedScenario(t *testing.T) {
	ledger := NewLedger("PF-1")

	_, _, err := ledger.ApplyBuy("ORD-1", "AAPL", dec("10"), dec("100"))
	require.NoError(t, err)
	_, _, err = ledger.ApplyBuy("ORD-2", "AAPL", dec("5"), dec("110"))
	require.NoError(t, err)

	// avg = (10*100 + 5*110) / 15 = 1550/15
	wantAvg := dec("1550").Div(dec("15"))
	position, ok := ledger.Position("AAPL")
	require.True(t, ok)
	assert.True(t, position.AverageCost.Equal(wantAvg), "avg cost = %s", position.AverageCost)

	_, order, err := ledger.ApplySell("ORD-3", "AAPL", dec("8"), dec("120"))
	require.NoError(t, err)

	wantRealized := dec("8").Mul(dec("120").Sub(wantAvg))
	assert.True(t, order.RealizedPnL.Equal(wantRealized), "realized = %s", order.RealizedPnL)

	position, ok = ledger.Position("AAPL")
	require.True(t, ok)
	assert.True(t, position.Quantity.Equal(dec("7")))
	assert.True(t, position.AverageCost.Equal(wantAvg))
}

func TestLedgerOrdersReverseChronological(t *testing.T) {
	ledger := NewLedger("PF-1")
	for i := 1; i <= 3; i++ {
		_, _, err := ledger.ApplyBuy(fmt.Sprintf("ORD-%d", i), "AAPL", dec("1"), dec("100"))
		require.NoError(t, err)
	}

	orders := ledger.Orders()
	require.Len(t, orders, 3)
	assert.Equal(t, "ORD-3", orders[0].OrderID)
	assert.Equal(t, "ORD-1", orders[2].OrderID)
	assert.Equal(t, int64(3), orders[0].Seq)

	// 重复读取无副作用
	again := ledger.Orders()
	require.Len(t, again, 3)
	assert.Equal(t, orders[0].OrderID, again[0].OrderID)
}

func TestLedgerSnapshotsAreIsolated(t *testing.T) {
	ledger := NewLedger("PF-1")
	_, _, err := ledger.ApplyBuy("ORD-1", "AAPL", dec("10"), dec("100"))
	require.NoError(t, err)

	snapshot, ok := ledger.Position("AAPL")
	require.True(t, ok)
	snapshot.Quantity = dec("999")

	fresh, ok := ledger.Position("AAPL")
	require.True(t, ok)
	assert.True(t, fresh.Quantity.Equal(dec("10")))
}

func TestLedgerReplayRebuildsState(t *testing.T) {
	ledger := NewLedger("PF-1")
	_, _, err := ledger.ApplyBuy("ORD-1", "AAPL", dec("10"), dec("100"))
	require.NoError(t, err)
	_, _, err = ledger.ApplyBuy("ORD-2", "AAPL", dec("5"), dec("110"))
	require.NoError(t, err)
	_, _, err = ledger.ApplySell("ORD-3", "AAPL", dec("8"), dec("120"))
	require.NoError(t, err)
	_, _, err = ledger.ApplyBuy("ORD-4", "MSFT", dec("3"), dec("250"))
	require.NoError(t, err)

	var history []*Order
	orders := ledger.Orders()
	for i := len(orders) - 1; i >= 0; i-- {
		history = append(history, orders[i])
	}

	rebuilt := NewLedger("PF-1")
	require.NoError(t, rebuilt.Replay(history))

	want := ledger.Positions()
	got := rebuilt.Positions()
	require.Len(t, got, len(want))

	for _, w := range want {
		g, ok := rebuilt.Position(w.Symbol)
		require.True(t, ok, "missing position %s after replay", w.Symbol)
		assert.True(t, g.Quantity.Equal(w.Quantity))
		assert.True(t, g.AverageCost.Equal(w.AverageCost))
	}

	rebuiltOrders := rebuilt.Orders()
	require.Len(t, rebuiltOrders, len(orders))
	for i := range orders {
		assert.Equal(t, orders[i].OrderID, rebuiltOrders[i].OrderID)
		assert.Equal(t, orders[i].Seq, rebuiltOrders[i].Seq)
		assert.True(t, orders[i].RealizedPnL.Equal(rebuiltOrders[i].RealizedPnL))
	}
}

func TestLedgerReplayKeepsOriginalTimestamps(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	history := []*Order{
		{OrderID: "ORD-1", PortfolioID: "PF-1", Symbol: "AAPL", Side: OrderSideBuy,
			Quantity: dec("10"), Price: dec("100"), CreatedAt: base},
		{OrderID: "ORD-2", PortfolioID: "PF-1", Symbol: "AAPL", Side: OrderSideSell,
			Quantity: dec("4"), Price: dec("110"), CreatedAt: base.Add(time.Hour)},
	}

	rebuilt := NewLedger("PF-1")
	require.NoError(t, rebuilt.Replay(history))

	orders := rebuilt.Orders()
	require.Len(t, orders, 2)
	assert.True(t, orders[0].CreatedAt.Equal(base.Add(time.Hour)))
	assert.True(t, orders[1].CreatedAt.Equal(base))

	position, ok := rebuilt.Position("AAPL")
	require.True(t, ok)
	assert.True(t, position.OpenedAt.Equal(base))
	assert.True(t, position.UpdatedAt.Equal(base.Add(time.Hour)))
}
