package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValuateProfit(t *testing.T) {
	calc := NewValuationCalculator()
	position := NewPosition("PF-1", "AAPL", dec("10"), dec("100"), time.Now())

	valuation := calc.Valuate(position, dec("120"))

	assert.True(t, valuation.MarketValue.Equal(dec("1200")))
	assert.True(t, valuation.CostBasis.Equal(dec("1000")))
	assert.True(t, valuation.UnrealizedPnL.Equal(dec("200")))
	assert.True(t, valuation.UnrealizedPnLPercent.Equal(dec("20")))
}

func TestValuateLoss(t *testing.T) {
	calc := NewValuationCalculator()
	position := NewPosition("PF-1", "AAPL", dec("4"), dec("50"), time.Now())

	valuation := calc.Valuate(position, dec("40"))

	assert.True(t, valuation.UnrealizedPnL.Equal(dec("-40")))
	assert.True(t, valuation.UnrealizedPnLPercent.Equal(dec("-20")))
}

func TestValuateFractionalPrice(t *testing.T) {
	calc := NewValuationCalculator()
	position := NewPosition("PF-1", "BTC", dec("3"), dec("0.1"), time.Now())

	valuation := calc.Valuate(position, dec("0.2"))

	assert.True(t, valuation.MarketValue.Equal(dec("0.6")))
	assert.True(t, valuation.UnrealizedPnL.Equal(dec("0.3")))
	assert.True(t, valuation.UnrealizedPnLPercent.Equal(dec("100")))
}

func TestUnrealizedPnLZeroQuantity(t *testing.T) {
	calc := NewValuationCalculator()
	position := NewPosition("PF-1", "AAPL", dec("10"), dec("100"), time.Now())
	position.reduce(dec("10"), time.Now())

	assert.True(t, calc.UnrealizedPnL(position, dec("120")).IsZero())
}
