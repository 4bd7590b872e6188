package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/papertrading/internal/portfolio/application"
	"github.com/wyfcoding/papertrading/internal/portfolio/infrastructure/persistence/memory"
	"github.com/wyfcoding/papertrading/internal/portfolio/infrastructure/pricing"
	"github.com/wyfcoding/papertrading/pkg/mq"
)

func newTestService() *application.PortfolioService {
	return application.NewPortfolioService(
		memory.NewPositionRepository(),
		memory.NewOrderRepository(),
		pricing.NewStaticPriceProvider(nil),
		memory.NewEventPublisher(),
		memory.NewTxManager(),
		nil,
	)
}

func message(t *testing.T, event FillEvent) *mq.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return &mq.Message{Topic: "orders.filled", Value: payload}
}

func TestFillHandlerAppliesFill(t *testing.T) {
	service := newTestService()
	handler := NewFillHandler(service)
	ctx := context.Background()

	err := handler.Handle(ctx, message(t, FillEvent{
		PortfolioID: "PF-1", Symbol: "AAPL", Side: "BUY", Quantity: "10", Price: "100",
	}))
	require.NoError(t, err)

	position, err := service.GetPosition(ctx, "PF-1", "AAPL")
	require.NoError(t, err)
	assert.True(t, position.Quantity.Equal(decimal.RequireFromString("10")))
}

func TestFillHandlerSkipsMalformedMessage(t *testing.T) {
	handler := NewFillHandler(newTestService())

	err := handler.Handle(context.Background(), &mq.Message{Value: []byte("not json")})
	assert.NoError(t, err)
}

func TestFillHandlerSkipsRejectedFill(t *testing.T) {
	service := newTestService()
	handler := NewFillHandler(service)
	ctx := context.Background()

	// 卖出无持仓的标的属于业务拒绝，消息视为已消费
	err := handler.Handle(ctx, message(t, FillEvent{
		PortfolioID: "PF-1", Symbol: "AAPL", Side: "SELL", Quantity: "5", Price: "100",
	}))
	assert.NoError(t, err)
}
