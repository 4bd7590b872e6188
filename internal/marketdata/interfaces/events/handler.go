// Package events 消费 market.price 主题上的价格事件
package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/marketdata/application"
	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/mq"
)

// PriceEvent market.price 主题上的价格事件
type PriceEvent struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// PriceEventHandler 价格事件处理器
type PriceEventHandler struct {
	service *application.MarketDataService
}

// NewPriceEventHandler 创建价格事件处理器
func NewPriceEventHandler(service *application.MarketDataService) *PriceEventHandler {
	return &PriceEventHandler{service: service}
}

// Handle 处理单条价格事件
// 格式非法的消息记录日志后跳过，不阻塞消费进度。
func (h *PriceEventHandler) Handle(ctx context.Context, msg *mq.Message) error {
	var event PriceEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Error(ctx, "failed to unmarshal price event", "offset", msg.Offset, "error", err)
		return nil
	}

	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		logger.Error(ctx, "invalid price in event", "symbol", event.Symbol, "offset", msg.Offset, "error", err)
		return nil
	}

	err = h.service.SaveQuote(ctx, application.SaveQuoteCommand{
		Symbol:    event.Symbol,
		Price:     price,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuote) {
			logger.Warn(ctx, "price event rejected", "symbol", event.Symbol, "error", err)
			return nil
		}
		return err
	}
	return nil
}
