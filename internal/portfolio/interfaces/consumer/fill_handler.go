// Package consumer 消费撮合服务发布的成交事件并入账
package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/portfolio/application"
	"github.com/wyfcoding/papertrading/internal/portfolio/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/mq"
)

// FillEvent orders.filled 主题上的成交事件
type FillEvent struct {
	PortfolioID string `json:"portfolio_id"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
}

// FillHandler 成交事件处理器
type FillHandler struct {
	service *application.PortfolioService
}

// NewFillHandler 创建成交事件处理器
func NewFillHandler(service *application.PortfolioService) *FillHandler {
	return &FillHandler{service: service}
}

// Handle 处理单条成交事件
// 业务层拒绝（输入非法、持仓不足）视为已消费，不重试；基础设施错误上抛。
func (h *FillHandler) Handle(ctx context.Context, msg *mq.Message) error {
	var event FillEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Error(ctx, "failed to unmarshal fill event", "offset", msg.Offset, "error", err)
		return nil
	}

	quantity, err := decimal.NewFromString(event.Quantity)
	if err != nil {
		logger.Error(ctx, "invalid quantity in fill event", "offset", msg.Offset, "error", err)
		return nil
	}
	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		logger.Error(ctx, "invalid price in fill event", "offset", msg.Offset, "error", err)
		return nil
	}

	_, err = h.service.ApplyFill(ctx, application.ApplyFillCommand{
		PortfolioID: event.PortfolioID,
		Symbol:      event.Symbol,
		Side:        event.Side,
		Quantity:    quantity,
		Price:       price,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrderInput) || errors.Is(err, domain.ErrInsufficientPosition) {
			logger.Warn(ctx, "fill event rejected",
				"portfolio_id", event.PortfolioID, "symbol", event.Symbol, "error", err)
			return nil
		}
		return err
	}
	return nil
}
