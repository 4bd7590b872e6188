// Package application 实现行情服务的应用层
package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/metrics"
)

// SaveQuoteCommand 写入报价的命令
type SaveQuoteCommand struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp int64
}

// QuoteDTO 报价视图
type QuoteDTO struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MarketDataService 行情应用服务
type MarketDataService struct {
	quotes  domain.QuoteRepository
	metrics *metrics.Metrics
}

// NewMarketDataService 创建行情应用服务
func NewMarketDataService(quotes domain.QuoteRepository, m *metrics.Metrics) *MarketDataService {
	return &MarketDataService{quotes: quotes, metrics: m}
}

// SaveQuote 保存最新报价
func (s *MarketDataService) SaveQuote(ctx context.Context, cmd SaveQuoteCommand) error {
	at := time.Now()
	if cmd.Timestamp > 0 {
		at = time.UnixMilli(cmd.Timestamp)
	}

	quote, err := domain.NewQuote(cmd.Symbol, cmd.Price, at)
	if err != nil {
		return err
	}

	if err := s.quotes.Save(ctx, quote); err != nil {
		logger.Error(ctx, "failed to save quote", "symbol", cmd.Symbol, "error", err)
		return err
	}

	if s.metrics != nil {
		s.metrics.QuotesIngested.Inc()
	}
	return nil
}

// GetQuote 获取最新报价
func (s *MarketDataService) GetQuote(ctx context.Context, symbol string) (*QuoteDTO, error) {
	quote, err := s.quotes.GetLatest(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, domain.ErrQuoteNotFound
	}
	return &QuoteDTO{
		Symbol:    quote.Symbol,
		Price:     quote.Price,
		UpdatedAt: quote.UpdatedAt,
	}, nil
}

// GetQuotes 批量获取最新报价；无报价的标的不出现在结果中
func (s *MarketDataService) GetQuotes(ctx context.Context, symbols []string) ([]*QuoteDTO, error) {
	result := make([]*QuoteDTO, 0, len(symbols))
	for _, symbol := range symbols {
		quote, err := s.quotes.GetLatest(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if quote == nil {
			continue
		}
		result = append(result, &QuoteDTO{
			Symbol:    quote.Symbol,
			Price:     quote.Price,
			UpdatedAt: quote.UpdatedAt,
		})
	}
	return result, nil
}
