package application

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
)

type memoryQuoteRepository struct {
	mu     sync.Mutex
	quotes map[string]*domain.Quote
}

func newMemoryQuoteRepository() *memoryQuoteRepository {
	return &memoryQuoteRepository{quotes: make(map[string]*domain.Quote)}
}

func (r *memoryQuoteRepository) Save(ctx context.Context, quote *domain.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes[quote.Symbol] = quote
	return nil
}

func (r *memoryQuoteRepository) GetLatest(ctx context.Context, symbol string) (*domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quotes[symbol], nil
}

func TestSaveQuoteAndGetQuote(t *testing.T) {
	service := NewMarketDataService(newMemoryQuoteRepository(), nil)
	ctx := context.Background()

	err := service.SaveQuote(ctx, SaveQuoteCommand{
		Symbol: "AAPL",
		Price:  decimal.RequireFromString("123.45"),
	})
	require.NoError(t, err)

	quote, err := service.GetQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("123.45")))
	assert.False(t, quote.UpdatedAt.IsZero())
}

func TestSaveQuoteOverwritesPrevious(t *testing.T) {
	service := NewMarketDataService(newMemoryQuoteRepository(), nil)
	ctx := context.Background()

	require.NoError(t, service.SaveQuote(ctx, SaveQuoteCommand{Symbol: "AAPL", Price: decimal.RequireFromString("100")}))
	require.NoError(t, service.SaveQuote(ctx, SaveQuoteCommand{Symbol: "AAPL", Price: decimal.RequireFromString("105")}))

	quote, err := service.GetQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("105")))
}

func TestSaveQuoteRejectsInvalid(t *testing.T) {
	service := NewMarketDataService(newMemoryQuoteRepository(), nil)
	ctx := context.Background()

	err := service.SaveQuote(ctx, SaveQuoteCommand{Symbol: "", Price: decimal.RequireFromString("100")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuote)

	err = service.SaveQuote(ctx, SaveQuoteCommand{Symbol: "AAPL", Price: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidQuote)
}

func TestGetQuotesSkipsMissingSymbols(t *testing.T) {
	service := NewMarketDataService(newMemoryQuoteRepository(), nil)
	ctx := context.Background()

	require.NoError(t, service.SaveQuote(ctx, SaveQuoteCommand{Symbol: "AAPL", Price: decimal.RequireFromString("100")}))
	require.NoError(t, service.SaveQuote(ctx, SaveQuoteCommand{Symbol: "MSFT", Price: decimal.RequireFromString("250")}))

	quotes, err := service.GetQuotes(ctx, []string{"AAPL", "UNKNOWN", "MSFT"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.Equal(t, "MSFT", quotes[1].Symbol)
}

func TestGetQuoteNotFound(t *testing.T) {
	service := NewMarketDataService(newMemoryQuoteRepository(), nil)

	_, err := service.GetQuote(context.Background(), "UNKNOWN")
	assert.ErrorIs(t, err, domain.ErrQuoteNotFound)
}
