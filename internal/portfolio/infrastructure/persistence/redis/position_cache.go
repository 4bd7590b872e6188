// Package redis 提供持仓仓储的 Redis 读缓存装饰器
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/papertrading/internal/portfolio/domain"
	"github.com/wyfcoding/papertrading/pkg/cache"
	"github.com/wyfcoding/papertrading/pkg/logger"
)

// jsonCache 持仓缓存依赖的缓存操作子集
type jsonCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedPositionRepository 持仓仓储的缓存装饰器
// 单仓查询先读 Redis，未命中时回源底层仓储并回填；写入与删除
// 直接穿透到底层仓储并使缓存键失效。列表查询不走缓存。
type CachedPositionRepository struct {
	inner domain.PositionRepository
	cache jsonCache
	ttl   time.Duration
}

// NewCachedPositionRepository 创建持仓缓存装饰器
func NewCachedPositionRepository(inner domain.PositionRepository, c *cache.RedisCache) *CachedPositionRepository {
	return &CachedPositionRepository{
		inner: inner,
		cache: c,
		ttl:   15 * time.Minute,
	}
}

// Save 写入底层仓储并失效缓存
func (r *CachedPositionRepository) Save(ctx context.Context, position *domain.Position) error {
	if err := r.inner.Save(ctx, position); err != nil {
		return err
	}
	r.invalidate(ctx, position.PortfolioID, position.Symbol)
	return nil
}

// Delete 删除底层记录并失效缓存
func (r *CachedPositionRepository) Delete(ctx context.Context, portfolioID, symbol string) error {
	if err := r.inner.Delete(ctx, portfolioID, symbol); err != nil {
		return err
	}
	r.invalidate(ctx, portfolioID, symbol)
	return nil
}

// Get 先读缓存，未命中时回源并回填
func (r *CachedPositionRepository) Get(ctx context.Context, portfolioID, symbol string) (*domain.Position, error) {
	key := r.key(portfolioID, symbol)

	var cached domain.Position
	if err := r.cache.GetJSON(ctx, key, &cached); err == nil && cached.Symbol != "" {
		return &cached, nil
	}

	position, err := r.inner.Get(ctx, portfolioID, symbol)
	if err != nil || position == nil {
		return position, err
	}

	if err := r.cache.SetJSON(ctx, key, position, r.ttl); err != nil {
		logger.Warn(ctx, "failed to cache position", "key", key, "error", err)
	}
	return position, nil
}

// ListByPortfolio 直接回源底层仓储
func (r *CachedPositionRepository) ListByPortfolio(ctx context.Context, portfolioID string) ([]*domain.Position, error) {
	return r.inner.ListByPortfolio(ctx, portfolioID)
}

func (r *CachedPositionRepository) invalidate(ctx context.Context, portfolioID, symbol string) {
	if err := r.cache.Delete(ctx, r.key(portfolioID, symbol)); err != nil {
		logger.Warn(ctx, "failed to invalidate position cache", "portfolio_id", portfolioID, "symbol", symbol, "error", err)
	}
}

func (r *CachedPositionRepository) key(portfolioID, symbol string) string {
	return fmt.Sprintf("position:%s:%s", portfolioID, symbol)
}
