package domain

import "errors"

// 领域错误
var (
	// ErrInvalidOrderInput 成交输入非法（标的为空、数量不是正整数、价格不为正）
	ErrInvalidOrderInput = errors.New("invalid order input")
	// ErrInsufficientPosition 卖出数量超过当前持仓
	ErrInsufficientPosition = errors.New("insufficient position")
	// ErrPositionNotFound 持仓不存在
	ErrPositionNotFound = errors.New("position not found")
	// ErrPortfolioNotFound 组合不存在
	ErrPortfolioNotFound = errors.New("portfolio not found")
	// ErrPriceUnavailable 标的当前无可用报价
	ErrPriceUnavailable = errors.New("price unavailable")
)
