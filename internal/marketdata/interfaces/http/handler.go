// Package http 提供行情服务的 HTTP 接口
package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/papertrading/internal/marketdata/application"
	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
)

// MarketDataHandler HTTP 处理器
type MarketDataHandler struct {
	service *application.MarketDataService
}

// NewMarketDataHandler 创建 HTTP 处理器
func NewMarketDataHandler(service *application.MarketDataService) *MarketDataHandler {
	return &MarketDataHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *MarketDataHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/quotes", h.GetQuotes)
		api.GET("/quotes/:symbol", h.GetQuote)
		api.PUT("/quotes/:symbol", h.SaveQuote)
	}
}

// GetQuotes 批量获取最新报价，symbols 参数为逗号分隔的标的列表
func (h *MarketDataHandler) GetQuotes(c *gin.Context) {
	raw := c.Query("symbols")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required"})
		return
	}

	quotes, err := h.service.GetQuotes(c.Request.Context(), strings.Split(raw, ","))
	if err != nil {
		logger.Error(c.Request.Context(), "failed to get quotes", "symbols", raw, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// GetQuote 获取最新报价
func (h *MarketDataHandler) GetQuote(c *gin.Context) {
	quote, err := h.service.GetQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		if errors.Is(err, domain.ErrQuoteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "failed to get quote", "symbol", c.Param("symbol"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, quote)
}

// SaveQuoteRequest 报价写入请求
type SaveQuoteRequest struct {
	Price string `json:"price" binding:"required"`
}

// SaveQuote 写入最新报价
func (h *MarketDataHandler) SaveQuote(c *gin.Context) {
	var req SaveQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}

	err = h.service.SaveQuote(c.Request.Context(), application.SaveQuoteCommand{
		Symbol: c.Param("symbol"),
		Price:  price,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuote) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "failed to save quote", "symbol", c.Param("symbol"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
