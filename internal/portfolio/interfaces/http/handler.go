// Package http 提供组合账本服务的 HTTP 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/papertrading/internal/portfolio/application"
	"github.com/wyfcoding/papertrading/internal/portfolio/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
)

// PortfolioHandler HTTP 处理器
type PortfolioHandler struct {
	service *application.PortfolioService
}

// NewPortfolioHandler 创建 HTTP 处理器
func NewPortfolioHandler(service *application.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *PortfolioHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/portfolios/:id/fills", h.ApplyFill)
		api.GET("/portfolios/:id/positions", h.ListPositions)
		api.GET("/portfolios/:id/positions/:symbol", h.GetPosition)
		api.GET("/portfolios/:id/positions/:symbol/valuation", h.GetValuation)
		api.GET("/portfolios/:id/valuation", h.GetPortfolioValuation)
		api.GET("/portfolios/:id/orders", h.ListOrders)
	}
}

// ApplyFillRequest 成交入账请求
type ApplyFillRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Side     string `json:"side" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
	Price    string `json:"price" binding:"required"`
}

// ApplyFill 入账一笔成交
func (h *PortfolioHandler) ApplyFill(c *gin.Context) {
	var req ApplyFillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}

	result, err := h.service.ApplyFill(c.Request.Context(), application.ApplyFillCommand{
		PortfolioID: c.Param("id"),
		Symbol:      req.Symbol,
		Side:        req.Side,
		Quantity:    quantity,
		Price:       price,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListPositions 获取组合全部持仓
func (h *PortfolioHandler) ListPositions(c *gin.Context) {
	positions, err := h.service.ListPositions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

// GetPosition 获取指定标的持仓
func (h *PortfolioHandler) GetPosition(c *gin.Context) {
	position, err := h.service.GetPosition(c.Request.Context(), c.Param("id"), c.Param("symbol"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, position)
}

// GetValuation 获取指定持仓估值
func (h *PortfolioHandler) GetValuation(c *gin.Context) {
	valuation, err := h.service.GetValuation(c.Request.Context(), c.Param("id"), c.Param("symbol"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}

// GetPortfolioValuation 获取组合整体估值
func (h *PortfolioHandler) GetPortfolioValuation(c *gin.Context) {
	valuation, err := h.service.GetPortfolioValuation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}

// ListOrders 分页获取成交流水
func (h *PortfolioHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	orders, err := h.service.ListOrders(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// writeError 将领域错误映射为 HTTP 状态码
func (h *PortfolioHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidOrderInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPositionNotFound), errors.Is(err, domain.ErrPortfolioNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientPosition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
