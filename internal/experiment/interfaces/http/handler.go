package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pricelab/internal/experiment/application"
	"github.com/wyfcoding/pricelab/internal/experiment/domain"
)

// ExperimentHandler 实验服务 HTTP 处理器
type ExperimentHandler struct {
	app          *application.ExperimentService
	settingsRepo domain.RotationSettingsRepository
}

// NewExperimentHandler 创建 HTTP 处理器实例
func NewExperimentHandler(app *application.ExperimentService, settingsRepo domain.RotationSettingsRepository) *ExperimentHandler {
	return &ExperimentHandler{app: app, settingsRepo: settingsRepo}
}

// RegisterRoutes 将处理器方法绑定到 Gin 路由引擎
func (h *ExperimentHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/prices/resolve", h.ResolvePrice)
		api.POST("/rotations/run", h.RunRotation)
		api.GET("/rotations/status", h.SchedulerStatus)
		api.PUT("/rotations/settings/:tenant", h.UpsertSettings)
	}
}

// ResolvePrice 店面读路径：解析访客应看到的价格。
// 应用层保证失败回落到原价，这里只校验入参形态。
func (h *ExperimentHandler) ResolvePrice(c *gin.Context) {
	tenantID := c.Query("tenant")
	productID := c.Query("product_id")
	sessionID := c.Query("session_id")
	if tenantID == "" || productID == "" || sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant, product_id and session_id are required"})
		return
	}

	originalPrice, err := decimal.NewFromString(c.Query("original_price"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid original_price"})
		return
	}

	result := h.app.ResolvePrice(c.Request.Context(), application.ResolvePriceQuery{
		TenantID:      tenantID,
		ProductID:     productID,
		OriginalPrice: originalPrice,
		SessionID:     sessionID,
		CustomerID:    c.Query("customer_id"),
	})

	c.JSON(http.StatusOK, result)
}

// RunRotation 手动触发一次轮换扫描
func (h *ExperimentHandler) RunRotation(c *gin.Context) {
	summary := h.app.RunRotationNow(c.Request.Context())
	c.JSON(http.StatusOK, summary)
}

// SchedulerStatus 调度器运行状态（运维状态页使用）
func (h *ExperimentHandler) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.SchedulerStatus())
}

// UpsertSettings 写入租户的轮换开关与间隔（设置界面使用）
func (h *ExperimentHandler) UpsertSettings(c *gin.Context) {
	tenantID := c.Param("tenant")

	var req struct {
		Enabled         bool `json:"enabled"`
		IntervalMinutes int  `json:"interval_minutes" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := &domain.TenantRotationSettings{
		TenantID:        tenantID,
		Enabled:         req.Enabled,
		IntervalMinutes: req.IntervalMinutes,
	}
	if err := h.settingsRepo.Upsert(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID, "enabled": req.Enabled, "interval_minutes": req.IntervalMinutes})
}
