// Package http 暴露期权定价比较的 HTTP 与 WebSocket 接口。
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wyfcoding/optionlab/internal/pricing/application"
	"github.com/wyfcoding/optionlab/response"
	"github.com/wyfcoding/optionlab/server"
	"github.com/wyfcoding/optionlab/xerrors"
)

// PricingHandler 负责处理与定价相关的 HTTP 请求
type PricingHandler struct {
	svc      *application.Service
	upgrader *server.StreamUpgrader
	logger   *slog.Logger
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(svc *application.Service, upgrader *server.StreamUpgrader, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{svc: svc, upgrader: upgrader, logger: logger}
}

// RegisterRoutes 将处理器方法绑定到 Gin 路由
func (h *PricingHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1")
	{
		api.POST("/options/compare", h.Compare)
		api.POST("/options/price", h.Price)
		api.POST("/paths/simulate", h.Simulate)
		api.GET("/paths/stream", h.Stream)
	}
}

func bindError(c *gin.Context, err error) {
	response.Error(c, xerrors.ErrInvalidInput.Clone().WithDetail("malformed request body: %v", err))
}

// Compare 模拟并比较蒙特卡洛与 Black-Scholes 价格
func (h *PricingHandler) Compare(c *gin.Context) {
	var req application.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.svc.Compare(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "compare failed", err)
		return
	}
	response.Success(c, result)
}

// Price 计算解析价与希腊字母
func (h *PricingHandler) Price(c *gin.Context) {
	var req application.PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.svc.Analytical(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "analytical pricing failed", err)
		return
	}
	response.Success(c, result)
}

// Simulate 生成路径，返回预览子集与终值统计
func (h *PricingHandler) Simulate(c *gin.Context) {
	var req application.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.svc.Simulate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "simulation failed", err)
		return
	}
	response.Success(c, result)
}

// Stream 升级为 WebSocket，读取一条 SimulationRequest 后逐时间步推送预览路径
func (h *PricingHandler) Stream(c *gin.Context) {
	stream, err := h.upgrader.Upgrade(c.Writer, c.Request, h.logger)
	if err != nil {
		return
	}
	defer stream.Close(websocket.CloseNormalClosure, "done")

	var req application.SimulationRequest
	if err := stream.ReadJSON(&req); err != nil {
		h.logger.WarnContext(c.Request.Context(), "invalid stream request", "error", err)
		_ = stream.WriteJSON(errorFrame(xerrors.ErrInvalidInput.Clone().WithDetail("malformed request: %v", err)))
		return
	}

	ctx, cancel := stream.Watch(c.Request.Context())
	defer cancel()

	if err := h.svc.Stream(ctx, req, stream.WriteJSON); err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.InfoContext(ctx, "stream closed by client")
			return
		}
		h.logger.WarnContext(ctx, "stream failed", "error", err)
		_ = stream.WriteJSON(errorFrame(err))
	}
}

func errorFrame(err error) gin.H {
	frame := gin.H{"type": "error", "msg": err.Error()}
	if xe, ok := xerrors.FromError(err); ok {
		frame["code"] = xe.Code
		frame["msg"] = xe.Message
		frame["detail"] = xe.Detail
	}
	return frame
}

func (h *PricingHandler) fail(c *gin.Context, msg string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		h.logger.WarnContext(c.Request.Context(), msg, "error", err)
		response.ErrorWithStatus(c, http.StatusGatewayTimeout, "Request Timeout", err.Error())
		return
	}
	if xerrors.IsInvalidArg(err) {
		h.logger.InfoContext(c.Request.Context(), msg, "error", err)
	} else {
		h.logger.ErrorContext(c.Request.Context(), msg, "error", err)
	}
	response.Error(c, err)
}

// HealthHandler 健康检查
func HealthHandler(c *gin.Context) {
	response.SuccessWithRawData(c, gin.H{"status": "ok"})
}

// MetricsHandler 将 http.Handler 适配为 Gin 路由
func MetricsHandler(h http.Handler) gin.HandlerFunc {
	return gin.WrapH(h)
}
