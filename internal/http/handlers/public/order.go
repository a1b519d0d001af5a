package public

import (
	"errors"
	"net/http"
	"strings"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	PlanID         string                `json:"plan_id" binding:"required"`
	Email          string                `json:"email" binding:"required"`
	AgentCode      string                `json:"agent_code"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// CreateOrder 创建订单并发起支付宝预下单
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	if !h.verifyCaptcha(c, constants.CaptchaSceneGuestCreateOrder, req.CaptchaPayload) {
		return
	}

	result, err := h.OrderService.CreateOrder(c.Request.Context(), service.OrderCreateInput{
		PlanID:        req.PlanID,
		CustomerEmail: req.Email,
		AgentCode:     req.AgentCode,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanInvalid):
			respondError(c, http.StatusBadRequest, "套餐不存在", nil)
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, http.StatusBadRequest, "邮箱格式无效", nil)
		case errors.Is(err, service.ErrPaymentGateway):
			respondError(c, http.StatusInternalServerError, "支付下单失败", err)
		default:
			respondError(c, http.StatusInternalServerError, "订单创建失败", err)
		}
		return
	}

	response.Success(c, result)
}

// GetOrderStatus 按商户单号查询订单状态（前端轮询支付结果）
func (h *Handler) GetOrderStatus(c *gin.Context) {
	outTradeNo := strings.TrimSpace(c.Param("out_trade_no"))
	if outTradeNo == "" {
		respondError(c, http.StatusBadRequest, "订单号无效", nil)
		return
	}

	order, err := h.OrderService.GetByOutTradeNo(outTradeNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "订单不存在", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "订单查询失败", err)
		return
	}

	response.Success(c, gin.H{
		"out_trade_no": order.OutTradeNo,
		"plan_id":      order.PlanID,
		"amount":       order.Amount,
		"status":       order.Status,
		"paid_at":      order.PaidAt,
		"expires_at":   order.ExpiresAt,
	})
}

// AlipayNotify 支付宝异步回调。验签失败回 fail，处理成功回 success。
func (h *Handler) AlipayNotify(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusOK, "fail")
		return
	}

	if err := h.OrderService.HandleAlipayNotify(c.Request.Context(), c.Request.PostForm); err != nil {
		requestLog(c).Warnw("alipay_notify_rejected", "error", err)
		c.String(http.StatusOK, "fail")
		return
	}
	c.String(http.StatusOK, "success")
}

// GetPlans 获取可购套餐列表
func (h *Handler) GetPlans(c *gin.Context) {
	plans := h.PlanCatalog.List()
	views := make([]gin.H, 0, len(plans))
	for _, plan := range plans {
		views = append(views, gin.H{
			"id":              plan.ID,
			"name":            plan.Name,
			"price":           plan.Price.Round(2).StringFixed(2),
			"duration_days":   plan.DurationDays,
			"max_activations": plan.MaxActivations,
		})
	}
	response.Success(c, views)
}
