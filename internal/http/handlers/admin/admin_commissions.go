package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/repository"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminCommissions 获取佣金记录列表
func (h *Handler) GetAdminCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	var agentID uint
	if raw := strings.TrimSpace(c.Query("agent_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "请求参数有误", err)
			return
		}
		agentID = uint(parsed)
	}
	var orderID uint
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "请求参数有误", err)
			return
		}
		orderID = uint(parsed)
	}
	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	records, total, err := h.CommissionService.List(repository.CommissionListFilter{
		Page:        page,
		PageSize:    pageSize,
		AgentID:     agentID,
		OrderID:     orderID,
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "佣金记录查询失败", err)
		return
	}

	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}

// CommissionAllocateRequest 佣金分配请求
type CommissionAllocateRequest struct {
	OrderID       uint         `json:"orderId" binding:"required"`
	CustomerEmail string       `json:"customerEmail" binding:"required"`
	OrderAmount   models.Money `json:"orderAmount" binding:"required"`
}

// AllocateAdminCommissions 为已支付订单手工触发佣金分配
func (h *Handler) AllocateAdminCommissions(c *gin.Context) {
	var req CommissionAllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	result, err := h.CommissionService.Allocate(service.CommissionAllocateInput{
		OrderID:       req.OrderID,
		CustomerEmail: req.CustomerEmail,
		OrderAmount:   req.OrderAmount.Decimal,
	})
	if err != nil {
		if errors.Is(err, service.ErrCommissionExists) {
			respondError(c, http.StatusConflict, "订单已存在佣金记录", nil)
			return
		}
		if errors.Is(err, service.ErrInvalidAction) {
			respondError(c, http.StatusBadRequest, "请求参数有误", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "佣金分配失败", err)
		return
	}

	response.Success(c, result)
}

// CommissionDecideRequest 佣金审核请求
type CommissionDecideRequest struct {
	CommissionIDs []uint `json:"commissionIds" binding:"required"`
	Action        string `json:"action" binding:"required"`
	Notes         string `json:"adminNotes"`
}

// DecideAdminCommissions 批量审核佣金（通过或驳回）
func (h *Handler) DecideAdminCommissions(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req CommissionDecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	result, err := h.CommissionService.Decide(service.CommissionDecideInput{
		CommissionIDs: req.CommissionIDs,
		Action:        req.Action,
		AdminID:       adminID,
		Notes:         req.Notes,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidAction) {
			respondError(c, http.StatusBadRequest, "审核动作无效", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "佣金审核失败", err)
		return
	}

	response.Success(c, result)
}
