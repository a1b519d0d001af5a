package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/repository"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminOrders 获取订单列表
func (h *Handler) GetAdminOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

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

	orders, total, err := h.OrderService.List(repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		OutTradeNo:    strings.TrimSpace(c.Query("out_trade_no")),
		CustomerEmail: strings.TrimSpace(c.Query("customer_email")),
		PlanID:        strings.TrimSpace(c.Query("plan_id")),
		AgentCode:     strings.TrimSpace(c.Query("agent_code")),
		Status:        strings.TrimSpace(c.Query("status")),
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "订单列表查询失败", err)
		return
	}

	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetAdminOrder 获取订单详情
func (h *Handler) GetAdminOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.OrderService.GetByID(id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "订单不存在", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "订单查询失败", err)
		return
	}

	response.Success(c, order)
}

// GetAdminOrderCommissions 获取订单关联的佣金记录
func (h *Handler) GetAdminOrderCommissions(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	records, err := h.CommissionService.ListByOrder(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "佣金记录查询失败", err)
		return
	}

	response.Success(c, records)
}

func parseOrderID(c *gin.Context) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || raw == 0 {
		respondError(c, http.StatusBadRequest, "订单 ID 无效", nil)
		return 0, false
	}
	return uint(raw), true
}
