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

// GetAdminWithdrawals 获取提现申请列表
func (h *Handler) GetAdminWithdrawals(c *gin.Context) {
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

	requests, total, err := h.WithdrawalService.List(repository.WithdrawalListFilter{
		Page:        page,
		PageSize:    pageSize,
		AgentID:     agentID,
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "提现申请查询失败", err)
		return
	}

	response.SuccessWithPage(c, requests, response.BuildPagination(page, pageSize, total))
}

// GetAdminWithdrawal 获取提现申请详情
func (h *Handler) GetAdminWithdrawal(c *gin.Context) {
	raw, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || raw == 0 {
		respondError(c, http.StatusBadRequest, "提现申请 ID 无效", nil)
		return
	}

	request, err := h.WithdrawalService.GetByID(uint(raw))
	if err != nil {
		if errors.Is(err, service.ErrWithdrawalNotFound) {
			respondError(c, http.StatusNotFound, "提现申请不存在", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "提现申请查询失败", err)
		return
	}

	response.Success(c, request)
}

// WithdrawalProcessRequest 提现批量处理请求
type WithdrawalProcessRequest struct {
	WithdrawalIDs []uint `json:"withdrawalIds" binding:"required"`
	Action        string `json:"action" binding:"required"`
	Notes         string `json:"adminNotes"`
}

// ProcessAdminWithdrawals 批量处理提现申请（打款或驳回）
func (h *Handler) ProcessAdminWithdrawals(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req WithdrawalProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	result, err := h.WithdrawalService.Process(c.Request.Context(), service.WithdrawalProcessInput{
		WithdrawalIDs: req.WithdrawalIDs,
		Action:        req.Action,
		AdminID:       adminID,
		Notes:         req.Notes,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidAction) {
			respondError(c, http.StatusBadRequest, "处理动作无效", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "提现处理失败", err)
		return
	}

	response.Success(c, result)
}
