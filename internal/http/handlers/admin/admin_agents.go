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
	"github.com/shopspring/decimal"
)

// CreateAgentRequest 创建代理请求
type CreateAgentRequest struct {
	RealName        string  `json:"real_name" binding:"required"`
	Phone           string  `json:"phone"`
	Email           string  `json:"email"`
	ParentAgentCode string  `json:"parent_agent_code"`
	CommissionRate  *string `json:"commission_rate"`
	AlipayAccount   string  `json:"alipay_account"`
	UserID          *uint   `json:"user_id"`
}

// GetAdminAgents 获取代理列表
func (h *Handler) GetAdminAgents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	var parentAgentID uint
	if raw := strings.TrimSpace(c.Query("parent_agent_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "请求参数有误", err)
			return
		}
		parentAgentID = uint(parsed)
	}
	var level int
	if raw := strings.TrimSpace(c.Query("level")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "请求参数有误", err)
			return
		}
		level = parsed
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

	agents, total, err := h.AgentService.List(repository.AgentListFilter{
		Page:          page,
		PageSize:      pageSize,
		Keyword:       strings.TrimSpace(c.Query("keyword")),
		Status:        strings.TrimSpace(c.Query("status")),
		ParentAgentID: parentAgentID,
		Level:         level,
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "代理列表查询失败", err)
		return
	}

	response.SuccessWithPage(c, agents, response.BuildPagination(page, pageSize, total))
}

// CreateAdminAgent 创建代理档案
func (h *Handler) CreateAdminAgent(c *gin.Context) {
	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	var rate *decimal.Decimal
	if req.CommissionRate != nil && strings.TrimSpace(*req.CommissionRate) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(*req.CommissionRate))
		if err != nil {
			respondError(c, http.StatusBadRequest, "佣金比例格式错误", nil)
			return
		}
		rate = &parsed
	}

	agent, err := h.AgentService.CreateAgent(service.AgentCreateInput{
		RealName:        req.RealName,
		Phone:           req.Phone,
		Email:           req.Email,
		ParentAgentCode: req.ParentAgentCode,
		CommissionRate:  rate,
		AlipayAccount:   req.AlipayAccount,
		UserID:          req.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrParentAgentNotFound):
			respondError(c, http.StatusBadRequest, "上级代理不存在", nil)
		case errors.Is(err, service.ErrAgentSuspended):
			respondError(c, http.StatusForbidden, "上级代理已停用", nil)
		case errors.Is(err, service.ErrAgentCodeExhausted):
			respondError(c, http.StatusInternalServerError, "邀请码生成失败", err)
		case errors.Is(err, service.ErrInvalidAction):
			respondError(c, http.StatusBadRequest, "请求参数有误", nil)
		default:
			respondError(c, http.StatusInternalServerError, "代理创建失败", err)
		}
		return
	}

	response.Success(c, agent)
}

// GetAdminAgent 获取代理详情
func (h *Handler) GetAdminAgent(c *gin.Context) {
	id, ok := parseAgentID(c)
	if !ok {
		return
	}

	agent, err := h.AgentService.GetByID(id)
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			respondError(c, http.StatusNotFound, "代理不存在", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "代理信息查询失败", err)
		return
	}

	response.Success(c, agent)
}

// GetAdminAgentAncestors 获取代理的上级链路
func (h *Handler) GetAdminAgentAncestors(c *gin.Context) {
	id, ok := parseAgentID(c)
	if !ok {
		return
	}

	ancestors, err := h.AgentService.ResolveAncestors(id)
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			respondError(c, http.StatusNotFound, "代理不存在", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "上级链路查询失败", err)
		return
	}

	response.Success(c, ancestors)
}

// UpdateAgentStatusRequest 更新代理状态请求
type UpdateAgentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAdminAgentStatus 启用或停用代理
func (h *Handler) UpdateAdminAgentStatus(c *gin.Context) {
	id, ok := parseAgentID(c)
	if !ok {
		return
	}

	var req UpdateAgentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	agent, err := h.AgentService.UpdateStatus(id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAction):
			respondError(c, http.StatusBadRequest, "代理状态无效", nil)
		case errors.Is(err, service.ErrAgentNotFound):
			respondError(c, http.StatusNotFound, "代理不存在", nil)
		default:
			respondError(c, http.StatusInternalServerError, "代理状态更新失败", err)
		}
		return
	}

	response.Success(c, agent)
}

func parseAgentID(c *gin.Context) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || raw == 0 {
		respondError(c, http.StatusBadRequest, "代理 ID 无效", nil)
		return 0, false
	}
	return uint(raw), true
}
