package public

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

// AgentApplyRequest 代理入驻申请
type AgentApplyRequest struct {
	RealName        string `json:"real_name" binding:"required"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	ParentAgentCode string `json:"parent_agent_code"`
	AlipayAccount   string `json:"alipay_account"`
}

// ApplyAgent 当前用户申请成为代理
func (h *Handler) ApplyAgent(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	if _, err := h.AgentService.GetByUserID(uid); err == nil {
		respondError(c, http.StatusConflict, "已有代理档案", nil)
		return
	} else if !errors.Is(err, service.ErrAgentNotFound) {
		respondError(c, http.StatusInternalServerError, "代理申请失败", err)
		return
	}

	var req AgentApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	profile, err := h.AgentService.CreateAgent(service.AgentCreateInput{
		RealName:        req.RealName,
		Phone:           req.Phone,
		Email:           req.Email,
		ParentAgentCode: req.ParentAgentCode,
		AlipayAccount:   req.AlipayAccount,
		UserID:          &uid,
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
			respondError(c, http.StatusInternalServerError, "代理申请失败", err)
		}
		return
	}

	response.Success(c, profile)
}

// currentAgent 解析当前登录用户对应的代理档案
func (h *Handler) currentAgent(c *gin.Context) (uint, bool) {
	uid, ok := getUserID(c)
	if !ok {
		return 0, false
	}
	profile, err := h.AgentService.GetByUserID(uid)
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			respondError(c, http.StatusForbidden, "当前用户不是代理", nil)
			return 0, false
		}
		respondError(c, http.StatusInternalServerError, "代理信息查询失败", err)
		return 0, false
	}
	return profile.ID, true
}

// GetAgentDashboard 代理工作台汇总
func (h *Handler) GetAgentDashboard(c *gin.Context) {
	agentID, ok := h.currentAgent(c)
	if !ok {
		return
	}

	dashboard, err := h.AgentService.Dashboard(agentID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "工作台数据查询失败", err)
		return
	}
	response.Success(c, dashboard)
}

// ListAgentChildren 查询直属下级
func (h *Handler) ListAgentChildren(c *gin.Context) {
	agentID, ok := h.currentAgent(c)
	if !ok {
		return
	}

	children, err := h.AgentService.ListChildren(agentID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "下级代理查询失败", err)
		return
	}
	response.Success(c, children)
}

// AgentInviteRequest 代理邀请客户请求
type AgentInviteRequest struct {
	CustomerEmail string `json:"customer_email" binding:"required"`
}

// InviteCustomer 代理登记客户邀请
func (h *Handler) InviteCustomer(c *gin.Context) {
	agentID, ok := h.currentAgent(c)
	if !ok {
		return
	}

	var req AgentInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	invitation, err := h.AgentService.InviteCustomer(agentID, req.CustomerEmail)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAgentSuspended):
			respondError(c, http.StatusForbidden, "代理已停用", nil)
		case errors.Is(err, service.ErrInvalidAction):
			respondError(c, http.StatusBadRequest, "请求参数有误", nil)
		default:
			respondError(c, http.StatusInternalServerError, "邀请登记失败", err)
		}
		return
	}
	response.Success(c, invitation)
}

// ListMyCommissions 查询我的佣金记录
func (h *Handler) ListMyCommissions(c *gin.Context) {
	agentID, ok := h.currentAgent(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	records, total, err := h.CommissionService.List(repository.CommissionListFilter{
		Page:     page,
		PageSize: pageSize,
		AgentID:  agentID,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "佣金记录查询失败", err)
		return
	}

	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}

// WithdrawalApplyRequest 提现申请请求
type WithdrawalApplyRequest struct {
	Amount        string `json:"amount" binding:"required"`
	AlipayAccount string `json:"alipay_account"`
	RealName      string `json:"real_name"`
}

// ApplyWithdrawal 代理发起提现申请
func (h *Handler) ApplyWithdrawal(c *gin.Context) {
	agentID, ok := h.currentAgent(c)
	if !ok {
		return
	}

	var req WithdrawalApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, http.StatusBadRequest, "提现金额格式错误", nil)
		return
	}

	result, err := h.WithdrawalService.Apply(service.WithdrawalApplyInput{
		AgentID:       agentID,
		Amount:        amount,
		AlipayAccount: req.AlipayAccount,
		RealName:      req.RealName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAgentNotFound):
			respondError(c, http.StatusNotFound, "代理不存在", nil)
		case errors.Is(err, service.ErrAgentSuspended):
			respondError(c, http.StatusForbidden, "代理已停用", nil)
		case errors.Is(err, service.ErrWithdrawalAmountInvalid):
			respondError(c, http.StatusBadRequest, "提现金额必须大于零", nil)
		case errors.Is(err, service.ErrBalanceInsufficient):
			respondError(c, http.StatusBadRequest, "可用余额不足", nil)
		case errors.Is(err, service.ErrWithdrawalBelowMinimum):
			respondError(c, http.StatusBadRequest, "低于单笔最低提现额", nil)
		case errors.Is(err, service.ErrWithdrawalAboveMaximum):
			respondError(c, http.StatusBadRequest, "超出单笔最高提现额", nil)
		case errors.Is(err, service.ErrWithdrawalAccountMissing):
			respondError(c, http.StatusBadRequest, "未配置收款支付宝账号", nil)
		case errors.Is(err, service.ErrWithdrawalPendingExists):
			respondError(c, http.StatusConflict, "已有待处理的提现申请", nil)
		default:
			respondError(c, http.StatusInternalServerError, "提现申请失败", err)
		}
		return
	}

	response.Success(c, result)
}

// ListMyWithdrawals 查询我的提现申请
func (h *Handler) ListMyWithdrawals(c *gin.Context) {
	agentID, ok := h.currentAgent(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	requests, total, err := h.WithdrawalService.List(repository.WithdrawalListFilter{
		Page:     page,
		PageSize: pageSize,
		AgentID:  agentID,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "提现记录查询失败", err)
		return
	}

	response.SuccessWithPage(c, requests, response.BuildPagination(page, pageSize, total))
}
