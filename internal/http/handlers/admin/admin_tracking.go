package admin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAdminTrackingEvents 获取邮件追踪事件列表
func (h *Handler) GetAdminTrackingEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	var userID uint
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "请求参数有误", err)
			return
		}
		userID = uint(parsed)
	}
	occurredFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("occurred_from")))
	if err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}
	occurredTo, err := parseTimeNullable(strings.TrimSpace(c.Query("occurred_to")))
	if err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	events, total, err := h.TrackingService.ListEvents(repository.TrackingEventListFilter{
		Page:           page,
		PageSize:       pageSize,
		UserID:         userID,
		Token:          strings.TrimSpace(c.Query("token")),
		Event:          strings.TrimSpace(c.Query("event")),
		RecipientEmail: strings.TrimSpace(c.Query("recipient_email")),
		OccurredFrom:   occurredFrom,
		OccurredTo:     occurredTo,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "追踪事件查询失败", err)
		return
	}

	response.SuccessWithPage(c, events, response.BuildPagination(page, pageSize, total))
}

// GetAdminInvitations 获取邀请记录列表
func (h *Handler) GetAdminInvitations(c *gin.Context) {
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

	invitations, total, err := h.InvitationRepo.List(repository.InvitationListFilter{
		Page:          page,
		PageSize:      pageSize,
		AgentID:       agentID,
		CustomerEmail: strings.TrimSpace(c.Query("customer_email")),
		Status:        strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "邀请记录查询失败", err)
		return
	}

	response.SuccessWithPage(c, invitations, response.BuildPagination(page, pageSize, total))
}
