package public

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/gin-gonic/gin"
)

// trackingPixelGIF 1x1 透明 GIF
var trackingPixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackingOpenPixel 邮件打开追踪像素。无论记录是否成功都返回像素，
// 避免收件端感知追踪失败。
func (h *Handler) TrackingOpenPixel(c *gin.Context) {
	token := strings.TrimSpace(c.Query("t"))
	if token != "" && h.TrackingService != nil {
		if err := h.TrackingService.RecordOpen(c.Request.Context(), service.TrackingRecordInput{
			Token:     token,
			UserAgent: c.GetHeader("User-Agent"),
			ClientIP:  c.ClientIP(),
		}); err != nil {
			requestLog(c).Debugw("tracking_open_record_failed", "error", err)
		}
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "image/gif", trackingPixelGIF)
}

// TrackingClickRedirect 邮件链接点击追踪并跳转
func (h *Handler) TrackingClickRedirect(c *gin.Context) {
	token := strings.TrimSpace(c.Query("t"))
	targetURL := strings.TrimSpace(c.Query("url"))

	target, err := h.TrackingService.RecordClick(c.Request.Context(), service.TrackingRecordInput{
		Token:     token,
		TargetURL: targetURL,
		UserAgent: c.GetHeader("User-Agent"),
		ClientIP:  c.ClientIP(),
	})
	if target == "" {
		respondError(c, http.StatusBadRequest, "跳转地址无效", err)
		return
	}
	if err != nil {
		requestLog(c).Debugw("tracking_click_record_failed", "error", err)
	}
	c.Redirect(http.StatusFound, target)
}

// GetMyTrackingStats 当前用户的收件人统计
func (h *Handler) GetMyTrackingStats(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	stats, total, err := h.TrackingService.ListStats(uid, page, pageSize)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "追踪统计查询失败", err)
		return
	}

	response.SuccessWithPage(c, stats, response.BuildPagination(page, pageSize, total))
}

// BuildTrackingTokenRequest 生成追踪令牌请求
type BuildTrackingTokenRequest struct {
	RecipientEmail string `json:"recipient_email" binding:"required"`
}

// BuildTrackingToken 为收件人生成追踪令牌，客户端嵌入外发邮件
func (h *Handler) BuildTrackingToken(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req BuildTrackingTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	token, err := h.TrackingService.BuildToken(uid, req.RecipientEmail)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "追踪令牌生成失败", err)
		return
	}

	response.Success(c, gin.H{"token": token})
}
