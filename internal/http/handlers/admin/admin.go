package admin

import (
	"errors"
	"net/http"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username       string                `json:"username" binding:"required"`
	Password       string                `json:"password" binding:"required"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	if h.CaptchaService != nil {
		if captchaErr := h.CaptchaService.Verify(constants.CaptchaSceneLogin, req.CaptchaPayload.toServicePayload(), c.ClientIP()); captchaErr != nil {
			switch {
			case errors.Is(captchaErr, service.ErrCaptchaRequired):
				respondError(c, http.StatusBadRequest, "请先完成验证码", nil)
			case errors.Is(captchaErr, service.ErrCaptchaInvalid):
				respondError(c, http.StatusBadRequest, "验证码错误或已过期", nil)
			case errors.Is(captchaErr, service.ErrCaptchaConfigInvalid):
				respondError(c, http.StatusInternalServerError, "验证码配置无效", captchaErr)
			default:
				respondError(c, http.StatusInternalServerError, "验证码校验失败", captchaErr)
			}
			return
		}
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "用户名或密码错误", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "登录失败", err)
		return
	}
	response.Success(c, LoginResponse{
		Token: token,
		User: map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
		},
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetAdminProfile 获取当前管理员信息
func (h *Handler) GetAdminProfile(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}

	admin, err := h.AdminRepo.GetByID(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "管理员信息查询失败", err)
		return
	}
	if admin == nil {
		respondError(c, http.StatusNotFound, "管理员不存在", nil)
		return
	}

	response.Success(c, gin.H{
		"id":       admin.ID,
		"username": admin.Username,
	})
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateAdminPassword 修改管理员密码
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	if err := h.AuthService.ChangePassword(id, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPassword):
			respondError(c, http.StatusBadRequest, "旧密码不正确", nil)
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, http.StatusNotFound, "管理员不存在", nil)
		default:
			respondError(c, http.StatusInternalServerError, "密码修改失败", err)
		}
		return
	}

	response.Success(c, nil)
}
