package public

import (
	"errors"
	"net/http"
	"strings"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/gin-gonic/gin"
)

// UserSendVerifyCodeRequest 发送验证码请求
type UserSendVerifyCodeRequest struct {
	Email          string                `json:"email" binding:"required"`
	Purpose        string                `json:"purpose" binding:"required"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// SendUserVerifyCode 发送用户邮箱验证码
func (h *Handler) SendUserVerifyCode(c *gin.Context) {
	var req UserSendVerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	purpose := strings.ToLower(strings.TrimSpace(req.Purpose))
	captchaScene := ""
	switch purpose {
	case constants.VerifyPurposeRegister:
		captchaScene = constants.CaptchaSceneRegisterSendCode
	case constants.VerifyPurposeReset:
		captchaScene = constants.CaptchaSceneResetSendCode
	}
	if captchaScene != "" && !h.verifyCaptcha(c, captchaScene, req.CaptchaPayload) {
		return
	}

	if err := h.UserAuthService.SendVerifyCode(req.Email, req.Purpose); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, http.StatusBadRequest, "邮箱格式无效", nil)
		case errors.Is(err, service.ErrInvalidVerifyPurpose):
			respondError(c, http.StatusBadRequest, "验证码用途无效", nil)
		case errors.Is(err, service.ErrEmailExists):
			respondError(c, http.StatusBadRequest, "该邮箱已注册", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, http.StatusNotFound, "用户不存在", nil)
		case errors.Is(err, service.ErrVerifyCodeTooFrequent):
			respondError(c, http.StatusTooManyRequests, "验证码发送过于频繁", nil)
		case errors.Is(err, service.ErrEmailRecipientRejected):
			respondError(c, http.StatusBadRequest, "收件邮箱不可达", nil)
		case errors.Is(err, service.ErrEmailServiceDisabled),
			errors.Is(err, service.ErrEmailServiceNotConfigured):
			respondError(c, http.StatusInternalServerError, "邮件服务未配置", err)
		default:
			respondError(c, http.StatusInternalServerError, "验证码发送失败", err)
		}
		return
	}

	response.Success(c, gin.H{"sent": true})
}

// UserRegisterRequest 注册请求
type UserRegisterRequest struct {
	Email             string `json:"email" binding:"required"`
	Password          string `json:"password" binding:"required"`
	Code              string `json:"code" binding:"required"`
	AgreementAccepted bool   `json:"agreement_accepted"`
	AgentCode         string `json:"agent_code"`
}

// UserRegister 用户注册
func (h *Handler) UserRegister(c *gin.Context) {
	var req UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	user, token, expiresAt, err := h.UserAuthService.Register(req.Email, req.Password, req.Code, req.AgreementAccepted)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, http.StatusBadRequest, "邮箱格式无效", nil)
		case errors.Is(err, service.ErrEmailExists):
			respondError(c, http.StatusBadRequest, "该邮箱已注册", nil)
		case errors.Is(err, service.ErrVerifyCodeInvalid):
			respondError(c, http.StatusBadRequest, "验证码错误", nil)
		case errors.Is(err, service.ErrVerifyCodeExpired):
			respondError(c, http.StatusBadRequest, "验证码已过期", nil)
		case errors.Is(err, service.ErrVerifyCodeAttemptsExceeded):
			respondError(c, http.StatusBadRequest, "验证码尝试次数过多", nil)
		case errors.Is(err, service.ErrAgreementRequired):
			respondError(c, http.StatusBadRequest, "请先同意用户协议", nil)
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, http.StatusBadRequest, err.Error(), nil)
		default:
			respondError(c, http.StatusInternalServerError, "注册失败", err)
		}
		return
	}

	// 注册时携带推荐码则登记邀请关系，失败不阻断注册
	if code := strings.TrimSpace(req.AgentCode); code != "" && h.AgentService != nil {
		if _, inviteErr := h.AgentService.AcceptInvitation(code, user.Email); inviteErr != nil {
			requestLog(c).Infow("register_invitation_skipped",
				"email", user.Email,
				"agent_code", code,
				"error", inviteErr,
			)
		}
	}

	response.Success(c, gin.H{
		"user":       userResponse(user),
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// UserLoginRequest 登录请求
type UserLoginRequest struct {
	Email          string                `json:"email" binding:"required"`
	Password       string                `json:"password" binding:"required"`
	RememberMe     bool                  `json:"remember_me"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// UserLogin 用户登录
func (h *Handler) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonBadRequest)
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	if h.CaptchaService != nil {
		if captchaErr := h.CaptchaService.Verify(constants.CaptchaSceneLogin, req.CaptchaPayload.toServicePayload(), c.ClientIP()); captchaErr != nil {
			switch {
			case errors.Is(captchaErr, service.ErrCaptchaRequired):
				h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonCaptchaRequired)
				respondError(c, http.StatusBadRequest, "请完成人机验证", nil)
			case errors.Is(captchaErr, service.ErrCaptchaInvalid):
				h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonCaptchaInvalid)
				respondError(c, http.StatusBadRequest, "人机验证未通过", nil)
			case errors.Is(captchaErr, service.ErrCaptchaConfigInvalid):
				h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonCaptchaConfigInvalid)
				respondError(c, http.StatusInternalServerError, "验证码配置错误", captchaErr)
			default:
				h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonCaptchaVerifyFailed)
				respondError(c, http.StatusInternalServerError, "人机验证失败", captchaErr)
			}
			return
		}
	}

	user, token, expiresAt, err := h.UserAuthService.LoginWithRememberMe(req.Email, req.Password, req.RememberMe)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonInvalidEmail)
			respondError(c, http.StatusBadRequest, "邮箱格式无效", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonInvalidCredentials)
			respondError(c, http.StatusUnauthorized, "邮箱或密码错误", nil)
		case errors.Is(err, service.ErrEmailNotVerified):
			h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonEmailNotVerified)
			respondError(c, http.StatusUnauthorized, "邮箱尚未验证", nil)
		case errors.Is(err, service.ErrUserDisabled):
			h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonUserDisabled)
			respondError(c, http.StatusUnauthorized, "账号已被禁用", nil)
		default:
			h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonInternalError)
			respondError(c, http.StatusInternalServerError, "登录失败", err)
		}
		return
	}

	h.recordUserLogin(c, user.Email, user.ID, constants.LoginLogStatusSuccess, "")
	response.Success(c, gin.H{
		"user":       userResponse(user),
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (h *Handler) recordUserLogin(c *gin.Context, email string, userID uint, status, failReason string) {
	if h == nil || h.UserLoginLogService == nil {
		return
	}
	requestID := ""
	if c != nil {
		if rid, ok := c.Get("request_id"); ok {
			if value, ok := rid.(string); ok {
				requestID = strings.TrimSpace(value)
			}
		}
	}
	_ = h.UserLoginLogService.Record(service.RecordUserLoginInput{
		UserID:      userID,
		Email:       email,
		Status:      status,
		FailReason:  failReason,
		ClientIP:    c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
		LoginSource: constants.LoginLogSourceWeb,
		RequestID:   requestID,
	})
}

func (h *Handler) verifyCaptcha(c *gin.Context, scene string, payload CaptchaPayloadRequest) bool {
	if h.CaptchaService == nil {
		return true
	}
	captchaErr := h.CaptchaService.Verify(scene, payload.toServicePayload(), c.ClientIP())
	if captchaErr == nil {
		return true
	}
	switch {
	case errors.Is(captchaErr, service.ErrCaptchaRequired):
		respondError(c, http.StatusBadRequest, "请完成人机验证", nil)
	case errors.Is(captchaErr, service.ErrCaptchaInvalid):
		respondError(c, http.StatusBadRequest, "人机验证未通过", nil)
	case errors.Is(captchaErr, service.ErrCaptchaConfigInvalid):
		respondError(c, http.StatusInternalServerError, "验证码配置错误", captchaErr)
	default:
		respondError(c, http.StatusInternalServerError, "人机验证失败", captchaErr)
	}
	return false
}

// UserResetPasswordRequest 重置密码请求
type UserResetPasswordRequest struct {
	Email       string `json:"email" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UserForgotPassword 忘记密码重置
func (h *Handler) UserForgotPassword(c *gin.Context) {
	var req UserResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	if err := h.UserAuthService.ResetPassword(req.Email, req.Code, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, http.StatusBadRequest, "邮箱格式无效", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, http.StatusNotFound, "用户不存在", nil)
		case errors.Is(err, service.ErrVerifyCodeInvalid):
			respondError(c, http.StatusBadRequest, "验证码错误", nil)
		case errors.Is(err, service.ErrVerifyCodeExpired):
			respondError(c, http.StatusBadRequest, "验证码已过期", nil)
		case errors.Is(err, service.ErrVerifyCodeAttemptsExceeded):
			respondError(c, http.StatusBadRequest, "验证码尝试次数过多", nil)
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, http.StatusBadRequest, err.Error(), nil)
		default:
			respondError(c, http.StatusInternalServerError, "密码重置失败", err)
		}
		return
	}

	response.Success(c, gin.H{"reset": true})
}

// GetCurrentUser 获取当前用户信息
func (h *Handler) GetCurrentUser(c *gin.Context) {
	id, ok := getUserID(c)
	if !ok {
		return
	}

	user, err := h.UserAuthService.GetUserByID(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "用户信息查询失败", err)
		return
	}
	if user == nil {
		respondError(c, http.StatusNotFound, "用户不存在", nil)
		return
	}

	response.Success(c, userResponse(user))
}

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":                user.ID,
		"email":             user.Email,
		"nickname":          user.DisplayName,
		"email_verified_at": user.EmailVerifiedAt,
	}
}

// UserProfileUpdateRequest 更新资料请求
type UserProfileUpdateRequest struct {
	Nickname *string `json:"nickname"`
}

// UpdateUserProfile 更新用户资料
func (h *Handler) UpdateUserProfile(c *gin.Context) {
	id, ok := getUserID(c)
	if !ok {
		return
	}

	var req UserProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	user, err := h.UserAuthService.UpdateProfile(id, req.Nickname)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProfileEmpty):
			respondError(c, http.StatusBadRequest, "未提交任何修改", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, http.StatusNotFound, "用户不存在", nil)
		default:
			respondError(c, http.StatusInternalServerError, "资料更新失败", err)
		}
		return
	}

	response.Success(c, userResponse(user))
}

// ChangeEmailSendCodeRequest 更换邮箱验证码请求
type ChangeEmailSendCodeRequest struct {
	Kind     string `json:"kind" binding:"required"`
	NewEmail string `json:"new_email"`
}

// SendChangeEmailCode 发送更换邮箱验证码
func (h *Handler) SendChangeEmailCode(c *gin.Context) {
	id, ok := getUserID(c)
	if !ok {
		return
	}

	var req ChangeEmailSendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	if err := h.UserAuthService.SendChangeEmailCode(id, req.Kind, req.NewEmail); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, http.StatusBadRequest, "邮箱格式无效", nil)
		case errors.Is(err, service.ErrEmailChangeInvalid):
			respondError(c, http.StatusBadRequest, "更换邮箱请求无效", nil)
		case errors.Is(err, service.ErrEmailChangeExists):
			respondError(c, http.StatusBadRequest, "新邮箱已被占用", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, http.StatusNotFound, "用户不存在", nil)
		case errors.Is(err, service.ErrVerifyCodeTooFrequent):
			respondError(c, http.StatusTooManyRequests, "验证码发送过于频繁", nil)
		case errors.Is(err, service.ErrEmailRecipientRejected):
			respondError(c, http.StatusBadRequest, "收件邮箱不可达", nil)
		case errors.Is(err, service.ErrEmailServiceDisabled),
			errors.Is(err, service.ErrEmailServiceNotConfigured):
			respondError(c, http.StatusInternalServerError, "邮件服务未配置", err)
		default:
			respondError(c, http.StatusInternalServerError, "验证码发送失败", err)
		}
		return
	}

	response.Success(c, gin.H{"sent": true})
}

// ChangeEmailRequest 更换邮箱请求
type ChangeEmailRequest struct {
	NewEmail string `json:"new_email" binding:"required"`
	OldCode  string `json:"old_code"`
	NewCode  string `json:"new_code" binding:"required"`
}

// ChangeEmail 更换邮箱
func (h *Handler) ChangeEmail(c *gin.Context) {
	id, ok := getUserID(c)
	if !ok {
		return
	}

	var req ChangeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	user, err := h.UserAuthService.ChangeEmail(id, req.NewEmail, req.OldCode, req.NewCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, http.StatusBadRequest, "邮箱格式无效", nil)
		case errors.Is(err, service.ErrEmailChangeInvalid):
			respondError(c, http.StatusBadRequest, "更换邮箱请求无效", nil)
		case errors.Is(err, service.ErrEmailChangeExists):
			respondError(c, http.StatusBadRequest, "新邮箱已被占用", nil)
		case errors.Is(err, service.ErrVerifyCodeInvalid):
			respondError(c, http.StatusBadRequest, "验证码错误", nil)
		case errors.Is(err, service.ErrVerifyCodeExpired):
			respondError(c, http.StatusBadRequest, "验证码已过期", nil)
		case errors.Is(err, service.ErrVerifyCodeAttemptsExceeded):
			respondError(c, http.StatusBadRequest, "验证码尝试次数过多", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, http.StatusNotFound, "用户不存在", nil)
		default:
			respondError(c, http.StatusInternalServerError, "邮箱更换失败", err)
		}
		return
	}

	response.Success(c, userResponse(user))
}

// ChangeUserPasswordRequest 用户改密请求
type ChangeUserPasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangeUserPassword 用户登录态修改密码
func (h *Handler) ChangeUserPassword(c *gin.Context) {
	id, ok := getUserID(c)
	if !ok {
		return
	}

	var req ChangeUserPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	if err := h.UserAuthService.ChangePassword(id, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPassword):
			respondError(c, http.StatusBadRequest, "原密码错误", nil)
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, http.StatusNotFound, "用户不存在", nil)
		default:
			respondError(c, http.StatusInternalServerError, "密码修改失败", err)
		}
		return
	}

	response.Success(c, gin.H{"updated": true})
}
