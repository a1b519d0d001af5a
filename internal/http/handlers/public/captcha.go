package public

import (
	"errors"
	"net/http"

	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCaptchaSetting 获取验证码公开配置
func (h *Handler) GetCaptchaSetting(c *gin.Context) {
	response.Success(c, h.CaptchaService.GetPublicSetting())
}

// GetImageCaptcha 获取图片验证码挑战
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	if h.CaptchaService == nil {
		respondError(c, http.StatusInternalServerError, "验证码服务不可用", service.ErrCaptchaConfigInvalid)
		return
	}

	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaptchaConfigInvalid):
			respondError(c, http.StatusBadRequest, "验证码服务不可用", nil)
		default:
			respondError(c, http.StatusInternalServerError, "验证码生成失败", err)
		}
		return
	}

	response.Success(c, gin.H{
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}
