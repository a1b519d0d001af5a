package public

import (
	"errors"
	"net/http"

	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/gin-gonic/gin"
)

// LicenseValidateRequest 授权校验请求
type LicenseValidateRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
	MachineID  string `json:"machine_id"`
}

// LicenseActivateRequest 授权激活请求
type LicenseActivateRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
	MachineID  string `json:"machine_id" binding:"required"`
}

func respondLicenseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLicenseNotFound):
		respondError(c, http.StatusNotFound, "授权码不存在", nil)
	case errors.Is(err, service.ErrLicenseRevoked):
		respondError(c, http.StatusForbidden, "授权码已吊销", nil)
	case errors.Is(err, service.ErrLicenseExpired):
		respondError(c, http.StatusForbidden, "授权码已过期", nil)
	case errors.Is(err, service.ErrLicenseMachineMismatch):
		respondError(c, http.StatusConflict, "授权码已绑定其他设备", nil)
	case errors.Is(err, service.ErrLicenseActivationLimit):
		respondError(c, http.StatusConflict, "授权码激活次数已达上限", nil)
	case errors.Is(err, service.ErrInvalidAction):
		respondError(c, http.StatusBadRequest, "请求参数有误", nil)
	default:
		respondError(c, http.StatusInternalServerError, "授权校验失败", err)
	}
}

// ValidateLicense 客户端授权校验
func (h *Handler) ValidateLicense(c *gin.Context) {
	var req LicenseValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	result, err := h.LicenseService.Validate(req.LicenseKey, req.MachineID)
	if err != nil {
		respondLicenseError(c, err)
		return
	}
	response.Success(c, result)
}

// ActivateLicense 客户端授权激活（绑定设备）
func (h *Handler) ActivateLicense(c *gin.Context) {
	var req LicenseActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	result, err := h.LicenseService.Activate(req.LicenseKey, req.MachineID)
	if err != nil {
		respondLicenseError(c, err)
		return
	}
	response.Success(c, result)
}
