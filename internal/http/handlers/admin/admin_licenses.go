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

// GetAdminLicenses 获取授权列表
func (h *Handler) GetAdminLicenses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	licenses, total, err := h.LicenseService.List(repository.LicenseListFilter{
		Page:          page,
		PageSize:      pageSize,
		CustomerEmail: strings.TrimSpace(c.Query("customer_email")),
		PlanID:        strings.TrimSpace(c.Query("plan_id")),
		Status:        strings.TrimSpace(c.Query("status")),
		LicenseKey:    strings.TrimSpace(c.Query("license_key")),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "授权列表查询失败", err)
		return
	}

	response.SuccessWithPage(c, licenses, response.BuildPagination(page, pageSize, total))
}

// GetAdminLicense 获取授权详情
func (h *Handler) GetAdminLicense(c *gin.Context) {
	id, ok := parseLicenseID(c)
	if !ok {
		return
	}

	license, err := h.LicenseService.GetByID(id)
	if err != nil {
		if errors.Is(err, service.ErrLicenseNotFound) {
			respondError(c, http.StatusNotFound, "授权不存在", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "授权查询失败", err)
		return
	}

	response.Success(c, license)
}

// GenerateLicenseRequest 手动签发授权请求
type GenerateLicenseRequest struct {
	PlanID         string `json:"plan_id" binding:"required"`
	CustomerEmail  string `json:"customer_email" binding:"required"`
	MaxActivations int    `json:"max_activations"`
}

// GenerateAdminLicense 手动签发授权
func (h *Handler) GenerateAdminLicense(c *gin.Context) {
	var req GenerateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}

	license, err := h.LicenseService.Generate(service.LicenseGenerateInput{
		PlanID:         req.PlanID,
		CustomerEmail:  req.CustomerEmail,
		MaxActivations: req.MaxActivations,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanInvalid):
			respondError(c, http.StatusBadRequest, "套餐不存在", nil)
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, http.StatusBadRequest, "邮箱格式不正确", nil)
		case errors.Is(err, service.ErrLicenseKeyExhausted):
			respondError(c, http.StatusInternalServerError, "授权码生成失败", err)
		default:
			respondError(c, http.StatusInternalServerError, "授权签发失败", err)
		}
		return
	}

	response.Success(c, license)
}

// RevokeAdminLicense 吊销授权
func (h *Handler) RevokeAdminLicense(c *gin.Context) {
	id, ok := parseLicenseID(c)
	if !ok {
		return
	}

	license, err := h.LicenseService.Revoke(id)
	if err != nil {
		if errors.Is(err, service.ErrLicenseNotFound) {
			respondError(c, http.StatusNotFound, "授权不存在", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "授权吊销失败", err)
		return
	}

	response.Success(c, license)
}

func parseLicenseID(c *gin.Context) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || raw == 0 {
		respondError(c, http.StatusBadRequest, "授权 ID 无效", nil)
		return 0, false
	}
	return uint(raw), true
}
