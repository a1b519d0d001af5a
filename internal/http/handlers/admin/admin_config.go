package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminConfigs 获取全部系统配置
func (h *Handler) GetAdminConfigs(c *gin.Context) {
	configs, err := h.ConfigService.ListAll()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "系统配置查询失败", err)
		return
	}
	response.Success(c, configs)
}

// GetAdminConfig 按键获取系统配置
func (h *Handler) GetAdminConfig(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		respondError(c, http.StatusBadRequest, "配置键不能为空", nil)
		return
	}

	value, err := h.ConfigService.GetByKey(key)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConfigKeyInvalid):
			respondError(c, http.StatusBadRequest, "配置键不在白名单内", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, http.StatusNotFound, "配置项不存在", nil)
		default:
			respondError(c, http.StatusInternalServerError, "系统配置查询失败", err)
		}
		return
	}

	response.Success(c, gin.H{"key": key, "value": value})
}

// UpdateConfigsRequest 批量更新配置请求
type UpdateConfigsRequest struct {
	Configs []service.ConfigKV `json:"configs" binding:"required"`
}

// UpdateAdminConfigs 批量更新系统配置
func (h *Handler) UpdateAdminConfigs(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdateConfigsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数有误", err)
		return
	}
	if len(req.Configs) == 0 {
		respondError(c, http.StatusBadRequest, "配置列表不能为空", nil)
		return
	}

	result, err := h.ConfigService.Update(adminID, req.Configs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConfigKeyInvalid):
			respondError(c, http.StatusBadRequest, "配置键不在白名单内", nil)
		case errors.Is(err, service.ErrInvalidAction):
			respondError(c, http.StatusBadRequest, "配置值格式错误", nil)
		default:
			respondError(c, http.StatusInternalServerError, "系统配置更新失败", err)
		}
		return
	}

	response.Success(c, result)
}
