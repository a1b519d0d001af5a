package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/repository"
	"github.com/shopspring/decimal"
)

// ConfigService 系统配置业务服务
type ConfigService struct {
	repo repository.ConfigRepository
}

// NewConfigService 创建系统配置服务
func NewConfigService(repo repository.ConfigRepository) *ConfigService {
	return &ConfigService{repo: repo}
}

// ConfigKV 管理端配置更新项
type ConfigKV struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// ConfigUpdateResult 配置更新结果
type ConfigUpdateResult struct {
	UpdatedCount int                   `json:"updatedCount"`
	Configs      []models.SystemConfig `json:"configs"`
}

// ListAll 获取全部配置项
func (s *ConfigService) ListAll() ([]models.SystemConfig, error) {
	if s == nil || s.repo == nil {
		return []models.SystemConfig{}, nil
	}
	return s.repo.ListAll()
}

// GetByKey 获取配置原始值，未设置时返回 nil
func (s *ConfigService) GetByKey(key string) (models.JSONDocument, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	config, err := s.repo.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, nil
	}
	return config.ValueJSON, nil
}

// Update 管理端批量更新配置。键必须在白名单内，值必须通过对应校验，
// 任何一项不合法则整批拒绝。
func (s *ConfigService) Update(adminID uint, configs []ConfigKV) (*ConfigUpdateResult, error) {
	if len(configs) == 0 {
		return &ConfigUpdateResult{Configs: []models.SystemConfig{}}, nil
	}

	for _, item := range configs {
		key := strings.TrimSpace(item.Key)
		if !isValidConfigKey(key) {
			return nil, fmt.Errorf("%w: %s", ErrConfigKeyInvalid, item.Key)
		}
		if err := validateConfigValue(key, item.Value); err != nil {
			return nil, err
		}
	}

	result := &ConfigUpdateResult{Configs: make([]models.SystemConfig, 0, len(configs))}
	var updatedBy *uint
	if adminID != 0 {
		updatedBy = &adminID
	}
	for _, item := range configs {
		key := strings.TrimSpace(item.Key)
		saved, err := s.repo.Upsert(key, models.JSONDocument(item.Value), updatedBy)
		if err != nil {
			return nil, err
		}
		result.UpdatedCount++
		result.Configs = append(result.Configs, *saved)
	}
	return result, nil
}

func isValidConfigKey(key string) bool {
	for _, valid := range constants.ValidConfigKeys {
		if key == valid {
			return true
		}
	}
	return false
}

func validateConfigValue(key string, raw json.RawMessage) error {
	switch key {
	case constants.ConfigKeyDefaultCommissionRate, constants.ConfigKeyWithdrawalFeeRate:
		rate, err := parseConfigFloat(raw)
		if err != nil {
			return fmt.Errorf("%w: %s 必须是数字", ErrConfigKeyInvalid, key)
		}
		if rate < 0 || rate > 100 {
			return fmt.Errorf("%w: %s 必须在 0-100 之间", ErrConfigKeyInvalid, key)
		}
	case constants.ConfigKeyMinWithdrawalAmount, constants.ConfigKeyMaxWithdrawalAmount:
		amount, err := parseConfigFloat(raw)
		if err != nil {
			return fmt.Errorf("%w: %s 必须是数字", ErrConfigKeyInvalid, key)
		}
		if amount < 0 {
			return fmt.Errorf("%w: %s 不能小于 0", ErrConfigKeyInvalid, key)
		}
	case constants.ConfigKeyAgentLevels:
		levels, err := parseAgentLevels(raw)
		if err != nil {
			return fmt.Errorf("%w: %s 格式不合法", ErrConfigKeyInvalid, key)
		}
		for _, level := range levels {
			if level.Level <= 0 || level.Rate < 0 || level.Rate > 100 {
				return fmt.Errorf("%w: %s 层级与比例不合法", ErrConfigKeyInvalid, key)
			}
		}
	}
	return nil
}

// GetDefaultCommissionRate 默认佣金比例（百分比），未配置时回退 10.00
func (s *ConfigService) GetDefaultCommissionRate() (decimal.Decimal, error) {
	fallback := decimal.NewFromFloat(defaultCommissionRateFallback)
	raw, err := s.GetByKey(constants.ConfigKeyDefaultCommissionRate)
	if err != nil {
		return fallback, err
	}
	if raw == nil {
		return fallback, nil
	}
	value, err := parseConfigFloat(json.RawMessage(raw))
	if err != nil {
		return fallback, nil
	}
	return decimal.NewFromFloat(value).Round(2), nil
}

// GetAgentLevels 层级比例表，未配置时回退默认三级 10/5/2
func (s *ConfigService) GetAgentLevels() ([]AgentLevelRate, error) {
	fallback := DefaultAgentLevels()
	raw, err := s.GetByKey(constants.ConfigKeyAgentLevels)
	if err != nil {
		return fallback, err
	}
	if raw == nil {
		return fallback, nil
	}
	levels, err := parseAgentLevels(json.RawMessage(raw))
	if err != nil || len(levels) == 0 {
		return fallback, nil
	}
	return levels, nil
}

// GetWithdrawalBounds 提现金额上下限，未配置时回退 100.00 / 50000.00
func (s *ConfigService) GetWithdrawalBounds() (decimal.Decimal, decimal.Decimal, error) {
	min := decimal.NewFromFloat(minWithdrawalFallback)
	max := decimal.NewFromFloat(maxWithdrawalFallback)

	if raw, err := s.GetByKey(constants.ConfigKeyMinWithdrawalAmount); err != nil {
		return min, max, err
	} else if raw != nil {
		if value, parseErr := parseConfigFloat(json.RawMessage(raw)); parseErr == nil {
			min = decimal.NewFromFloat(value).Round(2)
		}
	}

	if raw, err := s.GetByKey(constants.ConfigKeyMaxWithdrawalAmount); err != nil {
		return min, max, err
	} else if raw != nil {
		if value, parseErr := parseConfigFloat(json.RawMessage(raw)); parseErr == nil {
			max = decimal.NewFromFloat(value).Round(2)
		}
	}

	return min, max, nil
}

// GetWithdrawalFeeRate 提现手续费率（百分比），未配置时回退 0
func (s *ConfigService) GetWithdrawalFeeRate() (decimal.Decimal, error) {
	raw, err := s.GetByKey(constants.ConfigKeyWithdrawalFeeRate)
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	value, parseErr := parseConfigFloat(json.RawMessage(raw))
	if parseErr != nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(value).Round(2), nil
}

func parseConfigFloat(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("empty value")
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}
	// 兼容历史数据里以字符串存储的数字
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, err
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, fmt.Errorf("empty string")
	}
	var parsed float64
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return 0, err
	}
	return parsed, nil
}
