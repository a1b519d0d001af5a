package service

import "encoding/json"

// 佣金与提现配置回退默认值（与配置缺失时的行为一致）
const (
	defaultCommissionRateFallback = 10.00
	minWithdrawalFallback         = 100.00
	maxWithdrawalFallback         = 50000.00
)

// AgentLevelRate 代理层级结算比例（百分比）
type AgentLevelRate struct {
	Level int     `json:"level"`
	Rate  float64 `json:"rate"`
}

// DefaultAgentLevels 默认三级结算比例表
func DefaultAgentLevels() []AgentLevelRate {
	return []AgentLevelRate{
		{Level: 1, Rate: 10},
		{Level: 2, Rate: 5},
		{Level: 3, Rate: 2},
	}
}

// RateForLevel 查找层级比例，未命中时返回 false
func RateForLevel(levels []AgentLevelRate, level int) (float64, bool) {
	for _, item := range levels {
		if item.Level == level {
			return item.Rate, true
		}
	}
	return 0, false
}

func parseAgentLevels(raw json.RawMessage) ([]AgentLevelRate, error) {
	var levels []AgentLevelRate
	if err := json.Unmarshal(raw, &levels); err != nil {
		return nil, err
	}
	return levels, nil
}
