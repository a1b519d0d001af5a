package models

import "time"

// SystemConfig 系统配置表（键值对存储，值为任意 JSON）
type SystemConfig struct {
	Key         string       `gorm:"primarykey" json:"key"`                     // 配置键
	ValueJSON   JSONDocument `gorm:"type:json" json:"value"`                    // 配置值
	Description string       `gorm:"type:varchar(255)" json:"description"`      // 配置说明
	UpdatedBy   *uint        `json:"updated_by,omitempty"`                      // 最近修改管理员ID
	UpdatedAt   time.Time    `json:"updated_at"`                                // 更新时间
}

// TableName 指定表名
func (SystemConfig) TableName() string {
	return "system_configs"
}
