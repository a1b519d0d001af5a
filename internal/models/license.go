package models

import (
	"time"

	"gorm.io/gorm"
)

// License 软件授权许可
type License struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                      // 主键
	LicenseKey      string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"license_key"`  // 授权码
	PlanID          string         `gorm:"type:varchar(64);not null;index" json:"plan_id"`            // 套餐标识
	CustomerEmail   string         `gorm:"type:varchar(255);not null;index" json:"customer_email"`    // 客户邮箱
	OrderID         *uint          `gorm:"index" json:"order_id,omitempty"`                           // 来源订单ID（手工签发为空）
	MachineID       string         `gorm:"type:varchar(128);index" json:"machine_id,omitempty"`       // 绑定的机器标识
	Status          string         `gorm:"type:varchar(20);not null;index" json:"status"`             // 状态
	MaxActivations  int            `gorm:"not null;default:1" json:"max_activations"`                 // 最大激活次数
	ActivationCount int            `gorm:"not null;default:0" json:"activation_count"`                // 已激活次数
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at,omitempty"`                         // 到期时间（空为永久）
	ActivatedAt     *time.Time     `json:"activated_at,omitempty"`                                    // 首次激活时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (License) TableName() string {
	return "licenses"
}

// IsExpired 判断授权是否已过期
func (l *License) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
