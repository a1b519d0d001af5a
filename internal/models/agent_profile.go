package models

import (
	"time"

	"gorm.io/gorm"
)

// AgentProfile 销售代理档案，parent_agent_id 构成代理树
type AgentProfile struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                           // 主键
	UserID           *uint          `gorm:"uniqueIndex" json:"user_id,omitempty"`                           // 关联用户ID（可空，线下代理无账号）
	RealName         string         `gorm:"type:varchar(100);not null" json:"real_name"`                    // 真实姓名
	Phone            string         `gorm:"type:varchar(32)" json:"phone,omitempty"`                        // 手机号
	Email            string         `gorm:"type:varchar(255);index" json:"email,omitempty"`                 // 邮箱
	AgentCode        string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"agent_code"`        // 代理邀请码
	ParentAgentID    *uint          `gorm:"index" json:"parent_agent_id,omitempty"`                         // 上级代理ID（空为根代理）
	Level            int            `gorm:"not null;default:1" json:"level"`                                // 层级（根为 1）
	CommissionRate   *Money         `gorm:"type:decimal(10,2)" json:"commission_rate,omitempty"`            // 佣金比例覆盖（百分比，空则走层级表）
	TotalCommission  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_commission"`  // 累计佣金
	AvailableBalance Money          `gorm:"type:decimal(20,2);not null;default:0" json:"available_balance"` // 可提现余额
	AlipayAccount    string         `gorm:"type:varchar(128)" json:"alipay_account,omitempty"`              // 默认支付宝收款账号
	Status           string         `gorm:"type:varchar(20);not null;index" json:"status"`                  // 状态
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                        // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                                 // 软删除时间

	ParentAgent *AgentProfile `gorm:"foreignKey:ParentAgentID" json:"parent_agent,omitempty"` // 上级代理
	User        *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`                // 关联用户
}

// TableName 指定表名
func (AgentProfile) TableName() string {
	return "agent_profiles"
}
