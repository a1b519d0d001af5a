package models

import (
	"time"

	"gorm.io/gorm"
)

// CommissionRecord 佣金记录，每个（订单, 代理）对至多一条
type CommissionRecord struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                                    // 主键
	OrderID     uint           `gorm:"not null;index;index:idx_commission_order_agent,unique" json:"order_id"` // 订单ID
	AgentID     uint           `gorm:"not null;index;index:idx_commission_order_agent,unique" json:"agent_id"` // 受益代理ID
	Level       int            `gorm:"not null;default:1" json:"level"`                                         // 佣金层级（直推为 1）
	OrderAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"order_amount"`               // 订单金额
	RatePercent Money          `gorm:"type:decimal(10,2);not null;default:0" json:"rate_percent"`               // 结算比例（百分比）
	Amount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                     // 佣金金额
	Status      string         `gorm:"type:varchar(20);not null;index" json:"status"`                           // 状态
	AdminNotes  string         `gorm:"type:varchar(255)" json:"admin_notes,omitempty"`                          // 审核备注
	ApprovedBy  *uint          `gorm:"index" json:"approved_by,omitempty"`                                      // 审核管理员ID
	ApprovedAt  *time.Time     `gorm:"index" json:"approved_at,omitempty"`                                      // 审核时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                                 // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                                              // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                                          // 软删除时间

	Agent AgentProfile `gorm:"foreignKey:AgentID" json:"agent,omitempty"` // 受益代理
	Order Order        `gorm:"foreignKey:OrderID" json:"order,omitempty"` // 关联订单
}

// TableName 指定表名
func (CommissionRecord) TableName() string {
	return "commission_records"
}
