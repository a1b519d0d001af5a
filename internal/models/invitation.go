package models

import (
	"time"

	"gorm.io/gorm"
)

// Invitation 客户邀请记录，将客户邮箱绑定到推荐代理
type Invitation struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                                               // 主键
	AgentID       uint           `gorm:"not null;index" json:"agent_id"`                                                     // 推荐代理ID
	CustomerEmail string         `gorm:"type:varchar(255);not null;index:idx_invitation_email_status" json:"customer_email"` // 客户邮箱
	Status        string         `gorm:"type:varchar(20);not null;index:idx_invitation_email_status" json:"status"`          // 状态
	AcceptedAt    *time.Time     `gorm:"index" json:"accepted_at,omitempty"`                                                 // 接受时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                                            // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                                                         // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                                                     // 软删除时间

	Agent AgentProfile `gorm:"foreignKey:AgentID" json:"agent,omitempty"` // 推荐代理
}

// TableName 指定表名
func (Invitation) TableName() string {
	return "invitations"
}
