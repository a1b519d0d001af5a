package models

import (
	"time"

	"gorm.io/gorm"
)

// WithdrawalRequest 提现申请。余额在申请时即扣减，拒绝时原额返还。
// uniq_withdrawal_agent_pending 为部分唯一索引，保证每个代理同一时刻
// 至多一条 pending 申请（sqlite/postgres 均支持 WHERE 条件索引）。
type WithdrawalRequest struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                       // 主键
	AgentID       uint           `gorm:"not null;index" json:"agent_id"`                             // 代理ID
	Amount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`        // 申请金额
	FeeAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"fee_amount"`    // 手续费
	ActualAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"actual_amount"` // 实际到账金额
	AlipayAccount string         `gorm:"type:varchar(128);not null" json:"alipay_account"`           // 支付宝收款账号
	RealName      string         `gorm:"type:varchar(100);not null" json:"real_name"`                // 收款人姓名
	Status        string         `gorm:"type:varchar(20);not null;index" json:"status"`              // 状态
	AdminNotes    string         `gorm:"type:varchar(255)" json:"admin_notes,omitempty"`             // 审核备注
	ProcessedBy   *uint          `gorm:"index" json:"processed_by,omitempty"`                        // 处理管理员ID
	ProcessedAt   *time.Time     `gorm:"index" json:"processed_at,omitempty"`                        // 处理时间
	TransferRef   string         `gorm:"type:varchar(64);index" json:"transfer_ref,omitempty"`       // 转账商户单号
	AlipayOrderID string         `gorm:"type:varchar(64)" json:"alipay_order_id,omitempty"`          // 支付宝转账单号
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                                 // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间

	Agent AgentProfile `gorm:"foreignKey:AgentID" json:"agent,omitempty"` // 申请代理
}

// TableName 指定表名
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
