package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OutTradeNo    string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"out_trade_no"` // 商户订单号
	CustomerEmail string         `gorm:"type:varchar(255);not null;index" json:"customer_email"`    // 客户邮箱
	PlanID        string         `gorm:"type:varchar(64);not null;index" json:"plan_id"`            // 套餐标识
	Amount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`       // 订单金额
	AgentCode     string         `gorm:"type:varchar(32);index" json:"agent_code,omitempty"`        // 推荐代理邀请码（可空）
	Status        string         `gorm:"type:varchar(20);not null;index" json:"status"`             // 订单状态
	AlipayTradeNo string         `gorm:"type:varchar(64)" json:"alipay_trade_no,omitempty"`         // 支付宝交易号
	QRCode        string         `gorm:"type:varchar(512)" json:"qr_code,omitempty"`                // 收款二维码内容
	ClientIP      string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`               // 下单客户端IP
	ExpiresAt     *time.Time     `gorm:"index" json:"expires_at,omitempty"`                         // 过期时间
	PaidAt        *time.Time     `gorm:"index" json:"paid_at,omitempty"`                            // 支付时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
