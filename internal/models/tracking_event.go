package models

import "time"

// TrackingEvent 邮件追踪事件（打开/点击），由像素与跳转端点写入
type TrackingEvent struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                        // 主键
	Token          string    `gorm:"type:varchar(64);not null;index" json:"token"`                                // 追踪令牌
	UserID         uint      `gorm:"not null;index" json:"user_id"`                                               // 发信用户ID
	Event          string    `gorm:"type:varchar(20);not null;index:idx_tracking_event_recipient" json:"event"`   // 事件类型
	RecipientEmail string    `gorm:"type:varchar(255);index:idx_tracking_event_recipient" json:"recipient_email"` // 收件人邮箱
	TargetURL      string    `gorm:"type:varchar(1024)" json:"target_url,omitempty"`                              // 点击目标地址（open 为空）
	UserAgent      string    `gorm:"type:varchar(512)" json:"user_agent,omitempty"`                               // 客户端 UA
	ClientIP       string    `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                                 // 客户端IP
	OccurredAt     time.Time `gorm:"index" json:"occurred_at"`                                                    // 事件时间
	CreatedAt      time.Time `json:"created_at"`                                                                  // 创建时间
}

// TableName 指定表名
func (TrackingEvent) TableName() string {
	return "tracking_events"
}

// TrackingRecipientStat 按收件人聚合的追踪统计，由后台任务重建
type TrackingRecipientStat struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                                             // 主键
	UserID         uint       `gorm:"not null;index;index:idx_tracking_stat_unique,unique" json:"user_id"`              // 发信用户ID
	RecipientEmail string     `gorm:"type:varchar(255);not null;index:idx_tracking_stat_unique,unique" json:"recipient_email"` // 收件人邮箱
	OpenCount      int64      `gorm:"not null;default:0" json:"open_count"`                                             // 打开次数
	ClickCount     int64      `gorm:"not null;default:0" json:"click_count"`                                            // 点击次数
	FirstOpenAt    *time.Time `json:"first_open_at,omitempty"`                                                          // 首次打开时间
	LastEventAt    *time.Time `gorm:"index" json:"last_event_at,omitempty"`                                             // 最近事件时间
	UpdatedAt      time.Time  `json:"updated_at"`                                                                       // 更新时间
	CreatedAt      time.Time  `json:"created_at"`                                                                       // 创建时间
}

// TableName 指定表名
func (TrackingRecipientStat) TableName() string {
	return "tracking_recipient_stats"
}
