package repository

import "time"

// AgentListFilter 查询代理列表的过滤条件
type AgentListFilter struct {
	Page          int
	PageSize      int
	Keyword       string
	Status        string
	ParentAgentID uint
	Level         int
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// CommissionListFilter 查询佣金记录列表的过滤条件
type CommissionListFilter struct {
	Page        int
	PageSize    int
	AgentID     uint
	OrderID     uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WithdrawalListFilter 查询提现申请列表的过滤条件
type WithdrawalListFilter struct {
	Page        int
	PageSize    int
	AgentID     uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	OutTradeNo    string
	CustomerEmail string
	PlanID        string
	AgentCode     string
	Status        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// LicenseListFilter 查询授权许可列表的过滤条件
type LicenseListFilter struct {
	Page          int
	PageSize      int
	CustomerEmail string
	PlanID        string
	Status        string
	LicenseKey    string
}

// InvitationListFilter 查询邀请记录列表的过滤条件
type InvitationListFilter struct {
	Page          int
	PageSize      int
	AgentID       uint
	CustomerEmail string
	Status        string
}

// TrackingEventListFilter 查询追踪事件列表的过滤条件
type TrackingEventListFilter struct {
	Page           int
	PageSize       int
	UserID         uint
	Token          string
	Event          string
	RecipientEmail string
	OccurredFrom   *time.Time
	OccurredTo     *time.Time
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page          int
	PageSize      int
	Keyword       string
	Status        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	LastLoginFrom *time.Time
	LastLoginTo   *time.Time
}

// UserLoginLogListFilter 查询用户登录日志列表的过滤条件
type UserLoginLogListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Email       string
	Status      string
	FailReason  string
	ClientIP    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AuthzAuditLogListFilter 查询权限审计日志列表的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
	Object          string
	Method          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
