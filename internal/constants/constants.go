package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusExpired        = "expired"
	OrderStatusCanceled       = "canceled"
)

// 代理状态常量
const (
	AgentStatusActive    = "active"
	AgentStatusSuspended = "suspended"
)

// 佣金记录状态常量
const (
	CommissionStatusPending  = "pending"
	CommissionStatusApproved = "approved"
	CommissionStatusRejected = "rejected"
)

// 佣金审核动作常量
const (
	CommissionActionApprove = "approve"
	CommissionActionReject  = "reject"
)

// 提现申请状态常量
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusPaid     = "paid"
	WithdrawalStatusRejected = "rejected"
)

// 提现审核动作常量
const (
	WithdrawalActionApprove = "approve"
	WithdrawalActionReject  = "reject"
)

// 邀请状态常量
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
)

// 授权许可状态常量
const (
	LicenseStatusUnused  = "unused"
	LicenseStatusActive  = "active"
	LicenseStatusExpired = "expired"
	LicenseStatusRevoked = "revoked"
)

// 邮件追踪事件常量
const (
	TrackingEventOpen  = "open"
	TrackingEventClick = "click"
)

// 支付宝交互模式常量
const (
	PaymentInteractionQR   = "qr"
	PaymentInteractionWAP  = "wap"
	PaymentInteractionPage = "page"
)

// 支付宝回调常量
const (
	AlipayTradeStatusSuccess      = "TRADE_SUCCESS"
	AlipayTradeStatusFinished     = "TRADE_FINISHED"
	AlipayTradeStatusClosed       = "TRADE_CLOSED"
	AlipayTradeStatusWaitBuyerPay = "WAIT_BUYER_PAY"
	AlipayCallbackSuccess         = "success"
	AlipayCallbackFail            = "fail"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 验证码用途常量
const (
	VerifyPurposeRegister       = "register"
	VerifyPurposeReset          = "reset"
	VerifyPurposeChangeEmailOld = "change_email_old"
	VerifyPurposeChangeEmailNew = "change_email_new"
)

// 用户登录日志常量
const (
	LoginLogStatusSuccess = "success"
	LoginLogStatusFailed  = "failed"

	LoginLogSourceWeb = "web"

	LoginLogFailReasonBadRequest           = "bad_request"
	LoginLogFailReasonCaptchaRequired      = "captcha_required"
	LoginLogFailReasonCaptchaInvalid       = "captcha_invalid"
	LoginLogFailReasonCaptchaConfigInvalid = "captcha_config_invalid"
	LoginLogFailReasonCaptchaVerifyFailed  = "captcha_verify_failed"
	LoginLogFailReasonInvalidEmail         = "invalid_email"
	LoginLogFailReasonInvalidCredentials   = "invalid_credentials"
	LoginLogFailReasonEmailNotVerified     = "email_not_verified"
	LoginLogFailReasonUserDisabled         = "user_disabled"
	LoginLogFailReasonInternalError        = "internal_error"
)

// 人机验证提供方常量
const (
	CaptchaProviderNone      = "none"
	CaptchaProviderImage     = "image"
	CaptchaProviderTurnstile = "turnstile"
)

// 人机验证场景常量
const (
	CaptchaSceneLogin            = "login"
	CaptchaSceneRegisterSendCode = "register_send_code"
	CaptchaSceneResetSendCode    = "reset_send_code"
	CaptchaSceneGuestCreateOrder = "guest_create_order"
)

// 队列常量
const (
	QueueDefault           = "default"
	TaskOrderPaidEmail     = "order:paid_email"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
	TaskWithdrawalEmail    = "withdrawal:result_email"
	TaskTrackingAggregate  = "tracking:aggregate_stats"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "ls"
)

// 系统配置键常量
const (
	ConfigKeyDefaultCommissionRate = "default_commission_rate"
	ConfigKeyAgentLevels           = "agent_levels"
	ConfigKeyMinWithdrawalAmount   = "min_withdrawal_amount"
	ConfigKeyMaxWithdrawalAmount   = "max_withdrawal_amount"
	ConfigKeyWithdrawalFeeRate     = "withdrawal_fee_rate"
)

// ValidConfigKeys 管理端允许写入的系统配置键
var ValidConfigKeys = []string{
	ConfigKeyDefaultCommissionRate,
	ConfigKeyAgentLevels,
	ConfigKeyMinWithdrawalAmount,
	ConfigKeyMaxWithdrawalAmount,
	ConfigKeyWithdrawalFeeRate,
}

// 唯一编码生成常量
const (
	CodeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeMaxAttempts = 10
	AgentCodeLength = 8
)

// 授权码格式常量
const (
	LicenseKeyPrefix    = "LS"
	LicenseKeyGroups    = 4
	LicenseKeyGroupSize = 4
)

// 代理链最大解析深度（防御脏数据成环）
const AgentChainMaxDepth = 10

// 邮件追踪免费版每日事件额度
const TrackingFreeDailyQuota = 5000
