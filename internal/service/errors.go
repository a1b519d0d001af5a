package service

import "errors"

// 通用业务错误
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidAction = errors.New("invalid action")
)

// 账号与鉴权错误
var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUserDisabled       = errors.New("user disabled")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAgreementRequired  = errors.New("agreement must be accepted")
	ErrWeakPassword       = errors.New("password too weak")
	ErrProfileEmpty       = errors.New("profile update is empty")
	ErrEmailChangeInvalid = errors.New("email change request invalid")
	ErrEmailChangeExists  = errors.New("email already used by another account")
)

// 图形验证码错误
var (
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrCaptchaVerifyFailed  = errors.New("captcha verify failed")
)

// 邮箱验证码错误
var (
	ErrInvalidVerifyPurpose       = errors.New("verify purpose invalid")
	ErrVerifyCodeInvalid          = errors.New("verify code invalid or expired")
	ErrVerifyCodeExpired          = errors.New("verify code expired")
	ErrVerifyCodeAttemptsExceeded = errors.New("verify code attempts exceeded")
	ErrVerifyCodeTooFrequent      = errors.New("verify code requested too frequently")
)

// 邮件发送错误
var (
	ErrInvalidEmail              = errors.New("email address invalid")
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)

// 看板错误
var ErrDashboardRangeInvalid = errors.New("dashboard range invalid")

// 代理错误
var (
	ErrAgentNotFound       = errors.New("agent not found")
	ErrAgentSuspended      = errors.New("agent suspended")
	ErrParentAgentNotFound = errors.New("parent agent not found")
	ErrAgentCodeExhausted  = errors.New("agent code generation attempts exhausted")
	ErrAgentHasNoAccount   = errors.New("agent has no bound user account")
)

// 佣金错误
var (
	ErrCommissionExists   = errors.New("commissions already allocated for order")
	ErrCommissionNotFound = errors.New("commission record not found")
)

// 提现错误
var (
	ErrWithdrawalNotFound       = errors.New("withdrawal request not found")
	ErrWithdrawalAmountInvalid  = errors.New("withdrawal amount invalid")
	ErrWithdrawalBelowMinimum   = errors.New("withdrawal amount below minimum")
	ErrWithdrawalAboveMaximum   = errors.New("withdrawal amount above maximum")
	ErrWithdrawalPendingExists  = errors.New("pending withdrawal already exists")
	ErrWithdrawalNotPending     = errors.New("withdrawal request not pending")
	ErrBalanceInsufficient      = errors.New("available balance insufficient")
	ErrWithdrawalAccountMissing = errors.New("payout account missing")
)

// 订单与支付错误
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderExists      = errors.New("order already exists")
	ErrPlanInvalid      = errors.New("plan invalid")
	ErrPaymentGateway   = errors.New("payment gateway error")
	ErrSignatureInvalid = errors.New("callback signature invalid")
)

// 授权许可错误
var (
	ErrLicenseNotFound        = errors.New("license not found")
	ErrLicenseKeyExhausted    = errors.New("license key generation attempts exhausted")
	ErrLicenseRevoked         = errors.New("license revoked")
	ErrLicenseExpired         = errors.New("license expired")
	ErrLicenseMachineMismatch = errors.New("license bound to another machine")
	ErrLicenseActivationLimit = errors.New("license activation limit reached")
)

// 系统配置错误
var ErrConfigKeyInvalid = errors.New("config key not allowed")

// 邮件追踪错误
var ErrTrackingQuotaExceeded = errors.New("tracking daily quota exceeded")
