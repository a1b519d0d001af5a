package queue

import (
	"encoding/json"

	"github.com/leadscout/leadscout-api/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderPaidEmail 订单支付成功邮件任务
	TaskOrderPaidEmail = constants.TaskOrderPaidEmail
	// TaskOrderTimeoutCancel 订单超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
	// TaskWithdrawalResultEmail 提现结果通知邮件任务
	TaskWithdrawalResultEmail = constants.TaskWithdrawalEmail
	// TaskTrackingAggregate 打点统计聚合任务
	TaskTrackingAggregate = constants.TaskTrackingAggregate
)

// OrderPaidEmailPayload 订单支付成功邮件任务载荷
type OrderPaidEmailPayload struct {
	OrderID uint `json:"order_id"`
}

// OrderTimeoutCancelPayload 订单超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// WithdrawalResultEmailPayload 提现结果通知任务载荷
type WithdrawalResultEmailPayload struct {
	WithdrawalID uint   `json:"withdrawal_id"`
	Status       string `json:"status"`
}

// TrackingAggregatePayload 打点统计聚合任务载荷
type TrackingAggregatePayload struct {
	UserID uint `json:"user_id"`
}

// NewOrderPaidEmailTask 创建订单支付成功邮件任务
func NewOrderPaidEmailTask(payload OrderPaidEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPaidEmail, body), nil
}

// NewOrderTimeoutCancelTask 创建订单超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}

// NewWithdrawalResultEmailTask 创建提现结果通知任务
func NewWithdrawalResultEmailTask(payload WithdrawalResultEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWithdrawalResultEmail, body), nil
}

// NewTrackingAggregateTask 创建打点统计聚合任务
func NewTrackingAggregateTask(payload TrackingAggregatePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTrackingAggregate, body), nil
}
