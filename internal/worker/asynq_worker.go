package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/leadscout/leadscout-api/internal/logger"
	"github.com/leadscout/leadscout-api/internal/provider"
	"github.com/leadscout/leadscout-api/internal/queue"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderPaidEmail, c.handleOrderPaidEmail)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
	mux.HandleFunc(queue.TaskWithdrawalResultEmail, c.handleWithdrawalResultEmail)
	mux.HandleFunc(queue.TaskTrackingAggregate, c.handleTrackingAggregate)
}

func (c *Consumer) handleOrderPaidEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_paid_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderPaidEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_paid_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_paid_email_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_paid_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_order_paid_email_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}
	receiverEmail := strings.TrimSpace(order.CustomerEmail)
	if receiverEmail == "" {
		logger.Debugw("worker_order_paid_email_skip_empty_receiver", "order_id", order.ID, "out_trade_no", order.OutTradeNo)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_order_paid_email_skip_email_service_nil", "order_id", order.ID, "out_trade_no", order.OutTradeNo)
		return nil
	}
	planName := order.PlanID
	if plan, ok := c.PlanCatalog.Get(order.PlanID); ok {
		planName = plan.Name
	}
	input := service.OrderPaidEmailInput{
		OrderNo:  order.OutTradeNo,
		PlanName: planName,
		Amount:   order.Amount,
	}
	// 授权码在支付结算事务里签发，这里按订单反查带上
	license, err := c.LicenseRepo.GetByOrderID(order.ID)
	if err != nil {
		logger.Warnw("worker_order_paid_email_fetch_license_failed", "order_id", order.ID, "error", err)
		return err
	}
	if license != nil {
		input.LicenseKey = license.LicenseKey
	}
	if err := c.EmailService.SendOrderPaidEmail(receiverEmail, input); err != nil {
		logger.Warnw("worker_order_paid_email_send_failed",
			"order_id", order.ID,
			"out_trade_no", order.OutTradeNo,
			"receiver_email", receiverEmail,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.OrderService.ExpireOrder(payload.OrderID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logger.Debugw("worker_order_timeout_cancel_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		}
		logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleWithdrawalResultEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_withdrawal_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.WithdrawalResultEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_withdrawal_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.WithdrawalID == 0 {
		logger.Debugw("worker_withdrawal_email_skip_invalid_payload", "withdrawal_id", payload.WithdrawalID)
		return nil
	}
	request, err := c.WithdrawalRepo.GetByID(payload.WithdrawalID)
	if err != nil {
		logger.Warnw("worker_withdrawal_email_fetch_failed", "withdrawal_id", payload.WithdrawalID, "error", err)
		return err
	}
	if request == nil {
		logger.Debugw("worker_withdrawal_email_skip_not_found", "withdrawal_id", payload.WithdrawalID)
		return nil
	}
	agent, err := c.AgentRepo.GetByID(request.AgentID)
	if err != nil {
		logger.Warnw("worker_withdrawal_email_fetch_agent_failed", "withdrawal_id", request.ID, "agent_id", request.AgentID, "error", err)
		return err
	}
	if agent == nil || strings.TrimSpace(agent.Email) == "" {
		logger.Debugw("worker_withdrawal_email_skip_empty_receiver", "withdrawal_id", request.ID, "agent_id", request.AgentID)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_withdrawal_email_skip_email_service_nil", "withdrawal_id", request.ID)
		return nil
	}
	status := strings.TrimSpace(payload.Status)
	if status == "" {
		status = request.Status
	}
	input := service.WithdrawalResultEmailInput{
		WithdrawalID: request.ID,
		Amount:       request.Amount,
		ActualAmount: request.ActualAmount,
		Status:       status,
		Notes:        request.AdminNotes,
	}
	if err := c.EmailService.SendWithdrawalResultEmail(strings.TrimSpace(agent.Email), input); err != nil {
		logger.Warnw("worker_withdrawal_email_send_failed",
			"withdrawal_id", request.ID,
			"agent_id", request.AgentID,
			"status", status,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleTrackingAggregate(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_tracking_aggregate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.TrackingAggregatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_tracking_aggregate_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 {
		logger.Debugw("worker_tracking_aggregate_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	if c.TrackingService == nil {
		logger.Warnw("worker_tracking_aggregate_skip_service_nil", "user_id", payload.UserID)
		return nil
	}
	if err := c.TrackingService.Aggregate(payload.UserID); err != nil {
		logger.Warnw("worker_tracking_aggregate_failed", "user_id", payload.UserID, "error", err)
		return err
	}
	return nil
}
