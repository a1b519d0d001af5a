package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/logger"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/payment/alipay"
	"github.com/leadscout/leadscout-api/internal/queue"
	"github.com/leadscout/leadscout-api/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultOrderExpireMinutes = 30

// OrderService 订单业务服务
type OrderService struct {
	orderRepo         repository.OrderRepository
	agentRepo         repository.AgentRepository
	licenseService    *LicenseService
	commissionService *CommissionService
	agentService      *AgentService
	plans             *PlanCatalog
	alipayConfig      *alipay.Config
	queueClient       *queue.Client
	expireMinutes     int
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	agentRepo repository.AgentRepository,
	licenseService *LicenseService,
	commissionService *CommissionService,
	agentService *AgentService,
	plans *PlanCatalog,
	alipayConfig *alipay.Config,
	queueClient *queue.Client,
	expireMinutes int,
) *OrderService {
	if expireMinutes <= 0 {
		expireMinutes = defaultOrderExpireMinutes
	}
	if plans == nil {
		plans = NewPlanCatalog(nil)
	}
	return &OrderService{
		orderRepo:         orderRepo,
		agentRepo:         agentRepo,
		licenseService:    licenseService,
		commissionService: commissionService,
		agentService:      agentService,
		plans:             plans,
		alipayConfig:      alipayConfig,
		queueClient:       queueClient,
		expireMinutes:     expireMinutes,
	}
}

// OrderCreateInput 下单输入
type OrderCreateInput struct {
	PlanID        string
	CustomerEmail string
	AgentCode     string
	ClientIP      string
}

// OrderCreateResult 下单结果
type OrderCreateResult struct {
	OrderID    uint         `json:"orderId"`
	OutTradeNo string       `json:"outTradeNo"`
	PlanID     string       `json:"planId"`
	Amount     models.Money `json:"amount"`
	QRCode     string       `json:"qrCode"`
	ExpiresAt  *time.Time   `json:"expiresAt,omitempty"`
}

// CreateOrder 创建订单并发起支付宝扫码预下单。无效的推荐码不阻断
// 下单，仅丢弃归因。
func (s *OrderService) CreateOrder(ctx context.Context, input OrderCreateInput) (*OrderCreateResult, error) {
	plan, ok := s.plans.Get(input.PlanID)
	if !ok {
		return nil, ErrPlanInvalid
	}
	email := strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	if email == "" {
		return nil, ErrInvalidAction
	}

	agentCode := strings.ToUpper(strings.TrimSpace(input.AgentCode))
	if agentCode != "" {
		agent, err := s.agentRepo.GetByCode(agentCode)
		if err != nil {
			return nil, err
		}
		if agent == nil || agent.Status != constants.AgentStatusActive {
			logger.Infow("order_agent_code_dropped", "agent_code", agentCode, "email", email)
			agentCode = ""
		}
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(s.expireMinutes) * time.Minute)
	order := &models.Order{
		OutTradeNo:    generateOutTradeNo(),
		CustomerEmail: email,
		PlanID:        plan.ID,
		Amount:        models.NewMoneyFromDecimal(plan.Price.Round(2)),
		AgentCode:     agentCode,
		Status:        constants.OrderStatusPendingPayment,
		ClientIP:      strings.TrimSpace(input.ClientIP),
		ExpiresAt:     &expiresAt,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	payment, err := alipay.CreatePayment(ctx, s.alipayConfig, alipay.CreateInput{
		OrderNo:        order.OutTradeNo,
		Amount:         order.Amount.Decimal.StringFixed(2),
		Subject:        plan.Name,
		TimeoutExpress: fmt.Sprintf("%dm", s.expireMinutes),
	}, constants.PaymentInteractionQR)
	if err != nil {
		logger.Errorw("order_precreate_failed", "out_trade_no", order.OutTradeNo, "error", err)
		return nil, ErrPaymentGateway
	}
	order.QRCode = payment.QRCode
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}

	if s.queueClient != nil {
		if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{
			OrderID: order.ID,
		}, time.Until(expiresAt)); err != nil {
			logger.Warnw("order_timeout_enqueue_failed", "out_trade_no", order.OutTradeNo, "error", err)
		}
	}

	return &OrderCreateResult{
		OrderID:    order.ID,
		OutTradeNo: order.OutTradeNo,
		PlanID:     order.PlanID,
		Amount:     order.Amount,
		QRCode:     order.QRCode,
		ExpiresAt:  order.ExpiresAt,
	}, nil
}

// GetByOutTradeNo 按商户订单号查询订单，供前端轮询支付状态
func (s *OrderService) GetByOutTradeNo(outTradeNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOutTradeNo(strings.TrimSpace(outTradeNo))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// HandleAlipayNotify 处理支付宝异步回调。验签失败返回错误；已支付
// 订单幂等确认；支付成功后签发授权、登记推荐关系、分配佣金并推送
// 通知邮件，后置动作失败不回滚支付状态。
func (s *OrderService) HandleAlipayNotify(ctx context.Context, form url.Values) error {
	if err := alipay.VerifyCallback(s.alipayConfig, form); err != nil {
		logger.Warnw("alipay_notify_verify_failed", "error", err)
		return ErrSignatureInvalid
	}

	tradeStatus := strings.TrimSpace(form.Get("trade_status"))
	if tradeStatus != constants.AlipayTradeStatusSuccess && tradeStatus != constants.AlipayTradeStatusFinished {
		// 非终态回调直接确认，等待后续通知
		return nil
	}
	outTradeNo := strings.TrimSpace(form.Get("out_trade_no"))
	if outTradeNo == "" {
		return ErrOrderNotFound
	}

	var paidOrder *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.orderRepo.WithTx(tx)
		order, err := repoTx.GetByOutTradeNoForUpdate(outTradeNo)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status == constants.OrderStatusPaid {
			return nil
		}
		if order.Status != constants.OrderStatusPendingPayment && order.Status != constants.OrderStatusExpired {
			logger.Warnw("alipay_notify_unexpected_status",
				"out_trade_no", outTradeNo,
				"status", order.Status,
			)
			return nil
		}
		if amountRaw := strings.TrimSpace(form.Get("total_amount")); amountRaw != "" {
			paid, err := decimal.NewFromString(amountRaw)
			if err != nil || !paid.Round(2).Equal(order.Amount.Decimal.Round(2)) {
				logger.Errorw("alipay_notify_amount_mismatch",
					"out_trade_no", outTradeNo,
					"expected", order.Amount.String(),
					"actual", amountRaw,
				)
				return ErrSignatureInvalid
			}
		}

		now := time.Now()
		order.Status = constants.OrderStatusPaid
		order.PaidAt = &now
		order.AlipayTradeNo = strings.TrimSpace(form.Get("trade_no"))
		if err := repoTx.Update(order); err != nil {
			return err
		}
		paidOrder = order
		return nil
	})
	if err != nil {
		return err
	}
	if paidOrder == nil {
		return nil
	}

	s.settleAfterPayment(paidOrder)
	return nil
}

// ExpireOrder 超时取消任务回调，仍未支付的订单标记过期
func (s *OrderService) ExpireOrder(orderID uint) error {
	return s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.orderRepo.WithTx(tx)
		order, err := repoTx.GetByID(orderID)
		if err != nil {
			return err
		}
		if order == nil || order.Status != constants.OrderStatusPendingPayment {
			return nil
		}
		order.Status = constants.OrderStatusExpired
		return repoTx.Update(order)
	})
}

// GetByID 按ID获取订单
func (s *OrderService) GetByID(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// List 分页查询订单
func (s *OrderService) List(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// settleAfterPayment 支付成功后的结算动作，逐项独立、失败只记日志
func (s *OrderService) settleAfterPayment(order *models.Order) {
	if _, err := s.licenseService.Generate(LicenseGenerateInput{
		PlanID:        order.PlanID,
		CustomerEmail: order.CustomerEmail,
		OrderID:       &order.ID,
	}); err != nil {
		logger.Errorw("order_license_issue_failed", "out_trade_no", order.OutTradeNo, "error", err)
	}

	if order.AgentCode != "" {
		if _, err := s.agentService.AcceptInvitation(order.AgentCode, order.CustomerEmail); err != nil {
			logger.Warnw("order_invitation_accept_failed",
				"out_trade_no", order.OutTradeNo,
				"agent_code", order.AgentCode,
				"error", err,
			)
		}
	}

	if _, err := s.commissionService.Allocate(CommissionAllocateInput{
		OrderID:       order.ID,
		CustomerEmail: order.CustomerEmail,
		OrderAmount:   order.Amount.Decimal,
	}); err != nil && !errors.Is(err, ErrCommissionExists) {
		logger.Errorw("order_commission_allocate_failed", "out_trade_no", order.OutTradeNo, "error", err)
	}

	if s.queueClient != nil {
		if err := s.queueClient.EnqueueOrderPaidEmail(queue.OrderPaidEmailPayload{OrderID: order.ID}); err != nil {
			logger.Warnw("order_paid_email_enqueue_failed", "out_trade_no", order.OutTradeNo, "error", err)
		}
	}
}

// generateOutTradeNo 生成商户订单号
func generateOutTradeNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("LS%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
