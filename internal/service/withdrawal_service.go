package service

import (
	"context"
	"errors"
	"fmt"
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

// WithdrawalGateway 提现打款网关
type WithdrawalGateway interface {
	Transfer(ctx context.Context, outBizNo, payeeAccount, payeeRealName string, amount decimal.Decimal) (orderID string, err error)
}

// AlipayWithdrawalGateway 支付宝单笔转账打款网关
type AlipayWithdrawalGateway struct {
	cfg *alipay.Config
}

// NewAlipayWithdrawalGateway 创建支付宝打款网关
func NewAlipayWithdrawalGateway(cfg *alipay.Config) *AlipayWithdrawalGateway {
	return &AlipayWithdrawalGateway{cfg: cfg}
}

// Transfer 调用支付宝单笔转账接口
func (g *AlipayWithdrawalGateway) Transfer(ctx context.Context, outBizNo, payeeAccount, payeeRealName string, amount decimal.Decimal) (string, error) {
	result, err := alipay.Transfer(ctx, g.cfg, alipay.TransferInput{
		OutBizNo:      outBizNo,
		PayeeAccount:  payeeAccount,
		PayeeRealName: payeeRealName,
		Amount:        amount.Round(2).StringFixed(2),
		Remark:        "佣金提现",
	})
	if err != nil {
		return "", err
	}
	return result.OrderID, nil
}

// WithdrawalService 提现业务服务
type WithdrawalService struct {
	repo          repository.WithdrawalRepository
	agentRepo     repository.AgentRepository
	configService *ConfigService
	gateway       WithdrawalGateway
	queueClient   *queue.Client
}

// NewWithdrawalService 创建提现服务
func NewWithdrawalService(
	repo repository.WithdrawalRepository,
	agentRepo repository.AgentRepository,
	configService *ConfigService,
	gateway WithdrawalGateway,
	queueClient *queue.Client,
) *WithdrawalService {
	return &WithdrawalService{
		repo:          repo,
		agentRepo:     agentRepo,
		configService: configService,
		gateway:       gateway,
		queueClient:   queueClient,
	}
}

// WithdrawalApplyInput 提现申请输入
type WithdrawalApplyInput struct {
	AgentID       uint
	Amount        decimal.Decimal
	AlipayAccount string
	RealName      string
}

// WithdrawalApplyResult 提现申请结果
type WithdrawalApplyResult struct {
	WithdrawalID        uint         `json:"withdrawalId"`
	Amount              models.Money `json:"amount"`
	FeeAmount           models.Money `json:"feeAmount"`
	ActualAmount        models.Money `json:"actualAmount"`
	NewAvailableBalance models.Money `json:"newAvailableBalance"`
}

// WithdrawalProcessInput 提现批量处理输入
type WithdrawalProcessInput struct {
	WithdrawalIDs []uint
	Action        string
	AdminID       uint
	Notes         string
}

// WithdrawalProcessItem 单笔提现处理结果
type WithdrawalProcessItem struct {
	WithdrawalID uint   `json:"withdrawalId"`
	Success      bool   `json:"success"`
	Status       string `json:"status,omitempty"`
	TransferRef  string `json:"transferRef,omitempty"`
	Message      string `json:"message,omitempty"`
}

// WithdrawalProcessResult 提现批量处理结果
type WithdrawalProcessResult struct {
	TotalCount   int                     `json:"totalCount"`
	SuccessCount int                     `json:"successCount"`
	FailCount    int                     `json:"failCount"`
	Results      []WithdrawalProcessItem `json:"results"`
}

// Apply 代理提交提现申请。申请金额校验通过后在一个事务里落
// pending 记录并原子冻结余额，扣减失败则整体回滚。
func (s *WithdrawalService) Apply(input WithdrawalApplyInput) (*WithdrawalApplyResult, error) {
	agent, err := s.agentRepo.GetByID(input.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrAgentNotFound
	}
	if agent.Status != constants.AgentStatusActive {
		return nil, ErrAgentSuspended
	}

	amount := input.Amount.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrWithdrawalAmountInvalid
	}
	if amount.GreaterThan(agent.AvailableBalance.Decimal) {
		return nil, ErrBalanceInsufficient
	}

	minAmount, maxAmount, err := s.configService.GetWithdrawalBounds()
	if err != nil {
		return nil, err
	}
	if amount.LessThan(minAmount) {
		return nil, ErrWithdrawalBelowMinimum
	}
	if amount.GreaterThan(maxAmount) {
		return nil, ErrWithdrawalAboveMaximum
	}

	alipayAccount := strings.TrimSpace(input.AlipayAccount)
	if alipayAccount == "" {
		alipayAccount = strings.TrimSpace(agent.AlipayAccount)
	}
	if alipayAccount == "" {
		return nil, ErrWithdrawalAccountMissing
	}
	realName := strings.TrimSpace(input.RealName)
	if realName == "" {
		realName = strings.TrimSpace(agent.RealName)
	}

	hasPending, err := s.repo.HasPendingByAgent(agent.ID)
	if err != nil {
		return nil, err
	}
	if hasPending {
		return nil, ErrWithdrawalPendingExists
	}

	feeRate, err := s.configService.GetWithdrawalFeeRate()
	if err != nil {
		return nil, err
	}
	fee := amount.Mul(feeRate).Div(decimal.NewFromInt(100)).Round(2)
	actual := amount.Sub(fee)

	request := &models.WithdrawalRequest{
		AgentID:       agent.ID,
		Amount:        models.NewMoneyFromDecimal(amount),
		FeeAmount:     models.NewMoneyFromDecimal(fee),
		ActualAmount:  models.NewMoneyFromDecimal(actual),
		AlipayAccount: alipayAccount,
		RealName:      realName,
		Status:        constants.WithdrawalStatusPending,
	}
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(request); err != nil {
			// 并发申请时由 pending 局部唯一索引兜底
			if isUniqueViolation(err) {
				return ErrWithdrawalPendingExists
			}
			return err
		}
		if err := s.agentRepo.WithTx(tx).DebitBalance(agent.ID, request.Amount); err != nil {
			if errors.Is(err, repository.ErrBalanceInsufficient) {
				return ErrBalanceInsufficient
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	refreshed, err := s.agentRepo.GetByID(agent.ID)
	if err != nil {
		return nil, err
	}
	result := &WithdrawalApplyResult{
		WithdrawalID: request.ID,
		Amount:       request.Amount,
		FeeAmount:    request.FeeAmount,
		ActualAmount: request.ActualAmount,
	}
	if refreshed != nil {
		result.NewAvailableBalance = refreshed.AvailableBalance
	}
	return result, nil
}

// Process 管理端批量处理提现申请。逐笔独立处理，单笔失败不影响
// 其余申请；approve 打款成功才标记 paid，失败保持 pending 可重试。
func (s *WithdrawalService) Process(ctx context.Context, input WithdrawalProcessInput) (*WithdrawalProcessResult, error) {
	if len(input.WithdrawalIDs) == 0 {
		return nil, ErrInvalidAction
	}
	action := strings.ToLower(strings.TrimSpace(input.Action))
	if action != constants.WithdrawalActionApprove && action != constants.WithdrawalActionReject {
		return nil, ErrInvalidAction
	}

	result := &WithdrawalProcessResult{
		TotalCount: len(input.WithdrawalIDs),
		Results:    make([]WithdrawalProcessItem, 0, len(input.WithdrawalIDs)),
	}
	for _, id := range input.WithdrawalIDs {
		var item WithdrawalProcessItem
		if action == constants.WithdrawalActionApprove {
			item = s.approveOne(ctx, id, input.AdminID, input.Notes)
		} else {
			item = s.rejectOne(id, input.AdminID, input.Notes)
		}
		if item.Success {
			result.SuccessCount++
			s.notifyResult(id, item.Status)
		} else {
			result.FailCount++
		}
		result.Results = append(result.Results, item)
	}
	return result, nil
}

// approveOne 审批通过单笔提现：先打款后落账，打款失败保持 pending
func (s *WithdrawalService) approveOne(ctx context.Context, id uint, adminID uint, notes string) WithdrawalProcessItem {
	item := WithdrawalProcessItem{WithdrawalID: id}

	request, err := s.repo.GetByID(id)
	if err != nil {
		item.Message = err.Error()
		return item
	}
	if request == nil {
		item.Message = "提现申请不存在"
		return item
	}
	if request.Status != constants.WithdrawalStatusPending {
		item.Message = "提现申请已处理"
		return item
	}
	if s.gateway == nil {
		item.Message = "打款网关未配置"
		return item
	}

	transferRef := fmt.Sprintf("WD%d%d", request.ID, time.Now().Unix())
	orderID, err := s.gateway.Transfer(ctx, transferRef, request.AlipayAccount, request.RealName, request.ActualAmount.Decimal)
	if err != nil {
		logger.Errorw("withdrawal_transfer_failed",
			"withdrawal_id", request.ID,
			"transfer_ref", transferRef,
			"error", err,
		)
		item.Message = "打款失败: " + err.Error()
		return item
	}

	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		locked, err := repoTx.GetByIDForUpdate(request.ID)
		if err != nil {
			return err
		}
		if locked == nil || locked.Status != constants.WithdrawalStatusPending {
			return ErrWithdrawalNotPending
		}
		now := time.Now()
		locked.Status = constants.WithdrawalStatusPaid
		locked.AdminNotes = strings.TrimSpace(notes)
		locked.ProcessedBy = &adminID
		locked.ProcessedAt = &now
		locked.TransferRef = transferRef
		locked.AlipayOrderID = orderID
		return repoTx.Update(locked)
	})
	if err != nil {
		// 打款已出、状态未落库，记录单号供人工对账
		logger.Errorw("withdrawal_mark_paid_failed",
			"withdrawal_id", request.ID,
			"transfer_ref", transferRef,
			"alipay_order_id", orderID,
			"error", err,
		)
		item.Message = err.Error()
		return item
	}

	item.Success = true
	item.Status = constants.WithdrawalStatusPaid
	item.TransferRef = transferRef
	return item
}

// rejectOne 驳回单笔提现并返还冻结余额
func (s *WithdrawalService) rejectOne(id uint, adminID uint, notes string) WithdrawalProcessItem {
	item := WithdrawalProcessItem{WithdrawalID: id}

	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		locked, err := repoTx.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrWithdrawalNotFound
		}
		if locked.Status != constants.WithdrawalStatusPending {
			return ErrWithdrawalNotPending
		}
		if err := s.agentRepo.WithTx(tx).RestoreBalance(locked.AgentID, locked.Amount); err != nil {
			return err
		}
		now := time.Now()
		locked.Status = constants.WithdrawalStatusRejected
		locked.AdminNotes = strings.TrimSpace(notes)
		locked.ProcessedBy = &adminID
		locked.ProcessedAt = &now
		return repoTx.Update(locked)
	})
	if err != nil {
		item.Message = err.Error()
		return item
	}
	item.Success = true
	item.Status = constants.WithdrawalStatusRejected
	return item
}

// notifyResult 推送提现结果通知任务，队列未启用时为空操作
func (s *WithdrawalService) notifyResult(id uint, status string) {
	if s.queueClient == nil {
		return
	}
	if err := s.queueClient.EnqueueWithdrawalResultEmail(queue.WithdrawalResultEmailPayload{
		WithdrawalID: id,
		Status:       status,
	}); err != nil {
		logger.Warnw("withdrawal_notify_enqueue_failed", "withdrawal_id", id, "error", err)
	}
}

// GetByID 获取提现申请详情
func (s *WithdrawalService) GetByID(id uint) (*models.WithdrawalRequest, error) {
	request, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrWithdrawalNotFound
	}
	return request, nil
}

// List 分页查询提现申请
func (s *WithdrawalService) List(filter repository.WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error) {
	return s.repo.List(filter)
}
