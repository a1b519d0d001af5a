package service

import (
	"strings"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/logger"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService 佣金结算业务服务
type CommissionService struct {
	repo           repository.CommissionRepository
	agentRepo      repository.AgentRepository
	invitationRepo repository.InvitationRepository
	agentService   *AgentService
	configService  *ConfigService
}

// NewCommissionService 创建佣金服务
func NewCommissionService(
	repo repository.CommissionRepository,
	agentRepo repository.AgentRepository,
	invitationRepo repository.InvitationRepository,
	agentService *AgentService,
	configService *ConfigService,
) *CommissionService {
	return &CommissionService{
		repo:           repo,
		agentRepo:      agentRepo,
		invitationRepo: invitationRepo,
		agentService:   agentService,
		configService:  configService,
	}
}

// CommissionAllocateInput 佣金分配输入
type CommissionAllocateInput struct {
	OrderID       uint
	CustomerEmail string
	OrderAmount   decimal.Decimal
}

// CommissionAllocateResult 佣金分配结果
type CommissionAllocateResult struct {
	CommissionCount int                       `json:"commissionCount"`
	TotalCommission models.Money              `json:"totalCommission"`
	Records         []models.CommissionRecord `json:"records"`
}

// CommissionDecideInput 佣金审核输入
type CommissionDecideInput struct {
	CommissionIDs []uint
	Action        string
	AdminID       uint
	Notes         string
}

// CommissionDecideResult 佣金审核结果
type CommissionDecideResult struct {
	UpdatedCount int64                     `json:"updatedCount"`
	Records      []models.CommissionRecord `json:"records"`
}

// chainParticipant 参与结算的代理（推荐人在层级 1，祖先依次上推）
type chainParticipant struct {
	agentID      uint
	level        int
	rateOverride *models.Money
}

// Allocate 为已支付订单分配多级佣金。
// 客户邮箱没有已接受邀请时直接返回零条成功；订单已有佣金记录时拒绝
// 重复分配；全部入库在一个事务内完成。
func (s *CommissionService) Allocate(input CommissionAllocateInput) (*CommissionAllocateResult, error) {
	if input.OrderID == 0 || strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, ErrInvalidAction
	}
	if input.OrderAmount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAction
	}

	exists, err := s.repo.ExistsByOrder(input.OrderID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCommissionExists
	}

	empty := &CommissionAllocateResult{
		TotalCommission: models.NewMoneyFromDecimal(decimal.Zero),
		Records:         []models.CommissionRecord{},
	}

	invitation, err := s.invitationRepo.GetAcceptedByEmail(input.CustomerEmail)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		// 无推荐关系的订单不产生佣金
		return empty, nil
	}

	referrer, err := s.agentRepo.GetByID(invitation.AgentID)
	if err != nil {
		return nil, err
	}
	if referrer == nil || referrer.Status != constants.AgentStatusActive {
		logger.Infow("commission_referrer_unavailable",
			"order_id", input.OrderID,
			"agent_id", invitation.AgentID,
		)
		return empty, nil
	}

	ancestors, err := s.agentService.ResolveAncestors(referrer.ID)
	if err != nil {
		return nil, err
	}
	chain := make([]chainParticipant, 0, len(ancestors)+1)
	chain = append(chain, chainParticipant{
		agentID:      referrer.ID,
		level:        1,
		rateOverride: referrer.CommissionRate,
	})
	for _, ancestor := range ancestors {
		chain = append(chain, chainParticipant{
			agentID:      ancestor.AgentID,
			level:        ancestor.Level,
			rateOverride: ancestor.RateOverride,
		})
	}

	levels, err := s.configService.GetAgentLevels()
	if err != nil {
		return nil, err
	}
	defaultRate, err := s.configService.GetDefaultCommissionRate()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	orderAmount := input.OrderAmount.Round(2)
	records := make([]*models.CommissionRecord, 0, len(chain))
	for _, participant := range chain {
		rate := s.effectiveRate(participant, levels, defaultRate)
		amount := orderAmount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		records = append(records, &models.CommissionRecord{
			OrderID:     input.OrderID,
			AgentID:     participant.agentID,
			Level:       participant.level,
			OrderAmount: models.NewMoneyFromDecimal(orderAmount),
			RatePercent: models.NewMoneyFromDecimal(rate),
			Amount:      models.NewMoneyFromDecimal(amount),
			Status:      constants.CommissionStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(records) == 0 {
		return empty, nil
	}

	err = s.repo.Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateBatch(records)
	})
	if err != nil {
		// 并发分配时由 (order_id, agent_id) 唯一索引兜底
		if isUniqueViolation(err) {
			return nil, ErrCommissionExists
		}
		return nil, err
	}

	total := decimal.Zero
	result := &CommissionAllocateResult{Records: make([]models.CommissionRecord, 0, len(records))}
	for _, record := range records {
		total = total.Add(record.Amount.Decimal)
		result.Records = append(result.Records, *record)
	}
	result.CommissionCount = len(records)
	result.TotalCommission = models.NewMoneyFromDecimal(total)
	return result, nil
}

// effectiveRate 结算比例优先级：代理覆盖 > 层级表 > 系统默认
func (s *CommissionService) effectiveRate(participant chainParticipant, levels []AgentLevelRate, defaultRate decimal.Decimal) decimal.Decimal {
	if participant.rateOverride != nil {
		return participant.rateOverride.Decimal.Round(2)
	}
	if rate, ok := RateForLevel(levels, participant.level); ok {
		return decimal.NewFromFloat(rate).Round(2)
	}
	return defaultRate
}

// Decide 管理端批量审核佣金。仅处理仍处于 pending 的记录，已审过的
// 静默排除；approve 在同一事务内对代理余额与累计佣金做原子自增。
func (s *CommissionService) Decide(input CommissionDecideInput) (*CommissionDecideResult, error) {
	if len(input.CommissionIDs) == 0 {
		return nil, ErrInvalidAction
	}
	action := strings.ToLower(strings.TrimSpace(input.Action))
	if action != constants.CommissionActionApprove && action != constants.CommissionActionReject {
		return nil, ErrInvalidAction
	}
	status := constants.CommissionStatusApproved
	if action == constants.CommissionActionReject {
		status = constants.CommissionStatusRejected
	}

	var updated int64
	var decidedIDs []uint
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		agentRepoTx := s.agentRepo.WithTx(tx)

		pending, err := repoTx.ListPendingByIDsForUpdate(input.CommissionIDs)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(pending))
		for _, record := range pending {
			ids = append(ids, record.ID)
		}

		now := time.Now()
		updated, err = repoTx.BatchDecide(ids, status, input.AdminID, strings.TrimSpace(input.Notes), now)
		if err != nil {
			return err
		}

		if action == constants.CommissionActionApprove {
			for _, record := range pending {
				if err := agentRepoTx.CreditBalance(record.AgentID, record.Amount); err != nil {
					return err
				}
			}
		}
		decidedIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(decidedIDs) == 0 {
		return &CommissionDecideResult{Records: []models.CommissionRecord{}}, nil
	}

	records, err := s.repo.ListByIDs(decidedIDs)
	if err != nil {
		return nil, err
	}
	return &CommissionDecideResult{UpdatedCount: updated, Records: records}, nil
}

// List 分页查询佣金记录
func (s *CommissionService) List(filter repository.CommissionListFilter) ([]models.CommissionRecord, int64, error) {
	return s.repo.List(filter)
}

// ListByOrder 查询订单的佣金记录
func (s *CommissionService) ListByOrder(orderID uint) ([]models.CommissionRecord, error) {
	return s.repo.ListByOrder(orderID)
}
