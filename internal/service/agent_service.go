package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/logger"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/repository"
	"github.com/shopspring/decimal"
)

// AgentService 代理业务服务
type AgentService struct {
	repo           repository.AgentRepository
	invitationRepo repository.InvitationRepository
	commissionRepo repository.CommissionRepository
	withdrawalRepo repository.WithdrawalRepository
}

// NewAgentService 创建代理服务
func NewAgentService(
	repo repository.AgentRepository,
	invitationRepo repository.InvitationRepository,
	commissionRepo repository.CommissionRepository,
	withdrawalRepo repository.WithdrawalRepository,
) *AgentService {
	return &AgentService{
		repo:           repo,
		invitationRepo: invitationRepo,
		commissionRepo: commissionRepo,
		withdrawalRepo: withdrawalRepo,
	}
}

// AgentCreateInput 创建代理输入
type AgentCreateInput struct {
	RealName        string
	Phone           string
	Email           string
	ParentAgentCode string
	CommissionRate  *decimal.Decimal
	AlipayAccount   string
	UserID          *uint
}

// AgentAncestor 祖先链条目。Level 为相对发起代理的深度，直接上级为 2。
type AgentAncestor struct {
	AgentID      uint
	Level        int
	RateOverride *models.Money
}

// AgentDashboard 代理工作台数据
type AgentDashboard struct {
	Profile           models.AgentProfile `json:"profile"`
	PendingCommission models.Money        `json:"pending_commission"`
	PendingCount      int64               `json:"pending_count"`
	ApprovedCount     int64               `json:"approved_count"`
	ChildrenCount     int64               `json:"children_count"`
}

// CreateAgent 创建代理档案。上级通过邀请码定位；邀请码随机生成并在
// 唯一冲突时重试，超出重试预算返回冲突错误。
func (s *AgentService) CreateAgent(input AgentCreateInput) (*models.AgentProfile, error) {
	realName := strings.TrimSpace(input.RealName)
	if realName == "" {
		return nil, ErrInvalidAction
	}

	level := 1
	var parentID *uint
	parentCode := strings.TrimSpace(input.ParentAgentCode)
	if parentCode != "" {
		parent, err := s.repo.GetByCode(parentCode)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrParentAgentNotFound
		}
		if parent.Status != constants.AgentStatusActive {
			return nil, ErrAgentSuspended
		}
		parentID = &parent.ID
		level = parent.Level + 1
	}

	var rateOverride *models.Money
	if input.CommissionRate != nil {
		rate := models.NewMoneyFromDecimal(*input.CommissionRate)
		rateOverride = &rate
	}

	now := time.Now()
	for attempt := 0; attempt < constants.CodeMaxAttempts; attempt++ {
		code, err := generateAgentCode()
		if err != nil {
			return nil, err
		}
		exists, err := s.repo.ExistsByCode(code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		profile := &models.AgentProfile{
			UserID:         input.UserID,
			RealName:       realName,
			Phone:          strings.TrimSpace(input.Phone),
			Email:          strings.ToLower(strings.TrimSpace(input.Email)),
			AgentCode:      code,
			ParentAgentID:  parentID,
			Level:          level,
			CommissionRate: rateOverride,
			AlipayAccount:  strings.TrimSpace(input.AlipayAccount),
			Status:         constants.AgentStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Create(profile); err != nil {
			// 预检与写入之间仍可能撞码，唯一冲突时换码重试
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return profile, nil
	}
	return nil, ErrAgentCodeExhausted
}

// ResolveAncestors 自下而上解析祖先链。从直接上级（层级 2）开始，
// 缺失的上级引用在断点处停止而不报错；深度上限防御脏数据成环。
func (s *AgentService) ResolveAncestors(agentID uint) ([]AgentAncestor, error) {
	if agentID == 0 || s.repo == nil {
		return nil, ErrAgentNotFound
	}
	agent, err := s.repo.GetByID(agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrAgentNotFound
	}

	ancestors := make([]AgentAncestor, 0)
	seen := map[uint]struct{}{agent.ID: {}}
	current := agent
	level := 2
	for current.ParentAgentID != nil && level <= constants.AgentChainMaxDepth {
		parent, err := s.repo.GetByID(*current.ParentAgentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		if _, looped := seen[parent.ID]; looped {
			logger.Warnw("agent_chain_cycle_detected", "agent_id", agentID, "at", parent.ID)
			break
		}
		seen[parent.ID] = struct{}{}
		ancestors = append(ancestors, AgentAncestor{
			AgentID:      parent.ID,
			Level:        level,
			RateOverride: parent.CommissionRate,
		})
		current = parent
		level++
	}
	return ancestors, nil
}

// GetByID 获取代理档案
func (s *AgentService) GetByID(id uint) (*models.AgentProfile, error) {
	profile, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrAgentNotFound
	}
	return profile, nil
}

// GetByUserID 按用户获取代理档案
func (s *AgentService) GetByUserID(userID uint) (*models.AgentProfile, error) {
	profile, err := s.repo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrAgentNotFound
	}
	return profile, nil
}

// UpdateStatus 管理端更新代理状态
func (s *AgentService) UpdateStatus(id uint, rawStatus string) (*models.AgentProfile, error) {
	status := strings.ToLower(strings.TrimSpace(rawStatus))
	if status != constants.AgentStatusActive && status != constants.AgentStatusSuspended {
		return nil, ErrInvalidAction
	}
	profile, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrAgentNotFound
	}
	if err := s.repo.UpdateStatus(id, status, time.Now()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

// List 管理端分页查询代理
func (s *AgentService) List(filter repository.AgentListFilter) ([]models.AgentProfile, int64, error) {
	return s.repo.List(filter)
}

// ListChildren 查询直属下级
func (s *AgentService) ListChildren(agentID uint) ([]models.AgentProfile, error) {
	return s.repo.ListChildren(agentID)
}

// Dashboard 代理工作台汇总
func (s *AgentService) Dashboard(agentID uint) (*AgentDashboard, error) {
	profile, err := s.repo.GetByID(agentID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrAgentNotFound
	}

	pendingSum, err := s.commissionRepo.SumAmountByAgent(agentID, []string{constants.CommissionStatusPending})
	if err != nil {
		return nil, err
	}
	pendingCount, err := s.commissionRepo.CountByAgent(agentID, []string{constants.CommissionStatusPending})
	if err != nil {
		return nil, err
	}
	approvedCount, err := s.commissionRepo.CountByAgent(agentID, []string{constants.CommissionStatusApproved})
	if err != nil {
		return nil, err
	}
	childrenCount, err := s.repo.CountChildren(agentID)
	if err != nil {
		return nil, err
	}

	return &AgentDashboard{
		Profile:           *profile,
		PendingCommission: models.NewMoneyFromDecimal(pendingSum),
		PendingCount:      pendingCount,
		ApprovedCount:     approvedCount,
		ChildrenCount:     childrenCount,
	}, nil
}

// InviteCustomer 代理登记客户邀请；重复邀请幂等返回已有记录
func (s *AgentService) InviteCustomer(agentID uint, customerEmail string) (*models.Invitation, error) {
	email := strings.ToLower(strings.TrimSpace(customerEmail))
	if email == "" {
		return nil, ErrInvalidAction
	}
	agent, err := s.repo.GetByID(agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrAgentNotFound
	}
	if agent.Status != constants.AgentStatusActive {
		return nil, ErrAgentSuspended
	}

	existing, err := s.invitationRepo.GetByAgentAndEmail(agentID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	invitation := &models.Invitation{
		AgentID:       agentID,
		CustomerEmail: email,
		Status:        constants.InvitationStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.invitationRepo.Create(invitation); err != nil {
		return nil, err
	}
	return invitation, nil
}

// AcceptInvitation 客户接受邀请（注册或首单时触发）
func (s *AgentService) AcceptInvitation(agentCode, customerEmail string) (*models.Invitation, error) {
	email := strings.ToLower(strings.TrimSpace(customerEmail))
	code := strings.TrimSpace(agentCode)
	if email == "" || code == "" {
		return nil, ErrInvalidAction
	}
	agent, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrAgentNotFound
	}
	if agent.Status != constants.AgentStatusActive {
		return nil, ErrAgentSuspended
	}

	now := time.Now()
	invitation, err := s.invitationRepo.GetByAgentAndEmail(agent.ID, email)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		invitation = &models.Invitation{
			AgentID:       agent.ID,
			CustomerEmail: email,
			Status:        constants.InvitationStatusAccepted,
			AcceptedAt:    &now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.invitationRepo.Create(invitation); err != nil {
			return nil, err
		}
		return invitation, nil
	}
	if invitation.Status != constants.InvitationStatusAccepted {
		if err := s.invitationRepo.Accept(invitation.ID, now); err != nil {
			return nil, err
		}
		invitation.Status = constants.InvitationStatusAccepted
		invitation.AcceptedAt = &now
	}
	return invitation, nil
}

func generateAgentCode() (string, error) {
	return generateRandomCode(constants.AgentCodeLength)
}

// generateRandomCode 生成去易混字符的随机编码
func generateRandomCode(length int) (string, error) {
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(constants.CodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(constants.CodeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
