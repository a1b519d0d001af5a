package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"

	"gorm.io/gorm"
)

// InvitationRepository 邀请记录数据访问接口
type InvitationRepository interface {
	Create(invitation *models.Invitation) error
	GetAcceptedByEmail(email string) (*models.Invitation, error)
	GetByAgentAndEmail(agentID uint, email string) (*models.Invitation, error)
	Accept(id uint, acceptedAt time.Time) error
	List(filter InvitationListFilter) ([]models.Invitation, int64, error)
}

// GormInvitationRepository GORM 邀请仓储
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository 创建邀请仓储
func NewInvitationRepository(db *gorm.DB) *GormInvitationRepository {
	return &GormInvitationRepository{db: db}
}

// Create 创建邀请记录
func (r *GormInvitationRepository) Create(invitation *models.Invitation) error {
	return r.db.Create(invitation).Error
}

// GetAcceptedByEmail 查询客户邮箱已接受的邀请（最新一条）
func (r *GormInvitationRepository) GetAcceptedByEmail(email string) (*models.Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var invitation models.Invitation
	if err := r.db.Where("customer_email = ? AND status = ?", email, constants.InvitationStatusAccepted).
		Order("id DESC").
		First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invitation, nil
}

// GetByAgentAndEmail 查询代理对某客户邮箱的邀请
func (r *GormInvitationRepository) GetByAgentAndEmail(agentID uint, email string) (*models.Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if agentID == 0 || email == "" {
		return nil, nil
	}
	var invitation models.Invitation
	if err := r.db.Where("agent_id = ? AND customer_email = ?", agentID, email).
		Order("id DESC").
		First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invitation, nil
}

// Accept 标记邀请为已接受
func (r *GormInvitationRepository) Accept(id uint, acceptedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Invitation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      constants.InvitationStatusAccepted,
			"accepted_at": acceptedAt,
			"updated_at":  acceptedAt,
		}).Error
}

// List 分页查询邀请记录
func (r *GormInvitationRepository) List(filter InvitationListFilter) ([]models.Invitation, int64, error) {
	query := r.db.Model(&models.Invitation{})

	if filter.AgentID != 0 {
		query = query.Where("agent_id = ?", filter.AgentID)
	}
	if filter.CustomerEmail != "" {
		query = query.Where("customer_email = ?", strings.ToLower(strings.TrimSpace(filter.CustomerEmail)))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var invitations []models.Invitation
	if err := query.Order("id DESC").Find(&invitations).Error; err != nil {
		return nil, 0, err
	}
	return invitations, total, nil
}
