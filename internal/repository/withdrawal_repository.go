package repository

import (
	"errors"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WithdrawalRepository 提现申请数据访问接口
type WithdrawalRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) WithdrawalRepository

	Create(req *models.WithdrawalRequest) error
	Update(req *models.WithdrawalRequest) error
	GetByID(id uint) (*models.WithdrawalRequest, error)
	GetByIDForUpdate(id uint) (*models.WithdrawalRequest, error)
	HasPendingByAgent(agentID uint) (bool, error)
	List(filter WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error)
}

// GormWithdrawalRepository GORM 提现仓储
type GormWithdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository 创建提现仓储
func NewWithdrawalRepository(db *gorm.DB) *GormWithdrawalRepository {
	return &GormWithdrawalRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWithdrawalRepository) WithTx(tx *gorm.DB) WithdrawalRepository {
	if tx == nil {
		return r
	}
	return &GormWithdrawalRepository{db: tx}
}

// Transaction 执行事务
func (r *GormWithdrawalRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建提现申请
func (r *GormWithdrawalRepository) Create(req *models.WithdrawalRequest) error {
	return r.db.Create(req).Error
}

// Update 更新提现申请
func (r *GormWithdrawalRepository) Update(req *models.WithdrawalRequest) error {
	return r.db.Save(req).Error
}

// GetByID 按ID获取提现申请
func (r *GormWithdrawalRepository) GetByID(id uint) (*models.WithdrawalRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var req models.WithdrawalRequest
	if err := r.db.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// GetByIDForUpdate 按ID加锁获取提现申请
func (r *GormWithdrawalRepository) GetByIDForUpdate(id uint) (*models.WithdrawalRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var req models.WithdrawalRequest
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// HasPendingByAgent 判断代理是否存在待处理提现
func (r *GormWithdrawalRepository) HasPendingByAgent(agentID uint) (bool, error) {
	if agentID == 0 {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.WithdrawalRequest{}).
		Where("agent_id = ? AND status = ?", agentID, constants.WithdrawalStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List 分页查询提现申请
func (r *GormWithdrawalRepository) List(filter WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error) {
	query := r.db.Model(&models.WithdrawalRequest{})

	if filter.AgentID != 0 {
		query = query.Where("agent_id = ?", filter.AgentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var requests []models.WithdrawalRequest
	if err := query.Order("id DESC").Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}
