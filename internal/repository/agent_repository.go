package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/leadscout/leadscout-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBalanceInsufficient 余额不足（条件扣减未命中任何行）
var ErrBalanceInsufficient = errors.New("agent balance insufficient")

// AgentRepository 代理数据访问接口
type AgentRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AgentRepository

	GetByID(id uint) (*models.AgentProfile, error)
	GetByIDForUpdate(id uint) (*models.AgentProfile, error)
	GetByCode(code string) (*models.AgentProfile, error)
	GetByUserID(userID uint) (*models.AgentProfile, error)
	ExistsByCode(code string) (bool, error)
	Create(profile *models.AgentProfile) error
	Update(profile *models.AgentProfile) error
	UpdateStatus(id uint, status string, updatedAt time.Time) error
	List(filter AgentListFilter) ([]models.AgentProfile, int64, error)
	ListChildren(parentID uint) ([]models.AgentProfile, error)
	CountChildren(parentID uint) (int64, error)

	CreditBalance(id uint, amount models.Money) error
	DebitBalance(id uint, amount models.Money) error
	RestoreBalance(id uint, amount models.Money) error
}

// GormAgentRepository GORM 代理仓储
type GormAgentRepository struct {
	db *gorm.DB
}

// NewAgentRepository 创建代理仓储
func NewAgentRepository(db *gorm.DB) *GormAgentRepository {
	return &GormAgentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAgentRepository) WithTx(tx *gorm.DB) AgentRepository {
	if tx == nil {
		return r
	}
	return &GormAgentRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAgentRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取代理档案
func (r *GormAgentRepository) GetByID(id uint) (*models.AgentProfile, error) {
	if id == 0 {
		return nil, nil
	}
	var profile models.AgentProfile
	if err := r.db.First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetByIDForUpdate 按ID加锁获取代理档案
func (r *GormAgentRepository) GetByIDForUpdate(id uint) (*models.AgentProfile, error) {
	if id == 0 {
		return nil, nil
	}
	var profile models.AgentProfile
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetByCode 按邀请码获取代理档案
func (r *GormAgentRepository) GetByCode(code string) (*models.AgentProfile, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var profile models.AgentProfile
	if err := r.db.Where("agent_code = ?", code).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetByUserID 按用户ID获取代理档案
func (r *GormAgentRepository) GetByUserID(userID uint) (*models.AgentProfile, error) {
	if userID == 0 {
		return nil, nil
	}
	var profile models.AgentProfile
	if err := r.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// ExistsByCode 判断邀请码是否已占用
func (r *GormAgentRepository) ExistsByCode(code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.AgentProfile{}).
		Where("agent_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create 创建代理档案
func (r *GormAgentRepository) Create(profile *models.AgentProfile) error {
	return r.db.Create(profile).Error
}

// Update 更新代理档案
func (r *GormAgentRepository) Update(profile *models.AgentProfile) error {
	return r.db.Save(profile).Error
}

// UpdateStatus 更新代理状态
func (r *GormAgentRepository) UpdateStatus(id uint, status string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.AgentProfile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		}).Error
}

// List 分页查询代理列表
func (r *GormAgentRepository) List(filter AgentListFilter) ([]models.AgentProfile, int64, error) {
	query := r.db.Model(&models.AgentProfile{})

	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		operator := likeOperator(r.db)
		query = query.Where(
			"real_name "+operator+" ? OR email "+operator+" ? OR agent_code "+operator+" ?",
			like, like, like,
		)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ParentAgentID != 0 {
		query = query.Where("parent_agent_id = ?", filter.ParentAgentID)
	}
	if filter.Level != 0 {
		query = query.Where("level = ?", filter.Level)
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

	var profiles []models.AgentProfile
	if err := query.Order("id DESC").Find(&profiles).Error; err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// ListChildren 查询直属下级代理
func (r *GormAgentRepository) ListChildren(parentID uint) ([]models.AgentProfile, error) {
	if parentID == 0 {
		return []models.AgentProfile{}, nil
	}
	var profiles []models.AgentProfile
	if err := r.db.Where("parent_agent_id = ?", parentID).
		Order("id ASC").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// CountChildren 统计直属下级数量
func (r *GormAgentRepository) CountChildren(parentID uint) (int64, error) {
	if parentID == 0 {
		return 0, nil
	}
	var count int64
	if err := r.db.Model(&models.AgentProfile{}).
		Where("parent_agent_id = ?", parentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CreditBalance 佣金入账：可提现余额与累计佣金同时做服务端原子自增，
// 避免读改写模式在并发审批下丢失更新。
func (r *GormAgentRepository) CreditBalance(id uint, amount models.Money) error {
	if id == 0 || !amount.IsPositive() {
		return nil
	}
	return r.db.Model(&models.AgentProfile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"available_balance": gorm.Expr("available_balance + ?", amount),
			"total_commission":  gorm.Expr("total_commission + ?", amount),
			"updated_at":        time.Now(),
		}).Error
}

// DebitBalance 提现冻结扣减：条件原子扣减，余额不足时不命中任何行。
func (r *GormAgentRepository) DebitBalance(id uint, amount models.Money) error {
	if id == 0 || !amount.IsPositive() {
		return ErrBalanceInsufficient
	}
	result := r.db.Model(&models.AgentProfile{}).
		Where("id = ? AND available_balance >= ?", id, amount).
		Updates(map[string]interface{}{
			"available_balance": gorm.Expr("available_balance - ?", amount),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBalanceInsufficient
	}
	return nil
}

// RestoreBalance 提现拒绝返还：服务端原子自增
func (r *GormAgentRepository) RestoreBalance(id uint, amount models.Money) error {
	if id == 0 || !amount.IsPositive() {
		return nil
	}
	return r.db.Model(&models.AgentProfile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"available_balance": gorm.Expr("available_balance + ?", amount),
			"updated_at":        time.Now(),
		}).Error
}
