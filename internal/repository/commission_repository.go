package repository

import (
	"errors"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/shopspring/decimal"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金记录数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	CreateBatch(records []*models.CommissionRecord) error
	GetByID(id uint) (*models.CommissionRecord, error)
	ListByIDs(ids []uint) ([]models.CommissionRecord, error)
	ListPendingByIDsForUpdate(ids []uint) ([]models.CommissionRecord, error)
	ExistsByOrder(orderID uint) (bool, error)
	ListByOrder(orderID uint) ([]models.CommissionRecord, error)
	BatchDecide(ids []uint, status string, adminID uint, notes string, decidedAt time.Time) (int64, error)
	List(filter CommissionListFilter) ([]models.CommissionRecord, int64, error)
	SumAmountByAgent(agentID uint, statuses []string) (decimal.Decimal, error)
	CountByAgent(agentID uint, statuses []string) (int64, error)
}

// GormCommissionRepository GORM 佣金仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateBatch 批量创建佣金记录（单条 INSERT，配合外层事务保证全量成功或失败）
func (r *GormCommissionRepository) CreateBatch(records []*models.CommissionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Create(records).Error
}

// GetByID 按ID获取佣金记录
func (r *GormCommissionRepository) GetByID(id uint) (*models.CommissionRecord, error) {
	if id == 0 {
		return nil, nil
	}
	var record models.CommissionRecord
	if err := r.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListByIDs 批量获取佣金记录
func (r *GormCommissionRepository) ListByIDs(ids []uint) ([]models.CommissionRecord, error) {
	if len(ids) == 0 {
		return []models.CommissionRecord{}, nil
	}
	var records []models.CommissionRecord
	if err := r.db.Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListPendingByIDsForUpdate 加锁获取仍处于 pending 的佣金记录，
// 已审过的记录静默排除。
func (r *GormCommissionRepository) ListPendingByIDsForUpdate(ids []uint) ([]models.CommissionRecord, error) {
	if len(ids) == 0 {
		return []models.CommissionRecord{}, nil
	}
	var records []models.CommissionRecord
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ? AND status = ?", ids, constants.CommissionStatusPending).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ExistsByOrder 判断订单是否已生成过佣金记录
func (r *GormCommissionRepository) ExistsByOrder(orderID uint) (bool, error) {
	if orderID == 0 {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.CommissionRecord{}).
		Where("order_id = ?", orderID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByOrder 查询订单下全部佣金记录
func (r *GormCommissionRepository) ListByOrder(orderID uint) ([]models.CommissionRecord, error) {
	if orderID == 0 {
		return []models.CommissionRecord{}, nil
	}
	var records []models.CommissionRecord
	if err := r.db.Where("order_id = ?", orderID).
		Order("level ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// BatchDecide 批量落审核结论，status 条件限定 pending 防止重复结算
func (r *GormCommissionRepository) BatchDecide(ids []uint, status string, adminID uint, notes string, decidedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.CommissionRecord{}).
		Where("id IN ? AND status = ?", ids, constants.CommissionStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"admin_notes": notes,
			"approved_by": adminID,
			"approved_at": decidedAt,
			"updated_at":  decidedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// List 分页查询佣金记录
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.CommissionRecord, int64, error) {
	query := r.db.Model(&models.CommissionRecord{})

	if filter.AgentID != 0 {
		query = query.Where("agent_id = ?", filter.AgentID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
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

	var records []models.CommissionRecord
	if err := query.Order("id DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SumAmountByAgent 按状态汇总代理佣金金额
func (r *GormCommissionRepository) SumAmountByAgent(agentID uint, statuses []string) (decimal.Decimal, error) {
	if agentID == 0 {
		return decimal.Zero, nil
	}
	query := r.db.Model(&models.CommissionRecord{}).Where("agent_id = ?", agentID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := query.Select("COALESCE(SUM(amount), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// CountByAgent 按状态统计代理佣金条数
func (r *GormCommissionRepository) CountByAgent(agentID uint, statuses []string) (int64, error) {
	if agentID == 0 {
		return 0, nil
	}
	query := r.db.Model(&models.CommissionRecord{}).Where("agent_id = ?", agentID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
