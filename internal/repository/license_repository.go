package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LicenseRepository 授权许可数据访问接口
type LicenseRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) LicenseRepository

	Create(license *models.License) error
	Update(license *models.License) error
	GetByID(id uint) (*models.License, error)
	GetByKey(key string) (*models.License, error)
	GetByKeyForUpdate(key string) (*models.License, error)
	GetByOrderID(orderID uint) (*models.License, error)
	ExistsByKey(key string) (bool, error)
	List(filter LicenseListFilter) ([]models.License, int64, error)
	HasActivePaidByEmail(email string, now time.Time) (bool, error)
}

// GormLicenseRepository GORM 授权仓储
type GormLicenseRepository struct {
	db *gorm.DB
}

// NewLicenseRepository 创建授权仓储
func NewLicenseRepository(db *gorm.DB) *GormLicenseRepository {
	return &GormLicenseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLicenseRepository) WithTx(tx *gorm.DB) LicenseRepository {
	if tx == nil {
		return r
	}
	return &GormLicenseRepository{db: tx}
}

// Transaction 执行事务
func (r *GormLicenseRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建授权许可
func (r *GormLicenseRepository) Create(license *models.License) error {
	return r.db.Create(license).Error
}

// Update 更新授权许可
func (r *GormLicenseRepository) Update(license *models.License) error {
	return r.db.Save(license).Error
}

// GetByID 按ID获取授权许可
func (r *GormLicenseRepository) GetByID(id uint) (*models.License, error) {
	if id == 0 {
		return nil, nil
	}
	var license models.License
	if err := r.db.First(&license, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

// GetByKey 按授权码获取授权许可
func (r *GormLicenseRepository) GetByKey(key string) (*models.License, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var license models.License
	if err := r.db.Where("license_key = ?", key).First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

// GetByKeyForUpdate 按授权码加锁获取授权许可（激活计数并发保护）
func (r *GormLicenseRepository) GetByKeyForUpdate(key string) (*models.License, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var license models.License
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("license_key = ?", key).
		First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

// GetByOrderID 按来源订单查询授权许可
func (r *GormLicenseRepository) GetByOrderID(orderID uint) (*models.License, error) {
	if orderID == 0 {
		return nil, nil
	}
	var license models.License
	if err := r.db.Where("order_id = ?", orderID).Order("id DESC").First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

// ExistsByKey 判断授权码是否已占用
func (r *GormLicenseRepository) ExistsByKey(key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.License{}).
		Where("license_key = ?", key).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List 分页查询授权许可
func (r *GormLicenseRepository) List(filter LicenseListFilter) ([]models.License, int64, error) {
	query := r.db.Model(&models.License{})

	if filter.CustomerEmail != "" {
		query = query.Where("customer_email = ?", strings.ToLower(strings.TrimSpace(filter.CustomerEmail)))
	}
	if filter.PlanID != "" {
		query = query.Where("plan_id = ?", filter.PlanID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.LicenseKey != "" {
		like := "%" + strings.TrimSpace(filter.LicenseKey) + "%"
		query = query.Where("license_key "+likeOperator(r.db)+" ?", like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var licenses []models.License
	if err := query.Order("id DESC").Find(&licenses).Error; err != nil {
		return nil, 0, err
	}
	return licenses, total, nil
}

// HasActivePaidByEmail 判断邮箱是否持有未过期的激活授权（付费版判定）
func (r *GormLicenseRepository) HasActivePaidByEmail(email string, now time.Time) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.License{}).
		Where("customer_email = ? AND status = ?", email, constants.LicenseStatusActive).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
