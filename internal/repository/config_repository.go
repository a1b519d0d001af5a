package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/leadscout/leadscout-api/internal/models"

	"gorm.io/gorm"
)

// ConfigRepository 系统配置数据访问接口
type ConfigRepository interface {
	GetByKey(key string) (*models.SystemConfig, error)
	ListAll() ([]models.SystemConfig, error)
	Upsert(key string, value models.JSONDocument, adminID *uint) (*models.SystemConfig, error)
}

// GormConfigRepository GORM 实现
type GormConfigRepository struct {
	db *gorm.DB
}

// NewConfigRepository 创建系统配置仓库
func NewConfigRepository(db *gorm.DB) *GormConfigRepository {
	return &GormConfigRepository{db: db}
}

// GetByKey 获取配置项
func (r *GormConfigRepository) GetByKey(key string) (*models.SystemConfig, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var config models.SystemConfig
	if err := r.db.Where("key = ?", key).First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// ListAll 获取全部配置项
func (r *GormConfigRepository) ListAll() ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := r.db.Order("key ASC").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// Upsert 更新或创建配置项
func (r *GormConfigRepository) Upsert(key string, value models.JSONDocument, adminID *uint) (*models.SystemConfig, error) {
	config, err := r.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &models.SystemConfig{
			Key:       key,
			ValueJSON: value,
			UpdatedBy: adminID,
			UpdatedAt: time.Now(),
		}
		if err := r.db.Create(config).Error; err != nil {
			return nil, err
		}
		return config, nil
	}

	config.ValueJSON = value
	config.UpdatedBy = adminID
	config.UpdatedAt = time.Now()
	if err := r.db.Save(config).Error; err != nil {
		return nil, err
	}
	return config, nil
}
