package repository

import (
	"database/sql"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrackingRepository 邮件追踪数据访问接口
type TrackingRepository interface {
	CreateEvent(event *models.TrackingEvent) error
	CountEventsByUserSince(userID uint, since time.Time) (int64, error)
	ListEvents(filter TrackingEventListFilter) ([]models.TrackingEvent, int64, error)
	AggregateRecipientStats(userID uint) error
	ListRecipientStats(userID uint, page, pageSize int) ([]models.TrackingRecipientStat, int64, error)
	ListUserIDsWithEventsSince(since time.Time) ([]uint, error)
}

// GormTrackingRepository GORM 追踪仓储
type GormTrackingRepository struct {
	db *gorm.DB
}

// NewTrackingRepository 创建追踪仓储
func NewTrackingRepository(db *gorm.DB) *GormTrackingRepository {
	return &GormTrackingRepository{db: db}
}

// CreateEvent 写入追踪事件
func (r *GormTrackingRepository) CreateEvent(event *models.TrackingEvent) error {
	return r.db.Create(event).Error
}

// CountEventsByUserSince 统计用户自某时刻以来的事件数（额度兜底计数）
func (r *GormTrackingRepository) CountEventsByUserSince(userID uint, since time.Time) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	var count int64
	if err := r.db.Model(&models.TrackingEvent{}).
		Where("user_id = ? AND occurred_at >= ?", userID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListEvents 分页查询追踪事件
func (r *GormTrackingRepository) ListEvents(filter TrackingEventListFilter) ([]models.TrackingEvent, int64, error) {
	query := r.db.Model(&models.TrackingEvent{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Token != "" {
		query = query.Where("token = ?", filter.Token)
	}
	if filter.Event != "" {
		query = query.Where("event = ?", filter.Event)
	}
	if filter.RecipientEmail != "" {
		query = query.Where("recipient_email = ?", filter.RecipientEmail)
	}
	if filter.OccurredFrom != nil {
		query = query.Where("occurred_at >= ?", *filter.OccurredFrom)
	}
	if filter.OccurredTo != nil {
		query = query.Where("occurred_at <= ?", *filter.OccurredTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var events []models.TrackingEvent
	if err := query.Order("id DESC").Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// AggregateRecipientStats 按收件人重建用户的打开/点击统计。
// 全量 GROUP BY 后逐收件人 upsert，由后台任务低频调用。
func (r *GormTrackingRepository) AggregateRecipientStats(userID uint) error {
	if userID == 0 {
		return nil
	}
	// 聚合列在 sqlite 下丢失时间类型信息，先按文本扫描再解析。
	var rows []struct {
		RecipientEmail string         `gorm:"column:recipient_email"`
		OpenCount      int64          `gorm:"column:open_count"`
		ClickCount     int64          `gorm:"column:click_count"`
		FirstOpenAt    sql.NullString `gorm:"column:first_open_at"`
		LastEventAt    sql.NullString `gorm:"column:last_event_at"`
	}
	if err := r.db.Model(&models.TrackingEvent{}).
		Select(
			"recipient_email, "+
				"SUM(CASE WHEN event = ? THEN 1 ELSE 0 END) AS open_count, "+
				"SUM(CASE WHEN event = ? THEN 1 ELSE 0 END) AS click_count, "+
				"MIN(CASE WHEN event = ? THEN occurred_at END) AS first_open_at, "+
				"MAX(occurred_at) AS last_event_at",
			constants.TrackingEventOpen, constants.TrackingEventClick, constants.TrackingEventOpen,
		).
		Where("user_id = ? AND recipient_email <> ''", userID).
		Group("recipient_email").
		Scan(&rows).Error; err != nil {
		return err
	}

	now := time.Now()
	for _, row := range rows {
		stat := models.TrackingRecipientStat{
			UserID:         userID,
			RecipientEmail: row.RecipientEmail,
			OpenCount:      row.OpenCount,
			ClickCount:     row.ClickCount,
			FirstOpenAt:    parseAggregateTime(row.FirstOpenAt),
			LastEventAt:    parseAggregateTime(row.LastEventAt),
			UpdatedAt:      now,
		}
		if err := r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "recipient_email"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"open_count", "click_count", "first_open_at", "last_event_at", "updated_at",
			}),
		}).Create(&stat).Error; err != nil {
			return err
		}
	}
	return nil
}

// aggregateTimeLayouts 覆盖 database/sql 回传的 RFC3339 与 sqlite 存储的时间文本格式。
var aggregateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseAggregateTime 解析聚合列扫描出的时间文本，解析失败返回 nil。
func parseAggregateTime(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	for _, layout := range aggregateTimeLayouts {
		if ts, err := time.Parse(layout, raw.String); err == nil {
			return &ts
		}
	}
	return nil
}

// ListRecipientStats 分页查询收件人统计
func (r *GormTrackingRepository) ListRecipientStats(userID uint, page, pageSize int) ([]models.TrackingRecipientStat, int64, error) {
	query := r.db.Model(&models.TrackingRecipientStat{})
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, page, pageSize)

	var stats []models.TrackingRecipientStat
	if err := query.Order("last_event_at DESC").Find(&stats).Error; err != nil {
		return nil, 0, err
	}
	return stats, total, nil
}

// ListUserIDsWithEventsSince 查询某时刻后产生过事件的用户ID列表
func (r *GormTrackingRepository) ListUserIDsWithEventsSince(since time.Time) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.TrackingEvent{}).
		Where("occurred_at >= ?", since).
		Distinct("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
