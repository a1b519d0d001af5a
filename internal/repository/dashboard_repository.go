package repository

import (
	"fmt"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetOrderTrends(startAt, endAt time.Time) ([]DashboardOrderTrendRow, error)
	GetTopAgents(startAt, endAt time.Time, limit int) ([]DashboardAgentRankingRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	OrdersTotal            int64
	PaidOrders             int64
	PendingPaymentOrders   int64
	GMVPaid                float64
	NewUsers               int64
	ActiveAgents           int64
	ActiveLicenses         int64
	PendingCommissions     int64
	PendingCommissionTotal float64
	PendingWithdrawals     int64
	PendingWithdrawalTotal float64
}

// DashboardOrderTrendRow 订单趋势统计
type DashboardOrderTrendRow struct {
	Day         string
	OrdersTotal int64
	OrdersPaid  int64
}

// DashboardAgentRankingRow 代理业绩排行原始行
type DashboardAgentRankingRow struct {
	AgentID          uint
	RealName         string
	AgentCode        string
	CommissionCount  int64
	CommissionAmount float64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	orderBase := func() *gorm.DB {
		return r.db.Model(&models.Order{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}

	if err := orderBase().Count(&result.OrdersTotal).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("status = ?", constants.OrderStatusPaid).Count(&result.PaidOrders).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("status = ?", constants.OrderStatusPendingPayment).Count(&result.PendingPaymentOrders).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Order{}).
		Where("paid_at IS NOT NULL AND paid_at >= ? AND paid_at < ? AND status = ?", startAt, endAt, constants.OrderStatusPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&result.GMVPaid).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewUsers).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.AgentProfile{}).
		Where("status = ?", constants.AgentStatusActive).
		Count(&result.ActiveAgents).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.License{}).
		Where("status = ?", constants.LicenseStatusActive).
		Count(&result.ActiveLicenses).Error; err != nil {
		return result, err
	}

	commissionBase := func() *gorm.DB {
		return r.db.Model(&models.CommissionRecord{}).
			Where("status = ?", constants.CommissionStatusPending)
	}
	if err := commissionBase().Count(&result.PendingCommissions).Error; err != nil {
		return result, err
	}
	if err := commissionBase().
		Select("COALESCE(SUM(amount), 0)").
		Scan(&result.PendingCommissionTotal).Error; err != nil {
		return result, err
	}

	withdrawalBase := func() *gorm.DB {
		return r.db.Model(&models.WithdrawalRequest{}).
			Where("status = ?", constants.WithdrawalStatusPending)
	}
	if err := withdrawalBase().Count(&result.PendingWithdrawals).Error; err != nil {
		return result, err
	}
	if err := withdrawalBase().
		Select("COALESCE(SUM(amount), 0)").
		Scan(&result.PendingWithdrawalTotal).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetOrderTrends 获取订单趋势
func (r *GormDashboardRepository) GetOrderTrends(startAt, endAt time.Time) ([]DashboardOrderTrendRow, error) {
	type totalRow struct {
		Day   string
		Total int64
	}
	type paidRow struct {
		Day  string
		Paid int64
	}

	var totals []totalRow
	dayExpr := "CAST(date(created_at) AS TEXT)"
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	var paids []paidRow
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as paid", dayExpr)).
		Where("created_at >= ? AND created_at < ? AND status = ?", startAt, endAt, constants.OrderStatusPaid).
		Group(dayExpr).
		Order("day asc").
		Scan(&paids).Error; err != nil {
		return nil, err
	}

	paidMap := make(map[string]int64, len(paids))
	for _, item := range paids {
		paidMap[item.Day] = item.Paid
	}

	result := make([]DashboardOrderTrendRow, 0, len(totals))
	for _, item := range totals {
		result = append(result, DashboardOrderTrendRow{
			Day:         item.Day,
			OrdersTotal: item.Total,
			OrdersPaid:  paidMap[item.Day],
		})
	}
	return result, nil
}

// GetTopAgents 获取佣金业绩排行
func (r *GormDashboardRepository) GetTopAgents(startAt, endAt time.Time, limit int) ([]DashboardAgentRankingRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []DashboardAgentRankingRow
	if err := r.db.Model(&models.CommissionRecord{}).
		Select(
			"commission_records.agent_id AS agent_id, " +
				"agent_profiles.real_name AS real_name, " +
				"agent_profiles.agent_code AS agent_code, " +
				"COUNT(*) AS commission_count, " +
				"COALESCE(SUM(commission_records.amount), 0) AS commission_amount",
		).
		Joins("LEFT JOIN agent_profiles ON agent_profiles.id = commission_records.agent_id").
		Where("commission_records.created_at >= ? AND commission_records.created_at < ?", startAt, endAt).
		Where("commission_records.status IN ?", []string{constants.CommissionStatusPending, constants.CommissionStatusApproved}).
		Group("commission_records.agent_id, agent_profiles.real_name, agent_profiles.agent_code").
		Order("commission_amount DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
