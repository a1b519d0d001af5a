package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupDashboardRepositoryTest(t *testing.T) (*GormDashboardRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.AgentProfile{},
		&models.Order{},
		&models.CommissionRecord{},
		&models.WithdrawalRequest{},
		&models.License{},
	); err != nil {
		t.Fatalf("migrate dashboard models failed: %v", err)
	}
	return NewDashboardRepository(db), db
}

func money(t *testing.T, raw string) models.Money {
	t.Helper()
	d, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse amount %q failed: %v", raw, err)
	}
	return models.NewMoneyFromDecimal(d)
}

func TestGetOverviewCountsAndSums(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now()
	startAt := now.Add(-24 * time.Hour)
	endAt := now.Add(time.Hour)

	agent := &models.AgentProfile{
		RealName:  "代理甲",
		AgentCode: "AGENTAAAA2",
		Level:     1,
		Status:    constants.AgentStatusActive,
	}
	if err := db.Create(agent).Error; err != nil {
		t.Fatalf("create agent failed: %v", err)
	}

	orders := []models.Order{
		{OutTradeNo: "LS-PAID-1", CustomerEmail: "a@example.com", PlanID: "pro_monthly", Amount: money(t, "68.00"), Status: constants.OrderStatusPaid, PaidAt: &now},
		{OutTradeNo: "LS-PAID-2", CustomerEmail: "b@example.com", PlanID: "pro_monthly", Amount: money(t, "68.00"), Status: constants.OrderStatusPaid, PaidAt: &now},
		{OutTradeNo: "LS-PEND-1", CustomerEmail: "c@example.com", PlanID: "pro_yearly", Amount: money(t, "648.00"), Status: constants.OrderStatusPendingPayment},
	}
	for i := range orders {
		if err := db.Create(&orders[i]).Error; err != nil {
			t.Fatalf("create order failed: %v", err)
		}
	}

	commission := &models.CommissionRecord{
		OrderID:     orders[0].ID,
		AgentID:     agent.ID,
		Level:       1,
		OrderAmount: money(t, "68.00"),
		RatePercent: money(t, "10"),
		Amount:      money(t, "6.80"),
		Status:      constants.CommissionStatusPending,
	}
	if err := db.Create(commission).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}

	withdrawal := &models.WithdrawalRequest{
		AgentID:       agent.ID,
		Amount:        money(t, "120.00"),
		ActualAmount:  money(t, "120.00"),
		AlipayAccount: "agent@example.com",
		RealName:      "代理甲",
		Status:        constants.WithdrawalStatusPending,
	}
	if err := db.Create(withdrawal).Error; err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}

	row, err := repo.GetOverview(startAt, endAt)
	if err != nil {
		t.Fatalf("GetOverview failed: %v", err)
	}
	if row.OrdersTotal != 3 || row.PaidOrders != 2 || row.PendingPaymentOrders != 1 {
		t.Fatalf("unexpected order counts: %+v", row)
	}
	if row.GMVPaid != 136 {
		t.Fatalf("GMVPaid = %v, want 136", row.GMVPaid)
	}
	if row.ActiveAgents != 1 {
		t.Fatalf("ActiveAgents = %d, want 1", row.ActiveAgents)
	}
	if row.PendingCommissions != 1 || row.PendingCommissionTotal != 6.8 {
		t.Fatalf("pending commissions mismatch: %+v", row)
	}
	if row.PendingWithdrawals != 1 || row.PendingWithdrawalTotal != 120 {
		t.Fatalf("pending withdrawals mismatch: %+v", row)
	}
}

func TestGetOrderTrendsMergesPaidCounts(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now()

	orders := []models.Order{
		{OutTradeNo: "LS-T1", CustomerEmail: "a@example.com", PlanID: "pro_monthly", Amount: money(t, "68.00"), Status: constants.OrderStatusPaid},
		{OutTradeNo: "LS-T2", CustomerEmail: "b@example.com", PlanID: "pro_monthly", Amount: money(t, "68.00"), Status: constants.OrderStatusExpired},
	}
	for i := range orders {
		if err := db.Create(&orders[i]).Error; err != nil {
			t.Fatalf("create order failed: %v", err)
		}
	}

	rows, err := repo.GetOrderTrends(now.Add(-24*time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetOrderTrends failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected single day bucket, got %d", len(rows))
	}
	if rows[0].OrdersTotal != 2 || rows[0].OrdersPaid != 1 {
		t.Fatalf("unexpected trend row: %+v", rows[0])
	}
}

func TestGetTopAgentsOrdersByAmount(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now()

	first := &models.AgentProfile{RealName: "代理甲", AgentCode: "TOPAAAA234", Level: 1, Status: constants.AgentStatusActive}
	second := &models.AgentProfile{RealName: "代理乙", AgentCode: "TOPBBBB234", Level: 2, Status: constants.AgentStatusActive}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("create agent failed: %v", err)
	}
	if err := db.Create(second).Error; err != nil {
		t.Fatalf("create agent failed: %v", err)
	}

	order := &models.Order{OutTradeNo: "LS-RANK", CustomerEmail: "a@example.com", PlanID: "lifetime", Amount: money(t, "1680.00"), Status: constants.OrderStatusPaid, PaidAt: &now}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	records := []models.CommissionRecord{
		{OrderID: order.ID, AgentID: first.ID, Level: 1, OrderAmount: money(t, "1680.00"), RatePercent: money(t, "10"), Amount: money(t, "168.00"), Status: constants.CommissionStatusApproved},
		{OrderID: order.ID, AgentID: second.ID, Level: 2, OrderAmount: money(t, "1680.00"), RatePercent: money(t, "5"), Amount: money(t, "84.00"), Status: constants.CommissionStatusPending},
	}
	for i := range records {
		if err := db.Create(&records[i]).Error; err != nil {
			t.Fatalf("create commission failed: %v", err)
		}
	}
	// 驳回的佣金不计入排行
	rejected := models.CommissionRecord{OrderID: order.ID + 1000, AgentID: second.ID, Level: 2, OrderAmount: money(t, "1680.00"), RatePercent: money(t, "5"), Amount: money(t, "84.00"), Status: constants.CommissionStatusRejected}
	if err := db.Create(&rejected).Error; err != nil {
		t.Fatalf("create rejected commission failed: %v", err)
	}

	rows, err := repo.GetTopAgents(now.Add(-time.Hour), now.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("GetTopAgents failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 ranking rows, got %d", len(rows))
	}
	if rows[0].AgentID != first.ID || rows[0].CommissionAmount != 168 {
		t.Fatalf("unexpected top row: %+v", rows[0])
	}
	if rows[1].AgentID != second.ID || rows[1].CommissionAmount != 84 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}
