//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.CommissionRecord{},
		&models.WithdrawalRequest{},
		&models.License{},
		&models.Invitation{},
		&models.Order{},
		&models.AgentProfile{},
		&models.User{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.User{},
		&models.AgentProfile{},
		&models.Invitation{},
		&models.Order{},
		&models.CommissionRecord{},
		&models.WithdrawalRequest{},
		&models.License{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}
	if err := models.MigrateWithdrawalPendingIndex(db); err != nil {
		t.Fatalf("migrate withdrawal pending index failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresWithdrawalPendingUniqueIndex(t *testing.T) {
	db := setupPostgresIntegrationDB(t)

	agent := &models.AgentProfile{
		RealName:  "集成测试代理",
		AgentCode: "PGAGENT234",
		Level:     1,
		Status:    constants.AgentStatusActive,
	}
	if err := db.Create(agent).Error; err != nil {
		t.Fatalf("create agent failed: %v", err)
	}

	first := &models.WithdrawalRequest{
		AgentID:       agent.ID,
		Amount:        models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
		ActualAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
		AlipayAccount: "pg@example.com",
		RealName:      "集成测试代理",
		Status:        constants.WithdrawalStatusPending,
	}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("create first pending withdrawal failed: %v", err)
	}

	second := &models.WithdrawalRequest{
		AgentID:       agent.ID,
		Amount:        models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		ActualAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		AlipayAccount: "pg@example.com",
		RealName:      "集成测试代理",
		Status:        constants.WithdrawalStatusPending,
	}
	if err := db.Create(second).Error; err == nil {
		t.Fatal("second pending withdrawal for the same agent should violate the partial unique index")
	}

	// 已打款的记录不受索引约束
	paid := &models.WithdrawalRequest{
		AgentID:       agent.ID,
		Amount:        models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		ActualAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		AlipayAccount: "pg@example.com",
		RealName:      "集成测试代理",
		Status:        constants.WithdrawalStatusPaid,
	}
	if err := db.Create(paid).Error; err != nil {
		t.Fatalf("paid withdrawal should not be blocked by the index: %v", err)
	}
}

func TestPostgresDashboardQueries(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewDashboardRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	agent := &models.AgentProfile{
		RealName:  "仪表盘代理",
		AgentCode: "PGDASH2345",
		Level:     1,
		Status:    constants.AgentStatusActive,
	}
	if err := db.Create(agent).Error; err != nil {
		t.Fatalf("create agent failed: %v", err)
	}

	order := &models.Order{
		OutTradeNo:    "PG-ORDER-001",
		CustomerEmail: "pg@example.com",
		PlanID:        "pro_monthly",
		Amount:        models.NewMoneyFromDecimal(decimal.NewFromInt(68)),
		Status:        constants.OrderStatusPaid,
		PaidAt:        &now,
		CreatedAt:     now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	commission := &models.CommissionRecord{
		OrderID:     order.ID,
		AgentID:     agent.ID,
		Level:       1,
		OrderAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(68)),
		RatePercent: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Amount:      models.NewMoneyFromDecimal(decimal.NewFromFloat(6.8)),
		Status:      constants.CommissionStatusPending,
		CreatedAt:   now,
	}
	if err := db.Create(commission).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}

	startAt := now.Add(-time.Hour)
	endAt := now.Add(time.Hour)

	overview, err := repo.GetOverview(startAt, endAt)
	if err != nil {
		t.Fatalf("get overview failed: %v", err)
	}
	if overview.PaidOrders != 1 {
		t.Fatalf("paid orders want 1 got %d", overview.PaidOrders)
	}
	if overview.PendingCommissions != 1 {
		t.Fatalf("pending commissions want 1 got %d", overview.PendingCommissions)
	}

	orderTrends, err := repo.GetOrderTrends(startAt, endAt)
	if err != nil {
		t.Fatalf("get order trends failed: %v", err)
	}
	if len(orderTrends) == 0 {
		t.Fatalf("order trends should not be empty")
	}
	if strings.TrimSpace(orderTrends[0].Day) == "" {
		t.Fatalf("order trend day should not be empty")
	}

	rankings, err := repo.GetTopAgents(startAt, endAt, 5)
	if err != nil {
		t.Fatalf("get top agents failed: %v", err)
	}
	if len(rankings) != 1 || rankings[0].AgentID != agent.ID {
		t.Fatalf("unexpected agent rankings: %+v", rankings)
	}
}
