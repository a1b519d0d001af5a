package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leadscout/leadscout-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuditLogRepositoryTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.UserLoginLog{}, &models.AuthzAuditLog{}); err != nil {
		t.Fatalf("migrate audit log models failed: %v", err)
	}
	return db
}

func TestUserLoginLogListAdminFilters(t *testing.T) {
	db := setupAuditLogRepositoryTest(t)
	repo := NewUserLoginLogRepository(db)

	logs := []models.UserLoginLog{
		{UserID: 1, Email: "agent@example.com", Status: "success", ClientIP: "10.0.0.1", LoginSource: "web"},
		{UserID: 1, Email: "agent@example.com", Status: "failed", FailReason: "password_mismatch", ClientIP: "10.0.0.2", LoginSource: "web"},
		{UserID: 2, Email: "other@example.com", Status: "failed", FailReason: "user_not_found", ClientIP: "10.0.0.3", LoginSource: "web"},
	}
	for i := range logs {
		if err := repo.Create(&logs[i]); err != nil {
			t.Fatalf("create login log failed: %v", err)
		}
	}

	rows, total, err := repo.ListAdmin(UserLoginLogListFilter{Page: 1, PageSize: 10, Email: "agent@example.com", Status: "failed"})
	if err != nil {
		t.Fatalf("ListAdmin failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("expected 1 filtered login log, got total=%d len=%d", total, len(rows))
	}
	if rows[0].FailReason != "password_mismatch" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}

	from := time.Now().Add(time.Hour)
	rows, total, err = repo.ListAdmin(UserLoginLogListFilter{Page: 1, PageSize: 10, CreatedFrom: &from})
	if err != nil {
		t.Fatalf("ListAdmin with time window failed: %v", err)
	}
	if total != 0 || len(rows) != 0 {
		t.Fatalf("expected empty result outside time window, got total=%d len=%d", total, len(rows))
	}
}

func TestAuthzAuditLogListAdminFilters(t *testing.T) {
	db := setupAuditLogRepositoryTest(t)
	repo := NewAuthzAuditLogRepository(db)

	target := uint(9)
	logs := []models.AuthzAuditLog{
		{OperatorAdminID: 1, OperatorUsername: "root", Action: "assign_role", Role: "ops", TargetAdminID: &target, Method: "POST"},
		{OperatorAdminID: 1, OperatorUsername: "root", Action: "add_policy", Role: "ops", Object: "/api/admin/configs", Method: "POST"},
		{OperatorAdminID: 2, OperatorUsername: "audit", Action: "assign_role", Role: "viewer", Method: "POST"},
	}
	for i := range logs {
		if err := repo.Create(&logs[i]); err != nil {
			t.Fatalf("create audit log failed: %v", err)
		}
	}

	rows, total, err := repo.ListAdmin(AuthzAuditLogListFilter{Page: 1, PageSize: 10, OperatorAdminID: 1, Action: "assign_role"})
	if err != nil {
		t.Fatalf("ListAdmin failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("expected 1 filtered audit log, got total=%d len=%d", total, len(rows))
	}
	if rows[0].TargetAdminID == nil || *rows[0].TargetAdminID != target {
		t.Fatalf("unexpected row: %+v", rows[0])
	}

	rows, total, err = repo.ListAdmin(AuthzAuditLogListFilter{Page: 1, PageSize: 10, Object: "/api/admin/configs"})
	if err != nil {
		t.Fatalf("ListAdmin by object failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Action != "add_policy" {
		t.Fatalf("expected the policy change row, got total=%d rows=%+v", total, rows)
	}
}
