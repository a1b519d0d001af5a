package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/provider"
	"github.com/leadscout/leadscout-api/internal/repository"
	"github.com/leadscout/leadscout-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func money(t *testing.T, raw string) models.Money {
	t.Helper()
	d, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse amount %q failed: %v", raw, err)
	}
	return models.NewMoneyFromDecimal(d)
}

func newCommissionHandlerTest(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.AgentProfile{},
		&models.Invitation{},
		&models.CommissionRecord{},
		&models.WithdrawalRequest{},
		&models.SystemConfig{},
	); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}

	agentRepo := repository.NewAgentRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	agentSvc := service.NewAgentService(agentRepo, invitationRepo, commissionRepo, repository.NewWithdrawalRepository(db))
	commissionSvc := service.NewCommissionService(
		commissionRepo,
		agentRepo,
		invitationRepo,
		agentSvc,
		service.NewConfigService(repository.NewConfigRepository(db)),
	)
	return New(&provider.Container{CommissionService: commissionSvc}), db
}

func newCommissionTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("admin_id", uint(7))
	})
	r.POST("/admin/commissions/allocate", h.AllocateAdminCommissions)
	r.POST("/admin/commissions/decide", h.DecideAdminCommissions)
	return r
}

func seedReferredCustomer(t *testing.T, db *gorm.DB, email string) *models.AgentProfile {
	t.Helper()
	agent := &models.AgentProfile{
		RealName:  "代理甲",
		AgentCode: "ALLOCAAA22",
		Level:     1,
		Status:    constants.AgentStatusActive,
	}
	if err := db.Create(agent).Error; err != nil {
		t.Fatalf("create agent failed: %v", err)
	}
	now := time.Now()
	if err := db.Create(&models.Invitation{
		AgentID:       agent.ID,
		CustomerEmail: email,
		Status:        constants.InvitationStatusAccepted,
		AcceptedAt:    &now,
	}).Error; err != nil {
		t.Fatalf("create invitation failed: %v", err)
	}
	return agent
}

func TestAllocateAdminCommissionsEndpoint(t *testing.T) {
	h, db := newCommissionHandlerTest(t)
	r := newCommissionTestRouter(h)
	seedReferredCustomer(t, db, "buyer@example.com")

	body := `{"orderId":101,"customerEmail":"buyer@example.com","orderAmount":"1000.00"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/commissions/allocate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			CommissionCount int    `json:"commissionCount"`
			TotalCommission string `json:"totalCommission"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if !resp.Success || resp.Data.CommissionCount != 1 {
		t.Fatalf("unexpected allocate response: %s", w.Body.String())
	}
	if resp.Data.TotalCommission != "100.00" {
		t.Fatalf("total commission want 100.00 got %s", resp.Data.TotalCommission)
	}

	// 同一订单重复分配应拒绝
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/admin/commissions/allocate", strings.NewReader(body))
	req2.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusConflict {
		t.Fatalf("duplicate allocate status want 409 got %d", w2.Code)
	}
}

func TestAllocateAdminCommissionsRejectsBadInput(t *testing.T) {
	h, _ := newCommissionHandlerTest(t)
	r := newCommissionTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/commissions/allocate", strings.NewReader(`{"customerEmail":"buyer@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing orderId status want 400 got %d", w.Code)
	}
}

func TestDecideAdminCommissionsRequestFields(t *testing.T) {
	h, db := newCommissionHandlerTest(t)
	r := newCommissionTestRouter(h)
	agent := seedReferredCustomer(t, db, "buyer@example.com")

	record := &models.CommissionRecord{
		OrderID:     202,
		AgentID:     agent.ID,
		Level:       1,
		OrderAmount: money(t, "1000.00"),
		RatePercent: money(t, "10"),
		Amount:      money(t, "100.00"),
		Status:      constants.CommissionStatusPending,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}

	body := fmt.Sprintf(`{"commissionIds":[%d],"action":"approve","adminNotes":"审核通过"}`, record.ID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/commissions/decide", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d, body %s", w.Code, w.Body.String())
	}

	var updated models.CommissionRecord
	if err := db.First(&updated, record.ID).Error; err != nil {
		t.Fatalf("reload commission failed: %v", err)
	}
	if updated.Status != constants.CommissionStatusApproved {
		t.Fatalf("status want approved got %s", updated.Status)
	}
	if updated.AdminNotes != "审核通过" {
		t.Fatalf("admin notes want 审核通过 got %s", updated.AdminNotes)
	}
}
