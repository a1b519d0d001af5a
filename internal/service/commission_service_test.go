package service

import (
	"errors"
	"testing"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/repository"

	"gorm.io/gorm"
)

func newCommissionTestService(db *gorm.DB) *CommissionService {
	agentRepo := repository.NewAgentRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	return NewCommissionService(
		repository.NewCommissionRepository(db),
		agentRepo,
		invitationRepo,
		newAgentTestService(db),
		NewConfigService(repository.NewConfigRepository(db)),
	)
}

func seedAcceptedInvitation(t *testing.T, db *gorm.DB, agentID uint, email string) {
	t.Helper()
	now := time.Now()
	if err := db.Create(&models.Invitation{
		AgentID:       agentID,
		CustomerEmail: email,
		Status:        constants.InvitationStatusAccepted,
		AcceptedAt:    &now,
	}).Error; err != nil {
		t.Fatalf("seed invitation failed: %v", err)
	}
}

func TestAllocateThreeLevelChain(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newCommissionTestService(db)

	grandpa := seedAgent(t, db, &models.AgentProfile{RealName: "一级", AgentCode: "CHAINTOP", Level: 1})
	parent := seedAgent(t, db, &models.AgentProfile{RealName: "二级", AgentCode: "CHAINMID", Level: 2, ParentAgentID: &grandpa.ID})
	referrer := seedAgent(t, db, &models.AgentProfile{RealName: "三级", AgentCode: "CHAINLOW", Level: 3, ParentAgentID: &parent.ID})
	seedAcceptedInvitation(t, db, referrer.ID, "buyer@example.com")

	result, err := svc.Allocate(CommissionAllocateInput{
		OrderID:       1001,
		CustomerEmail: "buyer@example.com",
		OrderAmount:   mustDecimal(t, "1000"),
	})
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if result.CommissionCount != 3 {
		t.Fatalf("expected 3 commission records, got %d", result.CommissionCount)
	}
	// 层级表回退 10/5/2
	expected := map[uint]string{
		referrer.ID: "100",
		parent.ID:   "50",
		grandpa.ID:  "20",
	}
	for _, record := range result.Records {
		want := mustDecimal(t, expected[record.AgentID])
		if !record.Amount.Decimal.Equal(want) {
			t.Fatalf("agent %d expected amount %s, got %s", record.AgentID, want, record.Amount)
		}
		if record.Status != constants.CommissionStatusPending {
			t.Fatalf("expected pending record, got %s", record.Status)
		}
		if !record.OrderAmount.Decimal.Equal(mustDecimal(t, "1000")) {
			t.Fatalf("expected order amount 1000, got %s", record.OrderAmount)
		}
	}
	if !result.TotalCommission.Decimal.Equal(mustDecimal(t, "170")) {
		t.Fatalf("expected total 170, got %s", result.TotalCommission)
	}
}

func TestAllocateNoInvitationIsZeroCountSuccess(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newCommissionTestService(db)

	result, err := svc.Allocate(CommissionAllocateInput{
		OrderID:       2001,
		CustomerEmail: "stranger@example.com",
		OrderAmount:   mustDecimal(t, "648"),
	})
	if err != nil {
		t.Fatalf("allocate without invitation failed: %v", err)
	}
	if result.CommissionCount != 0 || len(result.Records) != 0 {
		t.Fatalf("expected zero-count success, got %d records", result.CommissionCount)
	}
	if !result.TotalCommission.Decimal.IsZero() {
		t.Fatalf("expected zero total, got %s", result.TotalCommission)
	}
}

func TestAllocateRateOverrideBeatsLevelTable(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newCommissionTestService(db)

	override := models.NewMoneyFromDecimal(mustDecimal(t, "12"))
	referrer := seedAgent(t, db, &models.AgentProfile{RealName: "覆盖", AgentCode: "OVERRIDE", Level: 1, CommissionRate: &override})
	seedAcceptedInvitation(t, db, referrer.ID, "vip@example.com")

	result, err := svc.Allocate(CommissionAllocateInput{
		OrderID:       3001,
		CustomerEmail: "vip@example.com",
		OrderAmount:   mustDecimal(t, "1000"),
	})
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if result.CommissionCount != 1 {
		t.Fatalf("expected 1 record, got %d", result.CommissionCount)
	}
	if !result.Records[0].Amount.Decimal.Equal(mustDecimal(t, "120")) {
		t.Fatalf("expected override amount 120, got %s", result.Records[0].Amount)
	}
	if !result.Records[0].RatePercent.Decimal.Equal(mustDecimal(t, "12")) {
		t.Fatalf("expected rate 12, got %s", result.Records[0].RatePercent)
	}
}

func TestAllocateSkipsZeroAmount(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newCommissionTestService(db)

	zero := models.NewMoneyFromDecimal(mustDecimal(t, "0"))
	referrer := seedAgent(t, db, &models.AgentProfile{RealName: "零率", AgentCode: "ZERORATE", Level: 1, CommissionRate: &zero})
	seedAcceptedInvitation(t, db, referrer.ID, "zero@example.com")

	result, err := svc.Allocate(CommissionAllocateInput{
		OrderID:       4001,
		CustomerEmail: "zero@example.com",
		OrderAmount:   mustDecimal(t, "1000"),
	})
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if result.CommissionCount != 0 {
		t.Fatalf("expected zero-amount record skipped, got %d records", result.CommissionCount)
	}
}

func TestAllocateRejectsDuplicateOrder(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newCommissionTestService(db)

	referrer := seedAgent(t, db, &models.AgentProfile{RealName: "推荐", AgentCode: "DUPORDER", Level: 1})
	seedAcceptedInvitation(t, db, referrer.ID, "repeat@example.com")

	input := CommissionAllocateInput{
		OrderID:       5001,
		CustomerEmail: "repeat@example.com",
		OrderAmount:   mustDecimal(t, "648"),
	}
	if _, err := svc.Allocate(input); err != nil {
		t.Fatalf("first allocate failed: %v", err)
	}
	if _, err := svc.Allocate(input); !errors.Is(err, ErrCommissionExists) {
		t.Fatalf("expected ErrCommissionExists on rerun, got %v", err)
	}
}

func TestDecideApproveCreditsBalanceAndSkipsDecided(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newCommissionTestService(db)
	agentRepo := repository.NewAgentRepository(db)

	referrer := seedAgent(t, db, &models.AgentProfile{RealName: "待审", AgentCode: "APPROVE2", Level: 1})
	seedAcceptedInvitation(t, db, referrer.ID, "approve@example.com")
	allocated, err := svc.Allocate(CommissionAllocateInput{
		OrderID:       6001,
		CustomerEmail: "approve@example.com",
		OrderAmount:   mustDecimal(t, "1000"),
	})
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	pendingID := allocated.Records[0].ID

	// 已驳回的记录混入审批请求时应被静默排除
	rejected := models.CommissionRecord{
		OrderID:     6002,
		AgentID:     referrer.ID,
		Level:       1,
		OrderAmount: models.NewMoneyFromDecimal(mustDecimal(t, "100")),
		RatePercent: models.NewMoneyFromDecimal(mustDecimal(t, "10")),
		Amount:      models.NewMoneyFromDecimal(mustDecimal(t, "10")),
		Status:      constants.CommissionStatusRejected,
	}
	if err := db.Create(&rejected).Error; err != nil {
		t.Fatalf("seed rejected record failed: %v", err)
	}

	result, err := svc.Decide(CommissionDecideInput{
		CommissionIDs: []uint{pendingID, rejected.ID},
		Action:        constants.CommissionActionApprove,
		AdminID:       7,
		Notes:         "ok",
	})
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("expected 1 updated record, got %d", result.UpdatedCount)
	}
	if len(result.Records) != 1 || result.Records[0].ID != pendingID {
		t.Fatalf("expected only pending record decided")
	}
	if result.Records[0].Status != constants.CommissionStatusApproved {
		t.Fatalf("expected approved status, got %s", result.Records[0].Status)
	}
	if result.Records[0].ApprovedBy == nil || *result.Records[0].ApprovedBy != 7 {
		t.Fatalf("expected approver 7, got %v", result.Records[0].ApprovedBy)
	}

	agent, err := agentRepo.GetByID(referrer.ID)
	if err != nil {
		t.Fatalf("reload agent failed: %v", err)
	}
	if !agent.AvailableBalance.Decimal.Equal(mustDecimal(t, "100")) {
		t.Fatalf("expected available balance 100, got %s", agent.AvailableBalance)
	}
	if !agent.TotalCommission.Decimal.Equal(mustDecimal(t, "100")) {
		t.Fatalf("expected total commission 100, got %s", agent.TotalCommission)
	}
}

func TestDecideRejectLeavesBalanceUntouched(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newCommissionTestService(db)
	agentRepo := repository.NewAgentRepository(db)

	referrer := seedAgent(t, db, &models.AgentProfile{RealName: "驳回", AgentCode: "REJECT22", Level: 1})
	seedAcceptedInvitation(t, db, referrer.ID, "reject@example.com")
	allocated, err := svc.Allocate(CommissionAllocateInput{
		OrderID:       7001,
		CustomerEmail: "reject@example.com",
		OrderAmount:   mustDecimal(t, "500"),
	})
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}

	result, err := svc.Decide(CommissionDecideInput{
		CommissionIDs: []uint{allocated.Records[0].ID},
		Action:        constants.CommissionActionReject,
		AdminID:       7,
		Notes:         "资料不符",
	})
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if result.UpdatedCount != 1 || result.Records[0].Status != constants.CommissionStatusRejected {
		t.Fatalf("expected rejected record, got %+v", result.Records)
	}

	agent, err := agentRepo.GetByID(referrer.ID)
	if err != nil {
		t.Fatalf("reload agent failed: %v", err)
	}
	if !agent.AvailableBalance.Decimal.IsZero() {
		t.Fatalf("expected untouched balance, got %s", agent.AvailableBalance)
	}
}

func TestDecideValidatesInput(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newCommissionTestService(db)

	if _, err := svc.Decide(CommissionDecideInput{Action: constants.CommissionActionApprove}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for empty ids, got %v", err)
	}
	if _, err := svc.Decide(CommissionDecideInput{CommissionIDs: []uint{1}, Action: "archive"}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for unknown action, got %v", err)
	}
}
