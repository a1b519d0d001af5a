package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.AgentProfile{},
		&models.Invitation{},
		&models.CommissionRecord{},
		&models.WithdrawalRequest{},
		&models.Order{},
		&models.License{},
		&models.SystemConfig{},
		&models.TrackingEvent{},
		&models.TrackingRecipientStat{},
	); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}
	if err := models.MigrateWithdrawalPendingIndex(db); err != nil {
		t.Fatalf("migrate withdrawal pending index failed: %v", err)
	}
	return db
}

func newAgentTestService(db *gorm.DB) *AgentService {
	return NewAgentService(
		repository.NewAgentRepository(db),
		repository.NewInvitationRepository(db),
		repository.NewCommissionRepository(db),
		repository.NewWithdrawalRepository(db),
	)
}

func mustDecimal(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse decimal %q failed: %v", raw, err)
	}
	return d
}

func seedAgent(t *testing.T, db *gorm.DB, profile *models.AgentProfile) *models.AgentProfile {
	t.Helper()
	if profile.Status == "" {
		profile.Status = constants.AgentStatusActive
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("seed agent failed: %v", err)
	}
	return profile
}

func TestCreateAgentRootAndChild(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newAgentTestService(db)

	root, err := svc.CreateAgent(AgentCreateInput{RealName: "张三", Email: "Root@Example.com "})
	if err != nil {
		t.Fatalf("create root agent failed: %v", err)
	}
	if root.Level != 1 || root.ParentAgentID != nil {
		t.Fatalf("expected root at level 1 without parent, got level=%d parent=%v", root.Level, root.ParentAgentID)
	}
	if root.Email != "root@example.com" {
		t.Fatalf("expected normalized email, got %s", root.Email)
	}
	if len(root.AgentCode) != constants.AgentCodeLength {
		t.Fatalf("expected %d-char agent code, got %q", constants.AgentCodeLength, root.AgentCode)
	}
	for _, ch := range root.AgentCode {
		if !strings.ContainsRune(constants.CodeAlphabet, ch) {
			t.Fatalf("agent code %q contains char outside alphabet", root.AgentCode)
		}
	}

	child, err := svc.CreateAgent(AgentCreateInput{RealName: "李四", ParentAgentCode: root.AgentCode})
	if err != nil {
		t.Fatalf("create child agent failed: %v", err)
	}
	if child.ParentAgentID == nil || *child.ParentAgentID != root.ID {
		t.Fatalf("expected child parent %d, got %v", root.ID, child.ParentAgentID)
	}
	if child.Level != 2 {
		t.Fatalf("expected child level 2, got %d", child.Level)
	}
	if child.AgentCode == root.AgentCode {
		t.Fatalf("expected distinct agent codes")
	}
}

// collidingAgentRepo 让每次生成的邀请码都视为已被占用
type collidingAgentRepo struct {
	repository.AgentRepository
}

func (collidingAgentRepo) ExistsByCode(string) (bool, error) {
	return true, nil
}

func TestCreateAgentCodeExhausted(t *testing.T) {
	db := newServiceTestDB(t)
	svc := NewAgentService(
		collidingAgentRepo{repository.NewAgentRepository(db)},
		repository.NewInvitationRepository(db),
		repository.NewCommissionRepository(db),
		repository.NewWithdrawalRepository(db),
	)

	if _, err := svc.CreateAgent(AgentCreateInput{RealName: "撞码"}); !errors.Is(err, ErrAgentCodeExhausted) {
		t.Fatalf("expected ErrAgentCodeExhausted, got %v", err)
	}
}

func TestCreateAgentParentErrors(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newAgentTestService(db)

	if _, err := svc.CreateAgent(AgentCreateInput{RealName: "王五", ParentAgentCode: "NOSUCH42"}); !errors.Is(err, ErrParentAgentNotFound) {
		t.Fatalf("expected ErrParentAgentNotFound, got %v", err)
	}

	suspended := seedAgent(t, db, &models.AgentProfile{
		RealName:  "停用代理",
		AgentCode: "SUSPEND2",
		Level:     1,
		Status:    constants.AgentStatusSuspended,
	})
	if _, err := svc.CreateAgent(AgentCreateInput{RealName: "王五", ParentAgentCode: suspended.AgentCode}); !errors.Is(err, ErrAgentSuspended) {
		t.Fatalf("expected ErrAgentSuspended, got %v", err)
	}
}

func TestResolveAncestorsRootIsEmpty(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newAgentTestService(db)

	root := seedAgent(t, db, &models.AgentProfile{RealName: "根代理", AgentCode: "ROOT2345", Level: 1})
	ancestors, err := svc.ResolveAncestors(root.ID)
	if err != nil {
		t.Fatalf("resolve ancestors failed: %v", err)
	}
	if len(ancestors) != 0 {
		t.Fatalf("expected empty chain for root, got %d", len(ancestors))
	}
}

func TestResolveAncestorsChainOrderAndOverride(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newAgentTestService(db)

	override := models.NewMoneyFromDecimal(mustDecimal(t, "12"))
	grandpa := seedAgent(t, db, &models.AgentProfile{RealName: "一级", AgentCode: "TOPAGENT", Level: 1, CommissionRate: &override})
	parent := seedAgent(t, db, &models.AgentProfile{RealName: "二级", AgentCode: "MIDAGENT", Level: 2, ParentAgentID: &grandpa.ID})
	leaf := seedAgent(t, db, &models.AgentProfile{RealName: "三级", AgentCode: "LOWAGENT", Level: 3, ParentAgentID: &parent.ID})

	ancestors, err := svc.ResolveAncestors(leaf.ID)
	if err != nil {
		t.Fatalf("resolve ancestors failed: %v", err)
	}
	if len(ancestors) != 2 {
		t.Fatalf("expected 2 ancestors, got %d", len(ancestors))
	}
	if ancestors[0].AgentID != parent.ID || ancestors[0].Level != 2 {
		t.Fatalf("expected direct parent at level 2, got id=%d level=%d", ancestors[0].AgentID, ancestors[0].Level)
	}
	if ancestors[1].AgentID != grandpa.ID || ancestors[1].Level != 3 {
		t.Fatalf("expected grandparent at level 3, got id=%d level=%d", ancestors[1].AgentID, ancestors[1].Level)
	}
	if ancestors[1].RateOverride == nil || !ancestors[1].RateOverride.Decimal.Equal(mustDecimal(t, "12")) {
		t.Fatalf("expected grandparent rate override 12, got %v", ancestors[1].RateOverride)
	}
}

func TestResolveAncestorsStopsAtMissingParent(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newAgentTestService(db)

	ghost := uint(99999)
	agent := seedAgent(t, db, &models.AgentProfile{RealName: "孤儿", AgentCode: "ORPHAN22", Level: 2, ParentAgentID: &ghost})
	ancestors, err := svc.ResolveAncestors(agent.ID)
	if err != nil {
		t.Fatalf("resolve ancestors failed: %v", err)
	}
	if len(ancestors) != 0 {
		t.Fatalf("expected chain to stop at missing parent, got %d ancestors", len(ancestors))
	}
}

func TestResolveAncestorsDepthCap(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newAgentTestService(db)

	var parentID *uint
	var last *models.AgentProfile
	for i := 0; i < constants.AgentChainMaxDepth+3; i++ {
		last = seedAgent(t, db, &models.AgentProfile{
			RealName:      fmt.Sprintf("代理%d", i),
			AgentCode:     fmt.Sprintf("DEEP%04d", i),
			Level:         i + 1,
			ParentAgentID: parentID,
		})
		id := last.ID
		parentID = &id
	}

	ancestors, err := svc.ResolveAncestors(last.ID)
	if err != nil {
		t.Fatalf("resolve ancestors failed: %v", err)
	}
	// 层级从 2 起计，深度上限内最多 AgentChainMaxDepth-1 个祖先
	if len(ancestors) != constants.AgentChainMaxDepth-1 {
		t.Fatalf("expected %d ancestors under depth cap, got %d", constants.AgentChainMaxDepth-1, len(ancestors))
	}
	if ancestors[len(ancestors)-1].Level != constants.AgentChainMaxDepth {
		t.Fatalf("expected deepest level %d, got %d", constants.AgentChainMaxDepth, ancestors[len(ancestors)-1].Level)
	}
}

func TestInviteCustomerIdempotent(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newAgentTestService(db)

	agent := seedAgent(t, db, &models.AgentProfile{RealName: "推荐人", AgentCode: "INVITER2", Level: 1})
	first, err := svc.InviteCustomer(agent.ID, "Buyer@Example.com")
	if err != nil {
		t.Fatalf("invite customer failed: %v", err)
	}
	if first.Status != constants.InvitationStatusPending {
		t.Fatalf("expected pending invitation, got %s", first.Status)
	}
	if first.CustomerEmail != "buyer@example.com" {
		t.Fatalf("expected normalized email, got %s", first.CustomerEmail)
	}

	second, err := svc.InviteCustomer(agent.ID, "buyer@example.com")
	if err != nil {
		t.Fatalf("repeat invite failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected idempotent invite, got new record %d", second.ID)
	}
}

func TestAcceptInvitation(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newAgentTestService(db)

	agent := seedAgent(t, db, &models.AgentProfile{RealName: "推荐人", AgentCode: "ACCEPT22", Level: 1})

	// 无既有邀请时直接落已接受记录
	invitation, err := svc.AcceptInvitation(agent.AgentCode, "new@example.com")
	if err != nil {
		t.Fatalf("accept invitation failed: %v", err)
	}
	if invitation.Status != constants.InvitationStatusAccepted || invitation.AcceptedAt == nil {
		t.Fatalf("expected accepted invitation with timestamp, got status=%s", invitation.Status)
	}

	// pending 邀请翻转为已接受
	pending, err := svc.InviteCustomer(agent.ID, "pending@example.com")
	if err != nil {
		t.Fatalf("invite customer failed: %v", err)
	}
	accepted, err := svc.AcceptInvitation(agent.AgentCode, "pending@example.com")
	if err != nil {
		t.Fatalf("accept pending invitation failed: %v", err)
	}
	if accepted.ID != pending.ID || accepted.Status != constants.InvitationStatusAccepted {
		t.Fatalf("expected pending invitation flipped, got id=%d status=%s", accepted.ID, accepted.Status)
	}

	if _, err := svc.AcceptInvitation("NOSUCH99", "x@example.com"); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newAgentTestService(db)

	agent := seedAgent(t, db, &models.AgentProfile{RealName: "状态", AgentCode: "STATUS22", Level: 1})
	updated, err := svc.UpdateStatus(agent.ID, constants.AgentStatusSuspended)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if updated.Status != constants.AgentStatusSuspended {
		t.Fatalf("expected suspended, got %s", updated.Status)
	}
	if _, err := svc.UpdateStatus(agent.ID, "banana"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for unknown status, got %v", err)
	}
}
