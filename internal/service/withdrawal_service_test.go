package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// stubTransferGateway 测试用打款网关，记录调用并按预设结果返回
type stubTransferGateway struct {
	orderID  string
	err      error
	calls    int
	lastBiz  string
	lastAmnt decimal.Decimal
}

func (g *stubTransferGateway) Transfer(_ context.Context, outBizNo, _, _ string, amount decimal.Decimal) (string, error) {
	g.calls++
	g.lastBiz = outBizNo
	g.lastAmnt = amount
	if g.err != nil {
		return "", g.err
	}
	return g.orderID, nil
}

func newWithdrawalTestService(db *gorm.DB, gateway WithdrawalGateway) *WithdrawalService {
	return NewWithdrawalService(
		repository.NewWithdrawalRepository(db),
		repository.NewAgentRepository(db),
		NewConfigService(repository.NewConfigRepository(db)),
		gateway,
		nil,
	)
}

func seedConfig(t *testing.T, db *gorm.DB, key, rawJSON string) {
	t.Helper()
	if _, err := repository.NewConfigRepository(db).Upsert(key, models.JSONDocument(rawJSON), nil); err != nil {
		t.Fatalf("seed config %s failed: %v", key, err)
	}
}

func seedBalanceAgent(t *testing.T, db *gorm.DB, code, balance string) *models.AgentProfile {
	t.Helper()
	return seedAgent(t, db, &models.AgentProfile{
		RealName:         "提现代理",
		AgentCode:        code,
		Level:            1,
		AvailableBalance: models.NewMoneyFromDecimal(mustDecimal(t, balance)),
		AlipayAccount:    "payee@example.com",
	})
}

func TestApplyBoundsAndBalance(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newWithdrawalTestService(db, &stubTransferGateway{})
	agent := seedBalanceAgent(t, db, "WDAGENT1", "200000")

	// 回退下限 100.00
	if _, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "50")}); !errors.Is(err, ErrWithdrawalBelowMinimum) {
		t.Fatalf("expected ErrWithdrawalBelowMinimum, got %v", err)
	}
	// 回退上限 50000.00
	if _, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "60000")}); !errors.Is(err, ErrWithdrawalAboveMaximum) {
		t.Fatalf("expected ErrWithdrawalAboveMaximum, got %v", err)
	}
	if _, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "-10")}); !errors.Is(err, ErrWithdrawalAmountInvalid) {
		t.Fatalf("expected ErrWithdrawalAmountInvalid, got %v", err)
	}

	poor := seedBalanceAgent(t, db, "WDAGENT2", "80")
	if _, err := svc.Apply(WithdrawalApplyInput{AgentID: poor.ID, Amount: mustDecimal(t, "150")}); !errors.Is(err, ErrBalanceInsufficient) {
		t.Fatalf("expected ErrBalanceInsufficient, got %v", err)
	}
}

func TestApplySuspendedAgentRejected(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newWithdrawalTestService(db, &stubTransferGateway{})
	agent := seedAgent(t, db, &models.AgentProfile{
		RealName:         "停用",
		AgentCode:        "WDSTOP22",
		Level:            1,
		Status:           constants.AgentStatusSuspended,
		AvailableBalance: models.NewMoneyFromDecimal(mustDecimal(t, "1000")),
	})
	if _, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "200")}); !errors.Is(err, ErrAgentSuspended) {
		t.Fatalf("expected ErrAgentSuspended, got %v", err)
	}
}

func TestApplyRequiresPayoutAccount(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newWithdrawalTestService(db, &stubTransferGateway{})
	agent := seedAgent(t, db, &models.AgentProfile{
		RealName:         "无账号",
		AgentCode:        "WDNOACC2",
		Level:            1,
		AvailableBalance: models.NewMoneyFromDecimal(mustDecimal(t, "1000")),
	})
	if _, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "200")}); !errors.Is(err, ErrWithdrawalAccountMissing) {
		t.Fatalf("expected ErrWithdrawalAccountMissing, got %v", err)
	}
}

func TestApplyFeeAndAtomicDebit(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newWithdrawalTestService(db, &stubTransferGateway{})
	seedConfig(t, db, constants.ConfigKeyWithdrawalFeeRate, `2`)
	agent := seedBalanceAgent(t, db, "WDFEE222", "5000")

	result, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "1000")})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !result.FeeAmount.Decimal.Equal(mustDecimal(t, "20")) {
		t.Fatalf("expected fee 20, got %s", result.FeeAmount)
	}
	if !result.ActualAmount.Decimal.Equal(mustDecimal(t, "980")) {
		t.Fatalf("expected actual 980, got %s", result.ActualAmount)
	}
	// 扣减的是申请全额而非到账额
	if !result.NewAvailableBalance.Decimal.Equal(mustDecimal(t, "4000")) {
		t.Fatalf("expected balance 4000 after freeze, got %s", result.NewAvailableBalance)
	}

	request, err := repository.NewWithdrawalRepository(db).GetByID(result.WithdrawalID)
	if err != nil || request == nil {
		t.Fatalf("load withdrawal failed: %v", err)
	}
	if request.Status != constants.WithdrawalStatusPending {
		t.Fatalf("expected pending request, got %s", request.Status)
	}
}

func TestApplySinglePendingPerAgent(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newWithdrawalTestService(db, &stubTransferGateway{})
	agent := seedBalanceAgent(t, db, "WDONCE22", "5000")

	if _, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "500")}); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	if _, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "300")}); !errors.Is(err, ErrWithdrawalPendingExists) {
		t.Fatalf("expected ErrWithdrawalPendingExists, got %v", err)
	}
}

func TestProcessApproveMarksPaid(t *testing.T) {
	db := newServiceTestDB(t)
	gateway := &stubTransferGateway{orderID: "20260828000123"}
	svc := newWithdrawalTestService(db, gateway)
	agent := seedBalanceAgent(t, db, "WDPAY222", "5000")

	applied, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "800")})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	result, err := svc.Process(context.Background(), WithdrawalProcessInput{
		WithdrawalIDs: []uint{applied.WithdrawalID},
		Action:        constants.WithdrawalActionApprove,
		AdminID:       3,
		Notes:         "已核对",
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.TotalCount != 1 || result.SuccessCount != 1 || result.FailCount != 0 {
		t.Fatalf("unexpected counters: %+v", result)
	}
	item := result.Results[0]
	if !item.Success || item.Status != constants.WithdrawalStatusPaid {
		t.Fatalf("expected paid item, got %+v", item)
	}
	if !strings.HasPrefix(item.TransferRef, fmt.Sprintf("WD%d", applied.WithdrawalID)) {
		t.Fatalf("unexpected transfer ref %q", item.TransferRef)
	}
	if gateway.calls != 1 || !gateway.lastAmnt.Equal(mustDecimal(t, "800")) {
		t.Fatalf("expected one transfer of 800, got calls=%d amount=%s", gateway.calls, gateway.lastAmnt)
	}

	request, err := repository.NewWithdrawalRepository(db).GetByID(applied.WithdrawalID)
	if err != nil || request == nil {
		t.Fatalf("load withdrawal failed: %v", err)
	}
	if request.Status != constants.WithdrawalStatusPaid || request.AlipayOrderID != "20260828000123" {
		t.Fatalf("expected paid with alipay order id, got status=%s order=%s", request.Status, request.AlipayOrderID)
	}
	if request.ProcessedBy == nil || *request.ProcessedBy != 3 {
		t.Fatalf("expected processor 3, got %v", request.ProcessedBy)
	}
}

func TestProcessApproveGatewayFailureKeepsPending(t *testing.T) {
	db := newServiceTestDB(t)
	gateway := &stubTransferGateway{err: errors.New("ACQ.PAYEE_NOT_EXIST")}
	svc := newWithdrawalTestService(db, gateway)
	agent := seedBalanceAgent(t, db, "WDFAIL22", "5000")

	applied, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "600")})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	result, err := svc.Process(context.Background(), WithdrawalProcessInput{
		WithdrawalIDs: []uint{applied.WithdrawalID},
		Action:        constants.WithdrawalActionApprove,
		AdminID:       3,
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.SuccessCount != 0 || result.FailCount != 1 {
		t.Fatalf("unexpected counters: %+v", result)
	}

	request, err := repository.NewWithdrawalRepository(db).GetByID(applied.WithdrawalID)
	if err != nil || request == nil {
		t.Fatalf("load withdrawal failed: %v", err)
	}
	// 打款失败保持 pending，可再次处理
	if request.Status != constants.WithdrawalStatusPending {
		t.Fatalf("expected pending after gateway failure, got %s", request.Status)
	}
}

func TestProcessRejectRestoresBalance(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newWithdrawalTestService(db, &stubTransferGateway{})
	agentRepo := repository.NewAgentRepository(db)
	agent := seedBalanceAgent(t, db, "WDBACK22", "5000")

	applied, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "700")})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	result, err := svc.Process(context.Background(), WithdrawalProcessInput{
		WithdrawalIDs: []uint{applied.WithdrawalID},
		Action:        constants.WithdrawalActionReject,
		AdminID:       3,
		Notes:         "账号有误",
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.SuccessCount != 1 || result.Results[0].Status != constants.WithdrawalStatusRejected {
		t.Fatalf("unexpected result: %+v", result)
	}

	refreshed, err := agentRepo.GetByID(agent.ID)
	if err != nil {
		t.Fatalf("reload agent failed: %v", err)
	}
	if !refreshed.AvailableBalance.Decimal.Equal(mustDecimal(t, "5000")) {
		t.Fatalf("expected balance restored to 5000, got %s", refreshed.AvailableBalance)
	}

	request, err := repository.NewWithdrawalRepository(db).GetByID(applied.WithdrawalID)
	if err != nil || request == nil {
		t.Fatalf("load withdrawal failed: %v", err)
	}
	if request.Status != constants.WithdrawalStatusRejected || request.AdminNotes != "账号有误" {
		t.Fatalf("unexpected request state: status=%s notes=%s", request.Status, request.AdminNotes)
	}
}

func TestProcessBatchIndependentItems(t *testing.T) {
	db := newServiceTestDB(t)
	gateway := &stubTransferGateway{orderID: "20260828000456"}
	svc := newWithdrawalTestService(db, gateway)
	agent := seedBalanceAgent(t, db, "WDMIX222", "5000")

	applied, err := svc.Apply(WithdrawalApplyInput{AgentID: agent.ID, Amount: mustDecimal(t, "400")})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	// 不存在的申请不拖垮同批其余申请
	result, err := svc.Process(context.Background(), WithdrawalProcessInput{
		WithdrawalIDs: []uint{applied.WithdrawalID, 99999},
		Action:        constants.WithdrawalActionApprove,
		AdminID:       3,
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.TotalCount != 2 || result.SuccessCount != 1 || result.FailCount != 1 {
		t.Fatalf("unexpected counters: %+v", result)
	}
}

func TestProcessValidatesInput(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newWithdrawalTestService(db, &stubTransferGateway{})

	if _, err := svc.Process(context.Background(), WithdrawalProcessInput{Action: constants.WithdrawalActionApprove}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for empty ids, got %v", err)
	}
	if _, err := svc.Process(context.Background(), WithdrawalProcessInput{WithdrawalIDs: []uint{1}, Action: "hold"}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for unknown action, got %v", err)
	}
}
