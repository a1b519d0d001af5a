package service

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/payment/alipay"
	"github.com/leadscout/leadscout-api/internal/repository"

	"gorm.io/gorm"
)

type orderTestEnv struct {
	db             *gorm.DB
	svc            *OrderService
	orderRepo      repository.OrderRepository
	licenseRepo    repository.LicenseRepository
	commissionRepo repository.CommissionRepository
	invitationRepo repository.InvitationRepository
	alipayConfig   *alipay.Config
	privateKey     *rsa.PrivateKey
}

func newOrderTestEnv(t *testing.T, gatewayURL string) *orderTestEnv {
	t.Helper()
	db := newServiceTestDB(t)

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key failed: %v", err)
	}
	privateKeyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		t.Fatalf("marshal private key failed: %v", err)
	}
	publicKeyDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key failed: %v", err)
	}
	cfg := &alipay.Config{
		AppID:           "2026000000000000",
		PrivateKey:      string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateKeyDER})),
		AlipayPublicKey: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicKeyDER})),
		GatewayURL:      gatewayURL,
		NotifyURL:       "https://example.com/api/v1/payments/alipay/notify",
		SignType:        "RSA2",
	}

	orderRepo := repository.NewOrderRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	licenseRepo := repository.NewLicenseRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	agentSvc := newAgentTestService(db)
	licenseSvc := NewLicenseService(licenseRepo, nil)
	commissionSvc := NewCommissionService(
		commissionRepo,
		agentRepo,
		invitationRepo,
		agentSvc,
		NewConfigService(repository.NewConfigRepository(db)),
	)
	svc := NewOrderService(orderRepo, agentRepo, licenseSvc, commissionSvc, agentSvc, nil, cfg, nil, 30)

	return &orderTestEnv{
		db:             db,
		svc:            svc,
		orderRepo:      orderRepo,
		licenseRepo:    licenseRepo,
		commissionRepo: commissionRepo,
		invitationRepo: invitationRepo,
		alipayConfig:   cfg,
		privateKey:     privateKey,
	}
}

// newPrecreateStub 返回固定二维码的支付宝预下单桩服务
func newPrecreateStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse precreate form failed: %v", err)
		}
		var biz struct {
			OutTradeNo string `json:"out_trade_no"`
		}
		_ = json.Unmarshal([]byte(r.Form.Get("biz_content")), &biz)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"alipay_trade_precreate_response": map[string]interface{}{
				"code":         "10000",
				"msg":          "Success",
				"out_trade_no": biz.OutTradeNo,
				"qr_code":      "https://qr.alipay.com/bax00000test",
			},
			"sign": "stub-sign",
		})
	}))
}

// signNotifyForm 按支付宝回调规则对表单签名：剔除 sign/sign_type 后
// 字典序拼接 k=v，RSA2 签名
func signNotifyForm(t *testing.T, key *rsa.PrivateKey, form url.Values) {
	t.Helper()
	keys := make([]string, 0, len(form))
	for k := range form {
		if k == "sign" || k == "sign_type" || form.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+form.Get(k))
	}
	digest := sha256.Sum256([]byte(strings.Join(parts, "&")))
	signBytes, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign notify form failed: %v", err)
	}
	form.Set("sign_type", "RSA2")
	form.Set("sign", base64.StdEncoding.EncodeToString(signBytes))
}

func seedPendingOrder(t *testing.T, env *orderTestEnv, outTradeNo, email, planID, agentCode string) *models.Order {
	t.Helper()
	plan, ok := NewPlanCatalog(nil).Get(planID)
	if !ok {
		t.Fatalf("unknown plan %s", planID)
	}
	expiresAt := time.Now().Add(30 * time.Minute)
	order := &models.Order{
		OutTradeNo:    outTradeNo,
		CustomerEmail: email,
		PlanID:        planID,
		Amount:        models.NewMoneyFromDecimal(plan.Price.Round(2)),
		AgentCode:     agentCode,
		Status:        constants.OrderStatusPendingPayment,
		ExpiresAt:     &expiresAt,
	}
	if err := env.db.Create(order).Error; err != nil {
		t.Fatalf("seed order failed: %v", err)
	}
	return order
}

func paidNotifyForm(order *models.Order) url.Values {
	return url.Values{
		"notify_id":    {"notify-" + order.OutTradeNo},
		"notify_type":  {"trade_status_sync"},
		"out_trade_no": {order.OutTradeNo},
		"trade_no":     {"2026082822001400000001"},
		"trade_status": {constants.AlipayTradeStatusSuccess},
		"total_amount": {order.Amount.Decimal.StringFixed(2)},
		"app_id":       {"2026000000000000"},
	}
}

func TestCreateOrderInvalidPlan(t *testing.T) {
	env := newOrderTestEnv(t, "https://openapi.alipay.com/gateway.do")
	if _, err := env.svc.CreateOrder(context.Background(), OrderCreateInput{PlanID: "gold", CustomerEmail: "x@example.com"}); !errors.Is(err, ErrPlanInvalid) {
		t.Fatalf("expected ErrPlanInvalid, got %v", err)
	}
	if _, err := env.svc.CreateOrder(context.Background(), OrderCreateInput{PlanID: "lifetime"}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for empty email, got %v", err)
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	stub := newPrecreateStub(t)
	defer stub.Close()
	env := newOrderTestEnv(t, stub.URL)

	agent := seedAgent(t, env.db, &models.AgentProfile{RealName: "推荐人", AgentCode: "ORDERAG1", Level: 1})
	result, err := env.svc.CreateOrder(context.Background(), OrderCreateInput{
		PlanID:        "pro_yearly",
		CustomerEmail: "Buyer@Example.com",
		AgentCode:     strings.ToLower(agent.AgentCode),
		ClientIP:      "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !strings.HasPrefix(result.OutTradeNo, "LS") {
		t.Fatalf("unexpected out_trade_no %q", result.OutTradeNo)
	}
	if result.QRCode == "" {
		t.Fatalf("expected qr code from precreate")
	}
	if !result.Amount.Decimal.Equal(mustDecimal(t, "648")) {
		t.Fatalf("expected amount 648, got %s", result.Amount)
	}

	order, err := env.orderRepo.GetByID(result.OrderID)
	if err != nil || order == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if order.CustomerEmail != "buyer@example.com" {
		t.Fatalf("expected normalized email, got %s", order.CustomerEmail)
	}
	if order.AgentCode != agent.AgentCode {
		t.Fatalf("expected uppercased agent code %s, got %s", agent.AgentCode, order.AgentCode)
	}
	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
}

func TestCreateOrderDropsUnknownAgentCode(t *testing.T) {
	stub := newPrecreateStub(t)
	defer stub.Close()
	env := newOrderTestEnv(t, stub.URL)

	result, err := env.svc.CreateOrder(context.Background(), OrderCreateInput{
		PlanID:        "pro_monthly",
		CustomerEmail: "walkin@example.com",
		AgentCode:     "NOSUCH42",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	order, err := env.orderRepo.GetByID(result.OrderID)
	if err != nil || order == nil {
		t.Fatalf("load order failed: %v", err)
	}
	// 无效推荐码不阻断下单，仅丢弃归因
	if order.AgentCode != "" {
		t.Fatalf("expected dropped agent code, got %q", order.AgentCode)
	}
}

func TestCreateOrderDropsSuspendedAgentCode(t *testing.T) {
	stub := newPrecreateStub(t)
	defer stub.Close()
	env := newOrderTestEnv(t, stub.URL)

	agent := seedAgent(t, env.db, &models.AgentProfile{
		RealName:  "停用推荐人",
		AgentCode: "ORDERAG2",
		Level:     1,
		Status:    constants.AgentStatusSuspended,
	})
	result, err := env.svc.CreateOrder(context.Background(), OrderCreateInput{
		PlanID:        "pro_monthly",
		CustomerEmail: "walkin2@example.com",
		AgentCode:     agent.AgentCode,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	order, err := env.orderRepo.GetByID(result.OrderID)
	if err != nil || order == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if order.AgentCode != "" {
		t.Fatalf("expected dropped agent code, got %q", order.AgentCode)
	}
}

func TestHandleAlipayNotifySettlesOrder(t *testing.T) {
	env := newOrderTestEnv(t, "https://openapi.alipay.com/gateway.do")

	agent := seedAgent(t, env.db, &models.AgentProfile{RealName: "推荐人", AgentCode: "NOTIFYAG", Level: 1})
	order := seedPendingOrder(t, env, "LS20260828120000000001", "buyer@example.com", "pro_yearly", agent.AgentCode)

	form := paidNotifyForm(order)
	signNotifyForm(t, env.privateKey, form)
	if err := env.svc.HandleAlipayNotify(context.Background(), form); err != nil {
		t.Fatalf("handle notify failed: %v", err)
	}

	paid, err := env.orderRepo.GetByID(order.ID)
	if err != nil || paid == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid order, got status=%s", paid.Status)
	}
	if paid.AlipayTradeNo == "" {
		t.Fatalf("expected alipay trade no recorded")
	}

	license, err := env.licenseRepo.GetByOrderID(order.ID)
	if err != nil || license == nil {
		t.Fatalf("expected license issued, err=%v", err)
	}
	if license.CustomerEmail != "buyer@example.com" || license.PlanID != "pro_yearly" {
		t.Fatalf("unexpected license: %+v", license)
	}

	invitation, err := env.invitationRepo.GetAcceptedByEmail("buyer@example.com")
	if err != nil || invitation == nil {
		t.Fatalf("expected accepted invitation, err=%v", err)
	}
	if invitation.AgentID != agent.ID {
		t.Fatalf("expected invitation bound to agent %d, got %d", agent.ID, invitation.AgentID)
	}

	records, err := env.commissionRepo.ListByOrder(order.ID)
	if err != nil {
		t.Fatalf("list commissions failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 commission record, got %d", len(records))
	}
	// 648 按层级表 10% 计提
	if !records[0].Amount.Decimal.Equal(mustDecimal(t, "64.80")) {
		t.Fatalf("expected commission 64.80, got %s", records[0].Amount)
	}
}

func TestHandleAlipayNotifyIdempotent(t *testing.T) {
	env := newOrderTestEnv(t, "https://openapi.alipay.com/gateway.do")

	agent := seedAgent(t, env.db, &models.AgentProfile{RealName: "推荐人", AgentCode: "NOTIFYA2", Level: 1})
	order := seedPendingOrder(t, env, "LS20260828120000000002", "repeat@example.com", "pro_monthly", agent.AgentCode)

	form := paidNotifyForm(order)
	signNotifyForm(t, env.privateKey, form)
	if err := env.svc.HandleAlipayNotify(context.Background(), form); err != nil {
		t.Fatalf("first notify failed: %v", err)
	}
	if err := env.svc.HandleAlipayNotify(context.Background(), form); err != nil {
		t.Fatalf("repeat notify failed: %v", err)
	}

	var licenseCount int64
	if err := env.db.Model(&models.License{}).Where("order_id = ?", order.ID).Count(&licenseCount).Error; err != nil {
		t.Fatalf("count licenses failed: %v", err)
	}
	if licenseCount != 1 {
		t.Fatalf("expected single license after repeat notify, got %d", licenseCount)
	}
	records, err := env.commissionRepo.ListByOrder(order.ID)
	if err != nil {
		t.Fatalf("list commissions failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected single commission record, got %d", len(records))
	}
}

func TestHandleAlipayNotifyInvalidSignature(t *testing.T) {
	env := newOrderTestEnv(t, "https://openapi.alipay.com/gateway.do")
	order := seedPendingOrder(t, env, "LS20260828120000000003", "bad@example.com", "pro_monthly", "")

	form := paidNotifyForm(order)
	form.Set("sign_type", "RSA2")
	form.Set("sign", "Zm9yZ2VkLXNpZ24=")
	if err := env.svc.HandleAlipayNotify(context.Background(), form); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}

	pending, err := env.orderRepo.GetByID(order.ID)
	if err != nil || pending == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if pending.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected order untouched, got %s", pending.Status)
	}
}

func TestHandleAlipayNotifyAmountMismatch(t *testing.T) {
	env := newOrderTestEnv(t, "https://openapi.alipay.com/gateway.do")
	order := seedPendingOrder(t, env, "LS20260828120000000004", "cheap@example.com", "pro_yearly", "")

	form := paidNotifyForm(order)
	form.Set("total_amount", "1.00")
	signNotifyForm(t, env.privateKey, form)
	if err := env.svc.HandleAlipayNotify(context.Background(), form); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid on amount mismatch, got %v", err)
	}

	pending, err := env.orderRepo.GetByID(order.ID)
	if err != nil || pending == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if pending.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected order untouched, got %s", pending.Status)
	}
}

func TestHandleAlipayNotifyIgnoresNonFinalStatus(t *testing.T) {
	env := newOrderTestEnv(t, "https://openapi.alipay.com/gateway.do")
	order := seedPendingOrder(t, env, "LS20260828120000000005", "wait@example.com", "pro_monthly", "")

	form := paidNotifyForm(order)
	form.Set("trade_status", constants.AlipayTradeStatusWaitBuyerPay)
	signNotifyForm(t, env.privateKey, form)
	if err := env.svc.HandleAlipayNotify(context.Background(), form); err != nil {
		t.Fatalf("expected non-final notify acknowledged, got %v", err)
	}

	pending, err := env.orderRepo.GetByID(order.ID)
	if err != nil || pending == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if pending.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected order still pending, got %s", pending.Status)
	}
}

func TestExpireOrderOnlyPending(t *testing.T) {
	env := newOrderTestEnv(t, "https://openapi.alipay.com/gateway.do")

	pending := seedPendingOrder(t, env, "LS20260828120000000006", "late@example.com", "pro_monthly", "")
	if err := env.svc.ExpireOrder(pending.ID); err != nil {
		t.Fatalf("expire order failed: %v", err)
	}
	expired, err := env.orderRepo.GetByID(pending.ID)
	if err != nil || expired == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if expired.Status != constants.OrderStatusExpired {
		t.Fatalf("expected expired, got %s", expired.Status)
	}

	paid := seedPendingOrder(t, env, "LS20260828120000000007", "ontime@example.com", "pro_monthly", "")
	now := time.Now()
	paid.Status = constants.OrderStatusPaid
	paid.PaidAt = &now
	if err := env.db.Save(paid).Error; err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if err := env.svc.ExpireOrder(paid.ID); err != nil {
		t.Fatalf("expire paid order failed: %v", err)
	}
	reloaded, err := env.orderRepo.GetByID(paid.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPaid {
		t.Fatalf("expected paid order untouched, got %s", reloaded.Status)
	}
}
