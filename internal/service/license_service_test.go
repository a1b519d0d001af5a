package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/repository"

	"gorm.io/gorm"
)

func newLicenseTestService(db *gorm.DB) *LicenseService {
	return NewLicenseService(repository.NewLicenseRepository(db), nil)
}

func TestLicenseGenerateKeyFormat(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newLicenseTestService(db)

	license, err := svc.Generate(LicenseGenerateInput{PlanID: "pro_yearly", CustomerEmail: "Buyer@Example.com"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	parts := strings.Split(license.LicenseKey, "-")
	if len(parts) != constants.LicenseKeyGroups+1 || parts[0] != constants.LicenseKeyPrefix {
		t.Fatalf("unexpected key format %q", license.LicenseKey)
	}
	for _, group := range parts[1:] {
		if len(group) != constants.LicenseKeyGroupSize {
			t.Fatalf("unexpected group size in %q", license.LicenseKey)
		}
		for _, ch := range group {
			if !strings.ContainsRune(constants.CodeAlphabet, ch) {
				t.Fatalf("key %q contains char outside alphabet", license.LicenseKey)
			}
		}
	}
	if license.Status != constants.LicenseStatusUnused {
		t.Fatalf("expected unused status, got %s", license.Status)
	}
	if license.CustomerEmail != "buyer@example.com" {
		t.Fatalf("expected normalized email, got %s", license.CustomerEmail)
	}
	// pro_yearly 套餐默认 2 台
	if license.MaxActivations != 2 {
		t.Fatalf("expected 2 max activations, got %d", license.MaxActivations)
	}
}

// collidingLicenseRepo 让每次生成的授权码都视为已存在
type collidingLicenseRepo struct {
	repository.LicenseRepository
}

func (collidingLicenseRepo) ExistsByKey(string) (bool, error) {
	return true, nil
}

func TestLicenseGenerateExhaustsAttempts(t *testing.T) {
	db := newServiceTestDB(t)
	svc := NewLicenseService(collidingLicenseRepo{repository.NewLicenseRepository(db)}, nil)

	if _, err := svc.Generate(LicenseGenerateInput{PlanID: "lifetime", CustomerEmail: "x@example.com"}); !errors.Is(err, ErrLicenseKeyExhausted) {
		t.Fatalf("expected ErrLicenseKeyExhausted, got %v", err)
	}
}

func TestLicenseGenerateInvalidPlan(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newLicenseTestService(db)

	if _, err := svc.Generate(LicenseGenerateInput{PlanID: "platinum", CustomerEmail: "x@example.com"}); !errors.Is(err, ErrPlanInvalid) {
		t.Fatalf("expected ErrPlanInvalid, got %v", err)
	}
	if _, err := svc.Generate(LicenseGenerateInput{PlanID: "lifetime"}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for empty email, got %v", err)
	}
}

func TestLicenseValidateStates(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newLicenseTestService(db)

	if _, err := svc.Validate("LS-XXXX-XXXX-XXXX-XXXX", ""); !errors.Is(err, ErrLicenseNotFound) {
		t.Fatalf("expected ErrLicenseNotFound, got %v", err)
	}

	revoked := &models.License{LicenseKey: "LS-REVK-AAAA-BBBB-CCCC", PlanID: "lifetime", CustomerEmail: "a@example.com", Status: constants.LicenseStatusRevoked, MaxActivations: 1}
	if err := db.Create(revoked).Error; err != nil {
		t.Fatalf("seed revoked license failed: %v", err)
	}
	if _, err := svc.Validate(revoked.LicenseKey, ""); !errors.Is(err, ErrLicenseRevoked) {
		t.Fatalf("expected ErrLicenseRevoked, got %v", err)
	}

	past := time.Now().Add(-24 * time.Hour)
	expired := &models.License{LicenseKey: "LS-EXPD-AAAA-BBBB-CCCC", PlanID: "pro_monthly", CustomerEmail: "b@example.com", Status: constants.LicenseStatusActive, MaxActivations: 1, ExpiresAt: &past}
	if err := db.Create(expired).Error; err != nil {
		t.Fatalf("seed expired license failed: %v", err)
	}
	if _, err := svc.Validate(expired.LicenseKey, ""); !errors.Is(err, ErrLicenseExpired) {
		t.Fatalf("expected ErrLicenseExpired, got %v", err)
	}

	bound := &models.License{LicenseKey: "LS-BIND-AAAA-BBBB-CCCC", PlanID: "lifetime", CustomerEmail: "c@example.com", Status: constants.LicenseStatusActive, MaxActivations: 1, MachineID: "machine-1", ActivationCount: 1}
	if err := db.Create(bound).Error; err != nil {
		t.Fatalf("seed bound license failed: %v", err)
	}
	if _, err := svc.Validate(bound.LicenseKey, "machine-2"); !errors.Is(err, ErrLicenseMachineMismatch) {
		t.Fatalf("expected ErrLicenseMachineMismatch, got %v", err)
	}

	result, err := svc.Validate(bound.LicenseKey, "machine-1")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.Status != constants.LicenseStatusActive || result.MachineID != "machine-1" {
		t.Fatalf("unexpected validate result: %+v", result)
	}
}

func TestLicenseActivateIdempotentSameMachine(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newLicenseTestService(db)

	license, err := svc.Generate(LicenseGenerateInput{PlanID: "lifetime", CustomerEmail: "d@example.com"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	first, err := svc.Activate(license.LicenseKey, "machine-1")
	if err != nil {
		t.Fatalf("first activate failed: %v", err)
	}
	if first.Status != constants.LicenseStatusActive || first.ActivationCount != 1 {
		t.Fatalf("unexpected first activation: %+v", first)
	}
	// lifetime 套餐不设到期
	if first.ExpiresAt != nil {
		t.Fatalf("expected no expiry for lifetime plan, got %v", first.ExpiresAt)
	}

	second, err := svc.Activate(license.LicenseKey, "machine-1")
	if err != nil {
		t.Fatalf("repeat activate failed: %v", err)
	}
	if second.ActivationCount != 1 {
		t.Fatalf("expected idempotent activation count 1, got %d", second.ActivationCount)
	}
}

func TestLicenseActivateMachineChangeAndLimit(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newLicenseTestService(db)

	license, err := svc.Generate(LicenseGenerateInput{PlanID: "pro_yearly", CustomerEmail: "e@example.com"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := svc.Activate(license.LicenseKey, "machine-1"); err != nil {
		t.Fatalf("first activate failed: %v", err)
	}
	moved, err := svc.Activate(license.LicenseKey, "machine-2")
	if err != nil {
		t.Fatalf("second activate failed: %v", err)
	}
	if moved.ActivationCount != 2 || moved.MachineID != "machine-2" {
		t.Fatalf("unexpected second activation: %+v", moved)
	}
	if _, err := svc.Activate(license.LicenseKey, "machine-3"); !errors.Is(err, ErrLicenseActivationLimit) {
		t.Fatalf("expected ErrLicenseActivationLimit, got %v", err)
	}
}

func TestLicenseActivateSetsExpiryFromPlan(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newLicenseTestService(db)

	license, err := svc.Generate(LicenseGenerateInput{PlanID: "pro_monthly", CustomerEmail: "f@example.com"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	result, err := svc.Activate(license.LicenseKey, "machine-1")
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if result.ExpiresAt == nil {
		t.Fatalf("expected expiry for monthly plan")
	}
	expected := time.Now().AddDate(0, 0, 31)
	if diff := result.ExpiresAt.Sub(expected); diff > time.Minute || diff < -time.Minute {
		t.Fatalf("unexpected expiry %v", result.ExpiresAt)
	}
}

func TestLicenseRevokeIdempotent(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newLicenseTestService(db)

	license, err := svc.Generate(LicenseGenerateInput{PlanID: "lifetime", CustomerEmail: "g@example.com"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	revoked, err := svc.Revoke(license.ID)
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if revoked.Status != constants.LicenseStatusRevoked {
		t.Fatalf("expected revoked status, got %s", revoked.Status)
	}
	again, err := svc.Revoke(license.ID)
	if err != nil {
		t.Fatalf("repeat revoke failed: %v", err)
	}
	if again.Status != constants.LicenseStatusRevoked {
		t.Fatalf("expected stable revoked status, got %s", again.Status)
	}
	if _, err := svc.Activate(license.LicenseKey, "machine-1"); !errors.Is(err, ErrLicenseRevoked) {
		t.Fatalf("expected ErrLicenseRevoked on activate, got %v", err)
	}
}
