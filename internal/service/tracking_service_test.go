package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/repository"

	"gorm.io/gorm"
)

func newTrackingTestService(db *gorm.DB, dailyQuota int64) *TrackingService {
	return NewTrackingService(
		repository.NewTrackingRepository(db),
		repository.NewLicenseRepository(db),
		repository.NewUserRepository(db),
		nil,
		"tracking-test-secret",
		dailyQuota,
	)
}

func seedTrackingUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x", Status: constants.UserStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	return user
}

func TestTrackingTokenRoundTrip(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTrackingTestService(db, 100)
	user := seedTrackingUser(t, db, "sender@example.com")

	token, err := svc.BuildToken(user.ID, "Lead@Example.com")
	if err != nil {
		t.Fatalf("build token failed: %v", err)
	}
	if err := svc.RecordOpen(context.Background(), TrackingRecordInput{
		Token:     token,
		UserAgent: "Mozilla/5.0",
		ClientIP:  "198.51.100.9",
	}); err != nil {
		t.Fatalf("record open failed: %v", err)
	}

	var event models.TrackingEvent
	if err := db.First(&event).Error; err != nil {
		t.Fatalf("load event failed: %v", err)
	}
	if event.UserID != user.ID || event.Event != constants.TrackingEventOpen {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.RecipientEmail != "lead@example.com" {
		t.Fatalf("expected normalized recipient, got %s", event.RecipientEmail)
	}

	if err := svc.RecordOpen(context.Background(), TrackingRecordInput{Token: "not-a-token"}); err == nil {
		t.Fatalf("expected error for forged token")
	}
}

func TestTrackingClickValidatesTarget(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTrackingTestService(db, 100)
	user := seedTrackingUser(t, db, "sender@example.com")
	token, err := svc.BuildToken(user.ID, "lead@example.com")
	if err != nil {
		t.Fatalf("build token failed: %v", err)
	}

	if _, err := svc.RecordClick(context.Background(), TrackingRecordInput{Token: token, TargetURL: "javascript:alert(1)"}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for bad scheme, got %v", err)
	}
	if _, err := svc.RecordClick(context.Background(), TrackingRecordInput{Token: token, TargetURL: "/relative"}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for relative target, got %v", err)
	}

	target, err := svc.RecordClick(context.Background(), TrackingRecordInput{Token: token, TargetURL: "https://example.com/pricing"})
	if err != nil {
		t.Fatalf("record click failed: %v", err)
	}
	if target != "https://example.com/pricing" {
		t.Fatalf("unexpected redirect target %q", target)
	}
}

func TestTrackingDailyQuotaExceeded(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTrackingTestService(db, 2)
	user := seedTrackingUser(t, db, "free@example.com")
	token, err := svc.BuildToken(user.ID, "lead@example.com")
	if err != nil {
		t.Fatalf("build token failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.RecordOpen(context.Background(), TrackingRecordInput{Token: token}); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}
	if err := svc.RecordOpen(context.Background(), TrackingRecordInput{Token: token}); !errors.Is(err, ErrTrackingQuotaExceeded) {
		t.Fatalf("expected ErrTrackingQuotaExceeded, got %v", err)
	}
}

func TestTrackingPaidLicenseBypassesQuota(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTrackingTestService(db, 1)
	user := seedTrackingUser(t, db, "paid@example.com")
	if err := db.Create(&models.License{
		LicenseKey:     "LS-PAID-AAAA-BBBB-CCCC",
		PlanID:         "lifetime",
		CustomerEmail:  user.Email,
		Status:         constants.LicenseStatusActive,
		MaxActivations: 1,
	}).Error; err != nil {
		t.Fatalf("seed license failed: %v", err)
	}
	token, err := svc.BuildToken(user.ID, "lead@example.com")
	if err != nil {
		t.Fatalf("build token failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.RecordOpen(context.Background(), TrackingRecordInput{Token: token}); err != nil {
			t.Fatalf("record %d failed for paid user: %v", i, err)
		}
	}
}

func TestTrackingAggregateRecipientStats(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTrackingTestService(db, 100)
	user := seedTrackingUser(t, db, "sender@example.com")

	now := time.Now()
	events := []models.TrackingEvent{
		{UserID: user.ID, Token: "t1", Event: constants.TrackingEventOpen, RecipientEmail: "a@example.com", OccurredAt: now.Add(-2 * time.Hour)},
		{UserID: user.ID, Token: "t1", Event: constants.TrackingEventOpen, RecipientEmail: "a@example.com", OccurredAt: now.Add(-time.Hour)},
		{UserID: user.ID, Token: "t1", Event: constants.TrackingEventClick, RecipientEmail: "a@example.com", TargetURL: "https://example.com", OccurredAt: now},
		{UserID: user.ID, Token: "t2", Event: constants.TrackingEventOpen, RecipientEmail: "b@example.com", OccurredAt: now},
	}
	for i := range events {
		if err := db.Create(&events[i]).Error; err != nil {
			t.Fatalf("seed event failed: %v", err)
		}
	}

	if err := svc.Aggregate(user.ID); err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	stats, total, err := svc.ListStats(user.ID, 1, 10)
	if err != nil {
		t.Fatalf("list stats failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected stats for 2 recipients, got %d", total)
	}
	byEmail := make(map[string]models.TrackingRecipientStat, len(stats))
	for _, stat := range stats {
		byEmail[stat.RecipientEmail] = stat
	}
	a := byEmail["a@example.com"]
	if a.OpenCount != 2 || a.ClickCount != 1 {
		t.Fatalf("unexpected stats for a@: %+v", a)
	}
	if a.FirstOpenAt == nil || a.LastEventAt == nil {
		t.Fatalf("expected open/event timestamps for a@")
	}
	if b := byEmail["b@example.com"]; b.OpenCount != 1 || b.ClickCount != 0 {
		t.Fatalf("unexpected stats for b@: %+v", b)
	}

	// 重跑聚合结果保持稳定
	if err := svc.Aggregate(user.ID); err != nil {
		t.Fatalf("repeat aggregate failed: %v", err)
	}
	stats, _, err = svc.ListStats(user.ID, 1, 10)
	if err != nil {
		t.Fatalf("list stats failed: %v", err)
	}
	for _, stat := range stats {
		if stat.RecipientEmail == "a@example.com" && stat.OpenCount != 2 {
			t.Fatalf("expected stable open count after rerun, got %d", stat.OpenCount)
		}
	}
}
