package service

import (
	"errors"
	"testing"

	"github.com/leadscout/leadscout-api/internal/config"
	"github.com/leadscout/leadscout-api/internal/constants"
)

func TestSendEmailDisabledOrUnconfigured(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{Enabled: false})
	if err := svc.SendVerifyCode("someone@example.com", "123456", constants.VerifyPurposeRegister); !errors.Is(err, ErrEmailServiceDisabled) {
		t.Fatalf("expected ErrEmailServiceDisabled, got %v", err)
	}

	svc = NewEmailService(&config.EmailConfig{Enabled: true})
	if err := svc.SendVerifyCode("someone@example.com", "123456", constants.VerifyPurposeRegister); !errors.Is(err, ErrEmailServiceNotConfigured) {
		t.Fatalf("expected ErrEmailServiceNotConfigured, got %v", err)
	}
}

func TestSendEmailInvalidRecipient(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    465,
		From:    "noreply@example.com",
	})
	if err := svc.SendCustomEmail("not-an-email", "subject", "body"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestBuildVerifyCodeContent(t *testing.T) {
	tests := []struct {
		purpose     string
		wantSubject string
	}{
		{constants.VerifyPurposeRegister, "注册验证码"},
		{constants.VerifyPurposeReset, "重置密码验证码"},
		{constants.VerifyPurposeChangeEmailNew, "更换邮箱验证码"},
		{"unknown", "邮箱验证码"},
	}
	for _, tt := range tests {
		subject, body := buildVerifyCodeContent("888888", tt.purpose)
		if subject != tt.wantSubject {
			t.Fatalf("purpose %q: subject = %q, want %q", tt.purpose, subject, tt.wantSubject)
		}
		if body == "" {
			t.Fatalf("purpose %q: empty body", tt.purpose)
		}
	}
}

func TestIsEmailRecipientRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "smtp_550_no_such_recipient",
			err:  errors.New("550 No such recipient here"),
			want: true,
		},
		{
			name: "smtp_user_unknown",
			err:  errors.New("SMTP 5.1.1 user unknown"),
			want: true,
		},
		{
			name: "smtp_550_mailbox_unavailable",
			err:  errors.New("550 mailbox unavailable"),
			want: true,
		},
		{
			name: "network_timeout",
			err:  errors.New("dial tcp timeout"),
			want: false,
		},
		{
			name: "nil_error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEmailRecipientRejected(tt.err); got != tt.want {
				t.Fatalf("isEmailRecipientRejected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeEmailSendError(t *testing.T) {
	rejected := errors.New("550 No such recipient here")
	if got := normalizeEmailSendError(rejected); !errors.Is(got, ErrEmailRecipientRejected) {
		t.Fatalf("normalizeEmailSendError() expected ErrEmailRecipientRejected, got %v", got)
	}

	networkErr := errors.New("dial tcp timeout")
	if got := normalizeEmailSendError(networkErr); !errors.Is(got, networkErr) {
		t.Fatalf("normalizeEmailSendError() should keep original error, got %v", got)
	}

	if got := normalizeEmailSendError(nil); got != nil {
		t.Fatalf("normalizeEmailSendError(nil) should be nil, got %v", got)
	}
}
