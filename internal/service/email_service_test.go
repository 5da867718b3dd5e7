package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/i18n"
)

func TestBuildOrderStatusContent(t *testing.T) {
	cases := []struct {
		name       string
		input      OrderStatusEmailInput
		locale     string
		wantInBody string
	}{
		{
			name:       "paid zh",
			input:      OrderStatusEmailInput{OrderNo: "SN20260101001", Status: "confirmed"},
			locale:     "zh-CN",
			wantInBody: "已支付成功",
		},
		{
			name:       "shipped carries tracking number",
			input:      OrderStatusEmailInput{OrderNo: "SN20260101002", Status: "shipped", TrackingNo: "SF123456"},
			locale:     "en",
			wantInBody: "SF123456",
		},
		{
			name:       "delivered en",
			input:      OrderStatusEmailInput{OrderNo: "SN20260101003", Status: "delivered"},
			locale:     "en-US",
			wantInBody: "delivered",
		},
		{
			name:       "cancelled zh",
			input:      OrderStatusEmailInput{OrderNo: "SN20260101004", Status: "cancelled"},
			locale:     "zh-CN",
			wantInBody: "已取消",
		},
		{
			name:       "unknown status falls back to paid body",
			input:      OrderStatusEmailInput{OrderNo: "SN20260101005", Status: "something_else"},
			locale:     "en",
			wantInBody: "has been paid",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subject, body := buildOrderStatusContent(tc.input, tc.locale)
			if !strings.Contains(subject, tc.input.OrderNo) {
				t.Fatalf("subject %q missing order no %s", subject, tc.input.OrderNo)
			}
			if !strings.Contains(body, tc.input.OrderNo) {
				t.Fatalf("body %q missing order no %s", body, tc.input.OrderNo)
			}
			if !strings.Contains(body, tc.wantInBody) {
				t.Fatalf("body %q missing %q", body, tc.wantInBody)
			}
		})
	}
}

func TestNormalizeLocale(t *testing.T) {
	cases := map[string]string{
		"zh-CN":  i18n.LocaleZH,
		"zh-TW":  i18n.LocaleTW,
		"zh-HK":  i18n.LocaleTW,
		"en":     i18n.LocaleEN,
		"en-GB":  i18n.LocaleEN,
		"":       i18n.LocaleZH,
		"fr-FR":  i18n.LocaleZH,
		" EN-us": i18n.LocaleEN,
	}
	for input, want := range cases {
		if got := normalizeLocale(input); got != want {
			t.Fatalf("normalizeLocale(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSendEmailDisabled(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{Enabled: false})
	err := svc.SendOrderStatusEmail("user@example.com", OrderStatusEmailInput{OrderNo: "SN1", Status: "confirmed"}, "zh-CN")
	if !errors.Is(err, ErrEmailServiceDisabled) {
		t.Fatalf("expected ErrEmailServiceDisabled, got %v", err)
	}
}

func TestSendEmailNotConfigured(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{Enabled: true})
	err := svc.SendOrderStatusEmail("user@example.com", OrderStatusEmailInput{OrderNo: "SN1", Status: "confirmed"}, "zh-CN")
	if !errors.Is(err, ErrEmailServiceNotConfigured) {
		t.Fatalf("expected ErrEmailServiceNotConfigured, got %v", err)
	}
}

func TestSendEmailInvalidRecipient(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
	err := svc.SendOrderStatusEmail("not-an-address", OrderStatusEmailInput{OrderNo: "SN1", Status: "confirmed"}, "zh-CN")
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestIsEmailRecipientRejected(t *testing.T) {
	if !isEmailRecipientRejected(errors.New("550 5.1.1 recipient address rejected: user unknown")) {
		t.Fatal("expected recipient rejection to be detected")
	}
	if !isEmailRecipientRejected(errors.New("550 no such mailbox here")) {
		t.Fatal("expected 550 mailbox hint to be detected")
	}
	if isEmailRecipientRejected(errors.New("451 temporary failure, try again")) {
		t.Fatal("transient failure should not be treated as recipient rejection")
	}
	if isEmailRecipientRejected(nil) {
		t.Fatal("nil error should not be treated as rejection")
	}
}
