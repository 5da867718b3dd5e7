package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test_abc",
		APIBaseURL:    baseURL,
	})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client
}

func intentEventBody(t *testing.T, eventType, status string, amount int64) []byte {
	t.Helper()
	payload := map[string]interface{}{
		"id":   "evt_test_1",
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":   "payment_intent",
				"id":       "pi_test_123",
				"status":   status,
				"currency": "usd",
				"amount":   amount,
				"created":  int64(1760000000),
				"metadata": map[string]interface{}{
					"order_id": "42",
					"order_no": "SV20260101120000123456",
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return body
}

func TestNewClientDefaults(t *testing.T) {
	client := newTestClient(t, "")
	if client.cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected default api base url: %s", client.cfg.APIBaseURL)
	}
	if client.cfg.WebhookToleranceSeconds != defaultWebhookToleranceS {
		t.Fatalf("unexpected default tolerance: %d", client.cfg.WebhookToleranceSeconds)
	}

	if _, err := NewClient(Config{}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for empty secret, got %v", err)
	}
}

func TestVerifyAndParseWebhookSucceeded(t *testing.T) {
	now := time.Unix(1760000000, 0)
	client := newTestClient(t, "")
	body := intentEventBody(t, "payment_intent.succeeded", "succeeded", 2430)
	sig := ComputeSignature("whsec_test_abc", now.Unix(), body)
	headers := map[string]string{
		"Stripe-Signature": fmt.Sprintf("t=%d,v1=%s", now.Unix(), sig),
	}

	event, err := client.VerifyAndParseWebhook(headers, body, now)
	if err != nil {
		t.Fatalf("verify webhook failed: %v", err)
	}
	if event.EventID != "evt_test_1" {
		t.Fatalf("unexpected event id: %s", event.EventID)
	}
	if event.PaymentIntentID != "pi_test_123" {
		t.Fatalf("unexpected intent id: %s", event.PaymentIntentID)
	}
	if event.Status != IntentStatusSucceeded {
		t.Fatalf("unexpected status: %s", event.Status)
	}
	if event.OrderID != 42 {
		t.Fatalf("unexpected order id: %d", event.OrderID)
	}
	if event.Amount != "24.30" {
		t.Fatalf("unexpected amount: %s", event.Amount)
	}
}

func TestVerifyAndParseWebhookInvalidSignature(t *testing.T) {
	now := time.Unix(1760000000, 0)
	client := newTestClient(t, "")
	body := intentEventBody(t, "payment_intent.succeeded", "succeeded", 2430)
	headers := map[string]string{
		"Stripe-Signature": fmt.Sprintf("t=%d,v1=deadbeef", now.Unix()),
	}

	if _, err := client.VerifyAndParseWebhook(headers, body, now); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyAndParseWebhookStaleTimestamp(t *testing.T) {
	signedAt := time.Unix(1760000000, 0)
	client := newTestClient(t, "")
	body := intentEventBody(t, "payment_intent.succeeded", "succeeded", 2430)
	sig := ComputeSignature("whsec_test_abc", signedAt.Unix(), body)
	headers := map[string]string{
		"Stripe-Signature": fmt.Sprintf("t=%d,v1=%s", signedAt.Unix(), sig),
	}

	// 超出容忍窗口十分钟
	now := signedAt.Add(10 * time.Minute)
	if _, err := client.VerifyAndParseWebhook(headers, body, now); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for stale timestamp, got %v", err)
	}
}

func TestVerifyAndParseWebhookTamperedBody(t *testing.T) {
	now := time.Unix(1760000000, 0)
	client := newTestClient(t, "")
	body := intentEventBody(t, "payment_intent.succeeded", "succeeded", 2430)
	sig := ComputeSignature("whsec_test_abc", now.Unix(), body)
	headers := map[string]string{
		"Stripe-Signature": fmt.Sprintf("t=%d,v1=%s", now.Unix(), sig),
	}

	tampered := intentEventBody(t, "payment_intent.succeeded", "succeeded", 9999)
	if _, err := client.VerifyAndParseWebhook(headers, tampered, now); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for tampered body, got %v", err)
	}
}

func TestCreateIntent(t *testing.T) {
	var gotPath, gotAuth, gotAmount, gotOrderNo string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form failed: %v", err)
		}
		gotAmount = r.PostFormValue("amount")
		gotOrderNo = r.PostFormValue("metadata[order_no]")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_test_123","client_secret":"pi_test_123_secret","status":"requires_payment_method","currency":"usd","amount":2430}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	intent, err := client.CreateIntent(nil, CreateIntentInput{
		OrderID:  42,
		OrderNo:  "SV20260101120000123456",
		Amount:   "24.30",
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	if gotPath != "/v1/payment_intents" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer sk_test_123" {
		t.Fatalf("unexpected authorization: %s", gotAuth)
	}
	if gotAmount != "2430" {
		t.Fatalf("expected minor amount 2430, got %s", gotAmount)
	}
	if gotOrderNo != "SV20260101120000123456" {
		t.Fatalf("unexpected order_no metadata: %s", gotOrderNo)
	}
	if intent.ID != "pi_test_123" || intent.ClientSecret != "pi_test_123_secret" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
	if intent.Terminal() {
		t.Fatalf("requires_payment_method must not be terminal")
	}
	if intent.Amount != "24.30" {
		t.Fatalf("unexpected amount: %s", intent.Amount)
	}
}

func TestGetAndCancelIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"id":"pi_test_123","status":"canceled","currency":"usd","amount":2430}`)
			return
		}
		fmt.Fprint(w, `{"id":"pi_test_123","status":"succeeded","currency":"usd","amount":2430}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	intent, err := client.GetIntent(nil, "pi_test_123")
	if err != nil {
		t.Fatalf("get intent failed: %v", err)
	}
	if intent.Status != IntentStatusSucceeded || !intent.Terminal() {
		t.Fatalf("unexpected status: %s", intent.Status)
	}

	canceled, err := client.CancelIntent(nil, "pi_test_123")
	if err != nil {
		t.Fatalf("cancel intent failed: %v", err)
	}
	if canceled.Status != IntentStatusCanceled || !canceled.Terminal() {
		t.Fatalf("unexpected status: %s", canceled.Status)
	}
}

func TestToMinorAmountZeroDecimalCurrency(t *testing.T) {
	minor, err := toMinorAmount("1200", "JPY")
	if err != nil {
		t.Fatalf("to minor amount failed: %v", err)
	}
	if minor != 1200 {
		t.Fatalf("expected 1200, got %d", minor)
	}
	if got := fromMinorAmount(1200, "JPY"); got != "1200" {
		t.Fatalf("unexpected formatted amount: %s", got)
	}
	if _, err := toMinorAmount("0", "USD"); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for zero amount, got %v", err)
	}
}
