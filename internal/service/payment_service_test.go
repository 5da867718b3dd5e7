package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/payment/stripe"
	"github.com/sylvan-next/internal/repository"
)

func setupPaymentServiceTest(t *testing.T, gatewayURL string) (*PaymentService, *orderServiceFixture) {
	t.Helper()
	f := setupOrderServiceTest(t)
	cfg := config.StripeConfig{}
	if gatewayURL != "" {
		cfg = config.StripeConfig{
			SecretKey:     "sk_test_123",
			WebhookSecret: "whsec_test_abc",
			APIBaseURL:    gatewayURL,
		}
	}
	svc, err := NewPaymentService(repository.NewOrderRepository(f.db), f.orderSvc, NewPricingEngine(config.PricingConfig{
		Currency:         "USD",
		MinPayableAmount: "0.50",
		TaxRate:          0.08,
	}), cfg)
	if err != nil {
		t.Fatalf("new payment service failed: %v", err)
	}
	return svc, f
}

func succeededWebhook(t *testing.T, secret string, orderID uint, intentID, amountMinor string) (map[string]string, []byte) {
	t.Helper()
	payload := map[string]interface{}{
		"id":   fmt.Sprintf("evt_%d_%d", orderID, time.Now().UnixNano()),
		"type": "payment_intent.succeeded",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":   "payment_intent",
				"id":       intentID,
				"status":   "succeeded",
				"currency": "usd",
				"amount":   json.Number(amountMinor),
				"metadata": map[string]interface{}{
					"order_id": fmt.Sprintf("%d", orderID),
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal webhook failed: %v", err)
	}
	now := time.Now().Unix()
	sig := stripe.ComputeSignature(secret, now, body)
	headers := map[string]string{
		"Stripe-Signature": fmt.Sprintf("t=%d,v1=%s", now, sig),
	}
	return headers, body
}

func TestPaymentServiceCreateIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_live_1","client_secret":"pi_live_1_secret","status":"requires_payment_method","currency":"usd","amount":4320}`)
	}))
	defer server.Close()

	svc, f := setupPaymentServiceTest(t, server.URL)
	tree := seedTree(t, f.db, 2)
	input := fiatOrderInput(1, OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1})
	input.ShippingAddress = nil
	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	result, err := svc.CreateIntentForOrder(context.Background(), order.ID, 1)
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	if result.PaymentIntentID != "pi_live_1" || result.ClientSecret != "pi_live_1_secret" {
		t.Fatalf("unexpected intent result: %+v", result)
	}
	// 40 + 税 3.20
	if result.Amount != "43.20" {
		t.Fatalf("unexpected amount: %s", result.Amount)
	}

	var stored models.Order
	if err := f.db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.PaymentIntentID != "pi_live_1" {
		t.Fatalf("expected intent id persisted, got %s", stored.PaymentIntentID)
	}
}

func TestPaymentServiceGatewayNotConfigured(t *testing.T) {
	svc, f := setupPaymentServiceTest(t, "")
	tree := seedTree(t, f.db, 2)
	input := fiatOrderInput(1, OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1})
	input.ShippingAddress = nil
	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.CreateIntentForOrder(context.Background(), order.ID, 1); !errors.Is(err, ErrPaymentGatewayNotConfigured) {
		t.Fatalf("expected ErrPaymentGatewayNotConfigured, got %v", err)
	}
}

func TestPaymentServiceZeroTotalConfirmsWithoutGateway(t *testing.T) {
	svc, f := setupPaymentServiceTest(t, "")
	tree := seedTree(t, f.db, 2)
	seedDiscount(t, f.db, "FREE100", 100, 1)

	input := fiatOrderInput(1, OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1})
	input.ShippingAddress = nil
	input.DiscountCode = "FREE100"
	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !order.TotalAmount.Decimal.IsZero() {
		t.Fatalf("expected zero total, got %s", order.TotalAmount.Decimal.StringFixed(2))
	}

	result, err := svc.CreateIntentForOrder(context.Background(), order.ID, 1)
	if err != nil {
		t.Fatalf("zero-total confirm failed: %v", err)
	}
	if result.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", result.Status)
	}
	if result.PaymentIntentID != "" {
		t.Fatalf("expected no gateway intent for zero total")
	}
}

func TestPaymentServiceWebhookConfirmsOrder(t *testing.T) {
	svc, f := setupPaymentServiceTest(t, "http://127.0.0.1:0")
	tree := seedTree(t, f.db, 2)
	input := fiatOrderInput(1, OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1})
	input.ShippingAddress = nil
	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	headers, body := succeededWebhook(t, "whsec_test_abc", order.ID, "pi_live_1", "4320")
	if err := svc.HandleWebhook(context.Background(), headers, body); err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}

	var stored models.Order
	if err := f.db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", stored.Status)
	}

	// 重放同一意向的事件不应产生第二份认养
	headers, body = succeededWebhook(t, "whsec_test_abc", order.ID, "pi_live_1", "4320")
	if err := svc.HandleWebhook(context.Background(), headers, body); err != nil {
		t.Fatalf("replayed webhook failed: %v", err)
	}
	var count int64
	if err := f.db.Model(&models.Adoption{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count adoptions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single adoption after replay, got %d", count)
	}
}

func TestPaymentServiceWebhookAcksConfirmFailure(t *testing.T) {
	svc, f := setupPaymentServiceTest(t, "http://127.0.0.1:0")
	tree := seedTree(t, f.db, 1)

	input := fiatOrderInput(1, OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1})
	input.ShippingAddress = nil
	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 另一用户先确认，占满名额，使本单的确认必然失败
	rival := fiatOrderInput(2, OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1})
	rival.ShippingAddress = nil
	rival.CustomerEmail = "rival@example.com"
	rivalOrder, err := f.orderSvc.CreateOrder(rival)
	if err != nil {
		t.Fatalf("create rival order failed: %v", err)
	}
	if _, err := f.orderSvc.Confirm(rivalOrder.ID); err != nil {
		t.Fatalf("confirm rival order failed: %v", err)
	}

	// 确认失败也必须回执成功，否则网关会对同一失败无限重试
	headers, body := succeededWebhook(t, "whsec_test_abc", order.ID, "pi_live_1", "4320")
	if err := svc.HandleWebhook(context.Background(), headers, body); err != nil {
		t.Fatalf("expected webhook acked on confirm failure, got %v", err)
	}

	var stored models.Order
	if err := f.db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPending {
		t.Fatalf("expected order left pending, got %s", stored.Status)
	}
	var count int64
	if err := f.db.Model(&models.Adoption{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count adoptions failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no adoption for failed confirm, got %d", count)
	}
}

func TestPaymentServiceWebhookAmountMismatch(t *testing.T) {
	svc, f := setupPaymentServiceTest(t, "http://127.0.0.1:0")
	tree := seedTree(t, f.db, 2)
	input := fiatOrderInput(1, OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1})
	input.ShippingAddress = nil
	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	headers, body := succeededWebhook(t, "whsec_test_abc", order.ID, "pi_live_1", "100")
	if err := svc.HandleWebhook(context.Background(), headers, body); err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}

	var stored models.Order
	if err := f.db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPending {
		t.Fatalf("expected order left pending on amount mismatch, got %s", stored.Status)
	}
}

func TestPaymentServiceWebhookInvalidSignature(t *testing.T) {
	svc, _ := setupPaymentServiceTest(t, "http://127.0.0.1:0")
	headers := map[string]string{"Stripe-Signature": fmt.Sprintf("t=%d,v1=bad", time.Now().Unix())}
	if err := svc.HandleWebhook(context.Background(), headers, []byte(`{"id":"evt_x","type":"payment_intent.succeeded"}`)); !errors.Is(err, stripe.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestPaymentServiceWebhookUnknownOrder(t *testing.T) {
	svc, _ := setupPaymentServiceTest(t, "http://127.0.0.1:0")
	headers, body := succeededWebhook(t, "whsec_test_abc", 9999, "pi_missing", "4320")
	// 找不到订单时返回成功，避免网关重试风暴
	if err := svc.HandleWebhook(context.Background(), headers, body); err != nil {
		t.Fatalf("expected nil for unknown order, got %v", err)
	}
}

func TestPaymentServiceWebhookPaymentFailed(t *testing.T) {
	svc, f := setupPaymentServiceTest(t, "http://127.0.0.1:0")
	tree := seedTree(t, f.db, 2)
	input := fiatOrderInput(1, OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1})
	input.ShippingAddress = nil
	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	payload := map[string]interface{}{
		"id":   "evt_fail_1",
		"type": "payment_intent.payment_failed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":   "payment_intent",
				"id":       "pi_live_1",
				"status":   "requires_payment_method",
				"currency": "usd",
				"metadata": map[string]interface{}{"order_id": fmt.Sprintf("%d", order.ID)},
			},
		},
	}
	body, _ := json.Marshal(payload)
	now := time.Now().Unix()
	sig := stripe.ComputeSignature("whsec_test_abc", now, body)
	headers := map[string]string{"Stripe-Signature": fmt.Sprintf("t=%d,v1=%s", now, sig)}

	if err := svc.HandleWebhook(context.Background(), headers, body); err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}
	var stored models.Order
	if err := f.db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.PaymentStatus != constants.PaymentStatusFailed {
		t.Fatalf("expected failed payment status, got %s", stored.PaymentStatus)
	}
	if stored.Status != constants.OrderStatusPending {
		t.Fatalf("expected order still pending, got %s", stored.Status)
	}
}
