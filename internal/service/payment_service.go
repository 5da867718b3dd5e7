package service

import (
	"context"
	"time"

	"github.com/sylvan-next/internal/cache"
	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/logger"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/payment/stripe"
	"github.com/sylvan-next/internal/repository"
)

// webhookEventTTL 回放防护标记保留时长
const webhookEventTTL = 24 * time.Hour

// PaymentService 支付服务（网关意向管理与 webhook 对账）
type PaymentService struct {
	orderRepo repository.OrderRepository
	orderSvc  *OrderService
	pricing   *PricingEngine
	gateway   *stripe.Client
}

// NewPaymentService 创建支付服务。未配置密钥时网关为空，支付入口返回未配置错误。
func NewPaymentService(
	orderRepo repository.OrderRepository,
	orderSvc *OrderService,
	pricing *PricingEngine,
	stripeCfg config.StripeConfig,
) (*PaymentService, error) {
	svc := &PaymentService{
		orderRepo: orderRepo,
		orderSvc:  orderSvc,
		pricing:   pricing,
	}
	if stripeCfg.SecretKey != "" {
		client, err := stripe.NewClient(stripe.Config{
			SecretKey:               stripeCfg.SecretKey,
			WebhookSecret:           stripeCfg.WebhookSecret,
			APIBaseURL:              stripeCfg.APIBaseURL,
			WebhookToleranceSeconds: stripeCfg.WebhookToleranceSeconds,
		})
		if err != nil {
			return nil, err
		}
		svc.gateway = client
	}
	return svc, nil
}

// IntentResult 支付意向结果
type IntentResult struct {
	OrderID         uint   `json:"order_id"`
	OrderNo         string `json:"order_no"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	ClientSecret    string `json:"client_secret,omitempty"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
}

// CreateIntentForOrder 为待支付法币订单创建（或复用）支付意向。
// 全额优惠的零元订单不经过网关，直接确认。
func (s *PaymentService) CreateIntentForOrder(ctx context.Context, orderID uint, userID uint) (*IntentResult, error) {
	order, err := s.loadPayableOrder(orderID, userID)
	if err != nil {
		return nil, err
	}

	if order.TotalAmount.Decimal.IsZero() {
		confirmed, err := s.orderSvc.Confirm(order.ID)
		if err != nil {
			return nil, err
		}
		return &IntentResult{
			OrderID:  confirmed.ID,
			OrderNo:  confirmed.OrderNo,
			Amount:   confirmed.TotalAmount.Decimal.StringFixed(2),
			Currency: confirmed.Currency,
			Status:   confirmed.Status,
		}, nil
	}

	if s.gateway == nil {
		return nil, ErrPaymentGatewayNotConfigured
	}

	amount := order.TotalAmount.Decimal.StringFixed(2)
	if order.PaymentIntentID != "" {
		result, retry, err := s.reuseExistingIntent(ctx, order, amount)
		if err != nil {
			return nil, err
		}
		if !retry {
			return result, nil
		}
	}

	intent, err := s.gateway.CreateIntent(ctx, stripe.CreateIntentInput{
		OrderID:      order.ID,
		OrderNo:      order.OrderNo,
		Amount:       amount,
		Currency:     order.Currency,
		Description:  "Sylvan order " + order.OrderNo,
		ReceiptEmail: order.CustomerEmail,
	})
	if err != nil {
		logger.Errorw("payment_intent_create_failed", "order_id", order.ID, "error", err)
		return nil, ErrPaymentGatewayRequestFailed
	}
	if err := s.orderRepo.UpdateStatus(order.ID, order.Status, map[string]interface{}{
		"payment_intent_id": intent.ID,
	}); err != nil {
		return nil, err
	}
	logger.Infow("payment_intent_created", "order_id", order.ID, "intent_id", intent.ID, "amount", amount)
	return &IntentResult{
		OrderID:         order.ID,
		OrderNo:         order.OrderNo,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          amount,
		Currency:        order.Currency,
		Status:          order.Status,
	}, nil
}

// reuseExistingIntent 复用订单已有的意向；金额变化或意向终结时取消旧意向并要求重建。
func (s *PaymentService) reuseExistingIntent(ctx context.Context, order *models.Order, amount string) (*IntentResult, bool, error) {
	intent, err := s.gateway.GetIntent(ctx, order.PaymentIntentID)
	if err != nil {
		logger.Warnw("payment_intent_query_failed", "order_id", order.ID, "intent_id", order.PaymentIntentID, "error", err)
		return nil, true, nil
	}

	if intent.Status == stripe.IntentStatusSucceeded {
		confirmed, err := s.orderSvc.Confirm(order.ID)
		if err != nil {
			return nil, false, err
		}
		return &IntentResult{
			OrderID:         confirmed.ID,
			OrderNo:         confirmed.OrderNo,
			PaymentIntentID: intent.ID,
			Amount:          amount,
			Currency:        confirmed.Currency,
			Status:          confirmed.Status,
		}, false, nil
	}
	if intent.Status == stripe.IntentStatusCanceled {
		return nil, true, nil
	}

	if intent.Amount == amount {
		return &IntentResult{
			OrderID:         order.ID,
			OrderNo:         order.OrderNo,
			PaymentIntentID: intent.ID,
			ClientSecret:    intent.ClientSecret,
			Amount:          amount,
			Currency:        order.Currency,
			Status:          order.Status,
		}, false, nil
	}

	// 金额变化：废弃旧意向
	if _, err := s.gateway.CancelIntent(ctx, intent.ID); err != nil {
		logger.Warnw("payment_intent_cancel_failed", "order_id", order.ID, "intent_id", intent.ID, "error", err)
	}
	return nil, true, nil
}

// SyncOrderPayment 主动向网关对账（买家回跳后的状态刷新）。
func (s *PaymentService) SyncOrderPayment(ctx context.Context, orderID uint, userID uint) (*models.Order, error) {
	order, err := s.orderSvc.Get(orderID)
	if err != nil {
		return nil, err
	}
	if userID > 0 && order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending || order.PaymentIntentID == "" {
		return order, nil
	}
	if s.gateway == nil {
		return nil, ErrPaymentGatewayNotConfigured
	}

	intent, err := s.gateway.GetIntent(ctx, order.PaymentIntentID)
	if err != nil {
		logger.Warnw("payment_intent_query_failed", "order_id", order.ID, "intent_id", order.PaymentIntentID, "error", err)
		return nil, ErrPaymentGatewayRequestFailed
	}
	if intent.Status != stripe.IntentStatusSucceeded {
		return order, nil
	}
	return s.orderSvc.Confirm(order.ID)
}

// ConfirmByIntent 按支付意向 ID 对账并确认订单。
func (s *PaymentService) ConfirmByIntent(ctx context.Context, intentID string, userID uint) (*models.Order, error) {
	if intentID == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByPaymentIntentID(intentID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if userID > 0 && order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return s.SyncOrderPayment(ctx, order.ID, userID)
}

// HandleWebhook 验签并处理网关回调。
// 对无法关联订单的事件返回成功，避免网关无限重试。
func (s *PaymentService) HandleWebhook(ctx context.Context, headers map[string]string, body []byte) error {
	if s.gateway == nil {
		return ErrPaymentGatewayNotConfigured
	}
	event, err := s.gateway.VerifyAndParseWebhook(headers, body, time.Now())
	if err != nil {
		return err
	}

	first, err := cache.MarkWebhookEvent(ctx, event.EventID, webhookEventTTL)
	if err != nil {
		logger.Warnw("webhook_event_mark_failed", "event_id", event.EventID, "error", err)
		first = true
	}
	if !first {
		logger.Infow("webhook_event_replayed", "event_id", event.EventID, "event_type", event.EventType)
		return nil
	}

	// 验签之后的处理失败一律确认回执：撤销回放标记让网关重试重新生效，
	// 返回错误只会招来对同一失败的重试风暴。
	if err := s.processWebhookEvent(event); err != nil {
		logger.Errorw("webhook_process_failed", "event_id", event.EventID, "event_type", event.EventType, "error", err)
		if unmarkErr := cache.UnmarkWebhookEvent(ctx, event.EventID); unmarkErr != nil {
			logger.Warnw("webhook_event_unmark_failed", "event_id", event.EventID, "error", unmarkErr)
		}
	}
	return nil
}

func (s *PaymentService) processWebhookEvent(event *stripe.WebhookEvent) error {
	order, err := s.findOrderForEvent(event)
	if err != nil {
		return err
	}
	if order == nil {
		logger.Warnw("webhook_order_missing", "event_id", event.EventID, "event_type", event.EventType, "intent_id", event.PaymentIntentID)
		return nil
	}

	switch event.EventType {
	case "payment_intent.succeeded":
		return s.handleIntentSucceeded(order, event)
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return s.handleIntentFailed(order, event)
	default:
		logger.Infow("webhook_event_ignored", "event_id", event.EventID, "event_type", event.EventType)
		return nil
	}
}

func (s *PaymentService) handleIntentSucceeded(order *models.Order, event *stripe.WebhookEvent) error {
	expected := order.TotalAmount.Decimal.StringFixed(2)
	if event.Amount != "" && event.Amount != expected {
		logger.Errorw("webhook_amount_mismatch",
			"order_id", order.ID, "event_id", event.EventID,
			"expected", expected, "received", event.Amount)
		return nil
	}
	if _, err := s.orderSvc.Confirm(order.ID); err != nil {
		return err
	}
	logger.Infow("webhook_order_confirmed", "order_id", order.ID, "event_id", event.EventID)
	return nil
}

func (s *PaymentService) handleIntentFailed(order *models.Order, event *stripe.WebhookEvent) error {
	if order.Status != constants.OrderStatusPending {
		return nil
	}
	if err := s.orderRepo.UpdateStatus(order.ID, order.Status, map[string]interface{}{
		"payment_status": constants.PaymentStatusFailed,
	}); err != nil {
		return err
	}
	logger.Infow("webhook_payment_failed", "order_id", order.ID, "event_id", event.EventID, "event_type", event.EventType)
	return nil
}

func (s *PaymentService) findOrderForEvent(event *stripe.WebhookEvent) (*models.Order, error) {
	if event.OrderID > 0 {
		order, err := s.orderRepo.GetByID(event.OrderID)
		if err != nil {
			return nil, err
		}
		if order != nil {
			return order, nil
		}
	}
	if event.PaymentIntentID != "" {
		return s.orderRepo.GetByPaymentIntentID(event.PaymentIntentID)
	}
	return nil, nil
}

// loadPayableOrder 加载可支付订单并做惰性过期处理
func (s *PaymentService) loadPayableOrder(orderID uint, userID uint) (*models.Order, error) {
	order, err := s.orderSvc.Get(orderID)
	if err != nil {
		return nil, err
	}
	if userID > 0 && order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if order.PaymentMethod != constants.PaymentMethodFiat ||
		order.Status != constants.OrderStatusPending ||
		order.PaymentStatus == constants.PaymentStatusPaid {
		return nil, ErrOrderNotPayable
	}
	return order, nil
}
