package public

import (
	"errors"
	"io"
	"strings"

	"github.com/sylvan-next/internal/http/response"
	"github.com/sylvan-next/internal/payment/stripe"

	"github.com/gin-gonic/gin"
)

// CreatePaymentIntentRequest 创建支付意向请求
type CreatePaymentIntentRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// CreatePaymentIntent 为待支付订单创建支付意向
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_request", err)
		return
	}

	result, err := h.PaymentService.CreateIntentForOrder(c.Request.Context(), req.OrderID, uid)
	if err != nil {
		respondPaymentCreateError(c, err)
		return
	}

	response.Success(c, result)
}

// ConfirmPaymentRequest 支付确认请求
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// ConfirmPayment 按支付意向 ID 对账并确认订单
func (h *Handler) ConfirmPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_request", err)
		return
	}

	order, err := h.PaymentService.ConfirmByIntent(c.Request.Context(), strings.TrimSpace(req.PaymentIntentID), uid)
	if err != nil {
		respondPaymentSyncError(c, err)
		return
	}

	response.Success(c, order)
}

// SyncPayment 买家回跳后主动同步订单支付状态
func (h *Handler) SyncPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_request", err)
		return
	}

	order, err := h.PaymentService.SyncOrderPayment(c.Request.Context(), req.OrderID, uid)
	if err != nil {
		respondPaymentSyncError(c, err)
		return
	}

	response.Success(c, order)
}

// StripeWebhook 支付网关回调入口
func (h *Handler) StripeWebhook(c *gin.Context) {
	log := requestLog(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("payment_webhook_body_read_failed", "error", err)
		respondError(c, response.CodeBadRequest, "error.invalid_request", err)
		return
	}

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}

	if err := h.PaymentService.HandleWebhook(c.Request.Context(), headers, body); err != nil {
		if errors.Is(err, stripe.ErrSignatureInvalid) {
			log.Warnw("payment_webhook_signature_invalid", "client_ip", c.ClientIP(), "body_size", len(body))
			respondError(c, response.CodeBadRequest, "error.payment_webhook_invalid", nil)
			return
		}
		log.Warnw("payment_webhook_handle_failed", "error", err)
		respondError(c, response.CodeInternal, "error.payment_webhook_failed", err)
		return
	}

	response.Success(c, gin.H{"accepted": true})
}
