package public

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/http/response"
	"github.com/sylvan-next/internal/repository"
	"github.com/sylvan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderItemRequest 订单项请求
type OrderItemRequest struct {
	ItemType    string `json:"item_type" binding:"required"`
	TargetID    uint   `json:"target_id" binding:"required"`
	VariantID   *uint  `json:"variant_id"`
	Quantity    int    `json:"quantity"`
	IsGift      bool   `json:"is_gift"`
	GiftName    string `json:"gift_name"`
	GiftEmail   string `json:"gift_email"`
	GiftMessage string `json:"gift_message"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" binding:"required"`
	CustomerName    string                 `json:"customer_name"`
	CustomerEmail   string                 `json:"customer_email"`
	CustomerPhone   string                 `json:"customer_phone"`
	ShippingAddress map[string]interface{} `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	DiscountCode    string                 `json:"discount_code"`
	Notes           string                 `json:"notes"`
}

func (req *CreateOrderRequest) toServiceInput(c *gin.Context, userID uint) service.OrderCreateInput {
	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.OrderItemInput{
			ItemType:    item.ItemType,
			TargetID:    item.TargetID,
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			IsGift:      item.IsGift,
			GiftName:    item.GiftName,
			GiftEmail:   item.GiftEmail,
			GiftMessage: item.GiftMessage,
		})
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = constants.PaymentMethodFiat
	}
	return service.OrderCreateInput{
		UserID:          userID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   method,
		DiscountCode:    req.DiscountCode,
		Notes:           req.Notes,
		ClientIP:        c.ClientIP(),
		Items:           items,
	}
}

// CreateOrder 用户创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_request", err)
		return
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		req.CustomerEmail = getUserEmail(c)
	}

	order, err := h.OrderService.CreateOrder(req.toServiceInput(c, uid))
	if err != nil {
		respondUserOrderCreateError(c, err)
		return
	}

	response.Success(c, order)
}

// CreateGuestOrder 游客创建订单
func (h *Handler) CreateGuestOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_request", err)
		return
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.CustomerEmail)); err != nil {
		respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
		return
	}

	order, err := h.OrderService.CreateOrder(req.toServiceInput(c, 0))
	if err != nil {
		respondGuestOrderCreateError(c, err)
		return
	}

	response.Success(c, order)
}

// ListOrders 获取当前用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))
	orderNo := strings.TrimSpace(c.Query("order_no"))

	orders, total, err := h.OrderService.ListForUser(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Status:   status,
		OrderNo:  orderNo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, orders, pagination)
}

// GetOrder 获取订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}

	order, err := h.OrderService.GetForUser(uint(orderID), uid)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	response.Success(c, order)
}

// GetGuestOrder 游客按订单号与邮箱查询订单
func (h *Handler) GetGuestOrder(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Query("order_no"))
	email := strings.TrimSpace(c.Query("email"))
	if orderNo == "" || email == "" {
		respondError(c, response.CodeBadRequest, "error.invalid_request", nil)
		return
	}

	order, err := h.OrderService.GetByOrderNoAndEmail(orderNo, email)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	response.Success(c, order)
}

// CancelOrder 用户取消待支付订单
func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}

	order, err := h.OrderService.Cancel(uint(orderID), uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
		case errors.Is(err, service.ErrOrderStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.order_status_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.order_cancel_failed", err)
		}
		return
	}

	response.Success(c, order)
}

// ListMyAdoptions 获取当前用户的认养记录
func (h *Handler) ListMyAdoptions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	adoptions, total, err := h.AdoptionService.List(repository.AdoptionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.adoption_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, adoptions, pagination)
}
