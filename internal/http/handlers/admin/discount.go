package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sylvan-next/internal/http/response"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/repository"
	"github.com/sylvan-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateDiscountRequest 创建优惠码请求
type CreateDiscountRequest struct {
	Code           string `json:"code" binding:"required"`
	Percent        int    `json:"percent" binding:"required"`
	UserID         *uint  `json:"user_id"`
	MaxUsage       int    `json:"max_usage"`
	MinOrderAmount string `json:"min_order_amount"`
	MaxDiscount    string `json:"max_discount"`
	ExpiresAt      string `json:"expires_at"`
}

// CreateAdminDiscount 创建优惠码
func (h *Handler) CreateAdminDiscount(c *gin.Context) {
	var req CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_request", err)
		return
	}

	input := service.DiscountCreateInput{
		Code:     req.Code,
		Percent:  req.Percent,
		UserID:   req.UserID,
		MaxUsage: req.MaxUsage,
	}
	if raw := strings.TrimSpace(req.MinOrderAmount); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil || amount.IsNegative() {
			respondError(c, response.CodeBadRequest, "error.amount_invalid", nil)
			return
		}
		input.MinOrderAmount = models.NewMoneyFromDecimal(amount)
	}
	if raw := strings.TrimSpace(req.MaxDiscount); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil || amount.IsNegative() {
			respondError(c, response.CodeBadRequest, "error.amount_invalid", nil)
			return
		}
		limit := models.NewMoneyFromDecimal(amount)
		input.MaxDiscount = &limit
	}
	if raw := strings.TrimSpace(req.ExpiresAt); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.invalid_request", err)
			return
		}
		input.ExpiresAt = &ts
	}

	discount, err := h.DiscountService.Create(input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPercent):
			respondError(c, response.CodeBadRequest, "error.discount_percent_invalid", nil)
		case errors.Is(err, service.ErrDiscountNotFound):
			respondError(c, response.CodeBadRequest, "error.invalid_request", nil)
		default:
			respondError(c, response.CodeInternal, "error.discount_create_failed", err)
		}
		return
	}

	response.Success(c, discount)
}

// ListAdminDiscounts 优惠码列表
func (h *Handler) ListAdminDiscounts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.DiscountListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Code:     strings.TrimSpace(c.Query("code")),
	}
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		if uid, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.UserID = uint(uid)
		}
	}

	discounts, total, err := h.DiscountService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.discount_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, discounts, pagination)
}

// CancelAdminDiscount 作废优惠码
func (h *Handler) CancelAdminDiscount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}

	if err := h.DiscountService.Cancel(uint(id)); err != nil {
		if errors.Is(err, service.ErrDiscountNotFound) {
			respondError(c, response.CodeNotFound, "error.discount_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.discount_cancel_failed", err)
		return
	}

	response.Success(c, gin.H{"cancelled": true})
}
