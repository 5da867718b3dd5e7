package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/sylvan-next/internal/http/response"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/repository"
	"github.com/sylvan-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdjustTokensRequest 调整用户积分请求
type AdjustTokensRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Delta  string `json:"delta" binding:"required"`
	Remark string `json:"remark"`
}

// AdjustUserTokens 管理端调整用户积分余额
func (h *Handler) AdjustUserTokens(c *gin.Context) {
	var req AdjustTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_request", err)
		return
	}

	delta, err := decimal.NewFromString(strings.TrimSpace(req.Delta))
	if err != nil || delta.IsZero() {
		respondError(c, response.CodeBadRequest, "error.amount_invalid", nil)
		return
	}

	account, txn, err := h.TokenService.AdminAdjust(req.UserID, models.NewMoneyFromDecimal(delta), req.Remark)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			respondError(c, response.CodeBadRequest, "error.amount_invalid", nil)
		case errors.Is(err, service.ErrTokenInsufficientBalance):
			respondError(c, response.CodeBadRequest, "error.token_balance_insufficient", nil)
		default:
			respondError(c, response.CodeInternal, "error.token_adjust_failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"account":     account,
		"transaction": txn,
	})
}

// GetUserTokenAccount 管理端查看用户积分账户
func (h *Handler) GetUserTokenAccount(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}

	account, err := h.TokenService.GetAccount(uint(userID))
	if err != nil {
		respondError(c, response.CodeInternal, "error.token_account_fetch_failed", err)
		return
	}

	response.Success(c, account)
}

// ListUserTokenTransactions 管理端查看用户积分流水
func (h *Handler) ListUserTokenTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.TokenTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		Type:     strings.TrimSpace(c.Query("type")),
	}
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		if uid, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.UserID = uint(uid)
		}
	}
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.OrderID = uint(id)
		}
	}

	transactions, total, err := h.TokenService.ListTransactions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.token_txn_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, transactions, pagination)
}
