package public

import (
	"strconv"
	"strings"

	"github.com/sylvan-next/internal/http/response"
	"github.com/sylvan-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetMyTokenAccount 获取当前用户积分账户
func (h *Handler) GetMyTokenAccount(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	account, err := h.TokenService.GetAccount(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.token_account_fetch_failed", err)
		return
	}

	response.Success(c, account)
}

// GetMyTokenTransactions 获取当前用户积分流水
func (h *Handler) GetMyTokenTransactions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	transactions, total, err := h.TokenService.ListTransactions(repository.TokenTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Type:     strings.TrimSpace(c.Query("type")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.token_txn_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, transactions, pagination)
}
