package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupTokenServiceTest(t *testing.T) (*TokenService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:token_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.TokenAccount{}, &models.TokenTransaction{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewTokenService(repository.NewTokenRepository(db)), db
}

func TestTokenGetAccountLazyCreate(t *testing.T) {
	svc, _ := setupTokenServiceTest(t)

	if _, err := svc.GetAccount(0); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for user 0, got %v", err)
	}

	account, err := svc.GetAccount(1)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.IsZero() {
		t.Fatalf("expected zero balance, got %s", account.Balance.Decimal)
	}

	again, err := svc.GetAccount(1)
	if err != nil {
		t.Fatalf("second get account failed: %v", err)
	}
	if again.ID != account.ID {
		t.Fatalf("expected same account on repeat lookup, got %d and %d", account.ID, again.ID)
	}
}

func TestTokenAdminAdjust(t *testing.T) {
	svc, _ := setupTokenServiceTest(t)

	if _, _, err := svc.AdminAdjust(1, money("0"), "noop"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero delta, got %v", err)
	}

	account, txn, err := svc.AdminAdjust(1, money("100"), "活动奖励")
	if err != nil {
		t.Fatalf("admin adjust failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected balance 100, got %s", account.Balance.Decimal)
	}
	if txn.Type != constants.TokenTxnTypeAdminAdjust {
		t.Fatalf("expected admin_adjust txn, got %s", txn.Type)
	}
	if !txn.BalanceBefore.Decimal.IsZero() || !txn.BalanceAfter.Decimal.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("unexpected txn balances: %s -> %s", txn.BalanceBefore.Decimal, txn.BalanceAfter.Decimal)
	}

	// 负向调整不得透支
	if _, _, err := svc.AdminAdjust(1, money("-150"), "扣回"); !errors.Is(err, ErrTokenInsufficientBalance) {
		t.Fatalf("expected ErrTokenInsufficientBalance, got %v", err)
	}
	account, _, err = svc.AdminAdjust(1, money("-40"), "扣回")
	if err != nil {
		t.Fatalf("negative adjust failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("expected balance 60, got %s", account.Balance.Decimal)
	}
}

func TestTokenDebitAndRefundIdempotent(t *testing.T) {
	svc, db := setupTokenServiceTest(t)

	if _, _, err := svc.AdminAdjust(5, money("100"), "init"); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	debit := func() (*models.TokenTransaction, error) {
		var txn *models.TokenTransaction
		err := db.Transaction(func(tx *gorm.DB) error {
			var innerErr error
			txn, innerErr = svc.DebitForOrder(tx, 5, 42, money("30"))
			return innerErr
		})
		return txn, err
	}

	first, err := debit()
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if !first.Amount.Decimal.Equal(decimal.RequireFromString("-30")) {
		t.Fatalf("expected debit amount -30, got %s", first.Amount.Decimal)
	}

	// 同一订单重复扣减返回已有流水，余额不再变化
	second, err := debit()
	if err != nil {
		t.Fatalf("repeat debit failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected idempotent debit to return txn %d, got %d", first.ID, second.ID)
	}

	account, err := svc.GetAccount(5)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.RequireFromString("70")) {
		t.Fatalf("expected balance 70 after single debit, got %s", account.Balance.Decimal)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		_, innerErr := svc.RefundForOrder(tx, 5, 42, money("30"))
		return innerErr
	}); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	account, err = svc.GetAccount(5)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected balance restored to 100, got %s", account.Balance.Decimal)
	}
}

func TestTokenDebitInsufficientBalance(t *testing.T) {
	svc, db := setupTokenServiceTest(t)

	if _, _, err := svc.AdminAdjust(9, money("10"), "init"); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, innerErr := svc.DebitForOrder(tx, 9, 50, money("25"))
		return innerErr
	})
	if !errors.Is(err, ErrTokenInsufficientBalance) {
		t.Fatalf("expected ErrTokenInsufficientBalance, got %v", err)
	}

	account, err := svc.GetAccount(9)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected untouched balance 10, got %s", account.Balance.Decimal)
	}

	// 游客不可用积分
	if err := db.Transaction(func(tx *gorm.DB) error {
		_, innerErr := svc.DebitForOrder(tx, 0, 51, money("5"))
		return innerErr
	}); !errors.Is(err, ErrGuestTokenPayment) {
		t.Fatalf("expected ErrGuestTokenPayment, got %v", err)
	}
}
