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

func setupDiscountServiceTest(t *testing.T) (*DiscountService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:discount_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Discount{}, &models.DiscountRedemption{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewDiscountService(repository.NewDiscountRepository(db)), db
}

func TestDiscountCreateValidation(t *testing.T) {
	svc, _ := setupDiscountServiceTest(t)

	if _, err := svc.Create(DiscountCreateInput{Code: "BAD", Percent: 0}); !errors.Is(err, ErrInvalidPercent) {
		t.Fatalf("expected ErrInvalidPercent for percent 0, got %v", err)
	}
	if _, err := svc.Create(DiscountCreateInput{Code: "BAD", Percent: 101}); !errors.Is(err, ErrInvalidPercent) {
		t.Fatalf("expected ErrInvalidPercent for percent 101, got %v", err)
	}
	if _, err := svc.Create(DiscountCreateInput{Code: "   ", Percent: 10}); !errors.Is(err, ErrDiscountNotFound) {
		t.Fatalf("expected ErrDiscountNotFound for blank code, got %v", err)
	}

	discount, err := svc.Create(DiscountCreateInput{Code: "  spring20 ", Percent: 20})
	if err != nil {
		t.Fatalf("create discount failed: %v", err)
	}
	if discount.Code != "SPRING20" {
		t.Fatalf("expected normalized code SPRING20, got %s", discount.Code)
	}
	if discount.MaxUsage != 1 {
		t.Fatalf("expected default max usage 1, got %d", discount.MaxUsage)
	}
	if discount.Status != constants.DiscountStatusActive {
		t.Fatalf("expected active status, got %s", discount.Status)
	}
}

func TestDiscountValidate(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)

	boundUser := uint(7)
	if _, err := svc.Create(DiscountCreateInput{
		Code:           "VIP30",
		Percent:        30,
		UserID:         &boundUser,
		MaxUsage:       3,
		MinOrderAmount: money("50"),
	}); err != nil {
		t.Fatalf("create discount failed: %v", err)
	}

	if _, err := svc.Validate("NOPE", money("100"), boundUser); !errors.Is(err, ErrDiscountNotFound) {
		t.Fatalf("expected ErrDiscountNotFound, got %v", err)
	}
	if _, err := svc.Validate("vip30", money("30"), boundUser); !errors.Is(err, ErrDiscountBelowMinimum) {
		t.Fatalf("expected ErrDiscountBelowMinimum, got %v", err)
	}
	if _, err := svc.Validate("VIP30", money("100"), 99); !errors.Is(err, ErrDiscountNotEntitled) {
		t.Fatalf("expected ErrDiscountNotEntitled for other user, got %v", err)
	}

	validation, err := svc.Validate(" vip30 ", money("100"), boundUser)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if validation.Percent != 30 {
		t.Fatalf("expected percent 30, got %d", validation.Percent)
	}

	// 过期后校验失败并惰性流转状态
	past := time.Now().Add(-time.Hour)
	if err := db.Model(&models.Discount{}).Where("code = ?", "VIP30").Update("expires_at", past).Error; err != nil {
		t.Fatalf("set expiry failed: %v", err)
	}
	if _, err := svc.Validate("VIP30", money("100"), boundUser); !errors.Is(err, ErrDiscountExpired) {
		t.Fatalf("expected ErrDiscountExpired, got %v", err)
	}
	var expired models.Discount
	if err := db.Where("code = ?", "VIP30").First(&expired).Error; err != nil {
		t.Fatalf("load discount failed: %v", err)
	}
	if expired.Status != constants.DiscountStatusExpired {
		t.Fatalf("expected lazy expired status, got %s", expired.Status)
	}
}

func TestDiscountConsume(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)

	if _, err := svc.Create(DiscountCreateInput{Code: "ONCE", Percent: 10, MaxUsage: 1}); err != nil {
		t.Fatalf("create discount failed: %v", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Consume(tx, "once", 1, 100, money("2.50"))
	}); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	var discount models.Discount
	if err := db.Where("code = ?", "ONCE").First(&discount).Error; err != nil {
		t.Fatalf("load discount failed: %v", err)
	}
	if discount.UsedCount != 1 {
		t.Fatalf("expected used count 1, got %d", discount.UsedCount)
	}
	if discount.Status != constants.DiscountStatusUsed {
		t.Fatalf("expected used status after exhausting quota, got %s", discount.Status)
	}

	var redemption models.DiscountRedemption
	if err := db.Where("order_id = ?", 100).First(&redemption).Error; err != nil {
		t.Fatalf("load redemption failed: %v", err)
	}
	if !redemption.Amount.Decimal.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("expected redemption amount 2.50, got %s", redemption.Amount.Decimal)
	}

	// 额度耗尽后再消费失败
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Consume(tx, "ONCE", 2, 101, money("1.00"))
	})
	if !errors.Is(err, ErrDiscountExhausted) {
		t.Fatalf("expected ErrDiscountExhausted, got %v", err)
	}
}

func TestDiscountConsumeLosesConditionalUpdate(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)

	if _, err := svc.Create(DiscountCreateInput{Code: "RACE", Percent: 10, MaxUsage: 1}); err != nil {
		t.Fatalf("create discount failed: %v", err)
	}

	// 在读取与条件更新之间插入一次竞争占用，迫使条件更新零行命中
	injected := false
	if err := db.Callback().Update().Before("gorm:update").Register("test_inject_rival_usage", func(tx *gorm.DB) {
		if injected || tx.Statement.Table != "discounts" {
			return
		}
		injected = true
		if err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE discounts SET used_count = max_usage WHERE code = ?", "RACE").Error; err != nil {
			t.Fatalf("inject rival usage failed: %v", err)
		}
	}); err != nil {
		t.Fatalf("register callback failed: %v", err)
	}
	defer db.Callback().Update().Remove("test_inject_rival_usage")

	consumeErr := db.Transaction(func(tx *gorm.DB) error {
		return svc.Consume(tx, "RACE", 1, 200, money("1.00"))
	})
	if !errors.Is(consumeErr, ErrDiscountAlreadyUsed) {
		t.Fatalf("expected ErrDiscountAlreadyUsed, got %v", consumeErr)
	}

	// 失败方不得留下核销记录
	var count int64
	if err := db.Model(&models.DiscountRedemption{}).Count(&count).Error; err != nil {
		t.Fatalf("count redemptions failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no redemption for losing consume, got %d", count)
	}
}

func TestDiscountCancel(t *testing.T) {
	svc, _ := setupDiscountServiceTest(t)

	discount, err := svc.Create(DiscountCreateInput{Code: "DROPME", Percent: 15, MaxUsage: 10})
	if err != nil {
		t.Fatalf("create discount failed: %v", err)
	}
	if err := svc.Cancel(discount.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := svc.Validate("DROPME", money("100"), 0); !errors.Is(err, ErrDiscountInactive) {
		t.Fatalf("expected ErrDiscountInactive after cancel, got %v", err)
	}
	if err := svc.Cancel(99999); !errors.Is(err, ErrDiscountNotFound) {
		t.Fatalf("expected ErrDiscountNotFound for unknown id, got %v", err)
	}
}
