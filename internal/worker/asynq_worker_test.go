package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/provider"
	"github.com/sylvan-next/internal/queue"
	"github.com/sylvan-next/internal/repository"
	"github.com/sylvan-next/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupConsumerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.Tree{},
		&models.LandPlot{},
		&models.Adoption{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	container := &provider.Container{
		UserRepo:     repository.NewUserRepository(db),
		OrderRepo:    repository.NewOrderRepository(db),
		TreeRepo:     repository.NewTreeRepository(db),
		PlotRepo:     repository.NewLandPlotRepository(db),
		AdoptionRepo: repository.NewAdoptionRepository(db),
		EmailService: service.NewEmailService(&config.EmailConfig{Enabled: false}),
	}
	return NewConsumer(container), db
}

func TestIsEmailUnavailable(t *testing.T) {
	for _, err := range []error{
		service.ErrEmailServiceDisabled,
		service.ErrEmailServiceNotConfigured,
		service.ErrInvalidEmail,
	} {
		if !isEmailUnavailable(err) {
			t.Fatalf("expected %v to count as unavailable", err)
		}
	}
	if isEmailUnavailable(errors.New("dial tcp: connection refused")) {
		t.Fatal("transport errors should not count as unavailable")
	}
}

func TestResolveAdoptionTarget(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	tree := &models.Tree{Name: "老槐树", Species: "sophora", AdopterCap: 1}
	if err := db.Create(tree).Error; err != nil {
		t.Fatalf("create tree failed: %v", err)
	}
	plot := &models.LandPlot{Name: "河畔草甸", TotalSlots: 4}
	if err := db.Create(plot).Error; err != nil {
		t.Fatalf("create plot failed: %v", err)
	}

	name, err := consumer.resolveAdoptionTarget(&models.Adoption{TreeID: &tree.ID})
	if err != nil {
		t.Fatalf("resolve tree target failed: %v", err)
	}
	if name != "老槐树" {
		t.Fatalf("unexpected tree name %q", name)
	}

	name, err = consumer.resolveAdoptionTarget(&models.Adoption{PlotID: &plot.ID})
	if err != nil {
		t.Fatalf("resolve plot target failed: %v", err)
	}
	if name != "河畔草甸" {
		t.Fatalf("unexpected plot name %q", name)
	}

	missing := uint(9999)
	if _, err := consumer.resolveAdoptionTarget(&models.Adoption{TreeID: &missing}); !errors.Is(err, service.ErrTreeNotFound) {
		t.Fatalf("expected ErrTreeNotFound, got %v", err)
	}
	if _, err := consumer.resolveAdoptionTarget(&models.Adoption{}); !errors.Is(err, service.ErrInvalidOrderItem) {
		t.Fatalf("expected ErrInvalidOrderItem for targetless adoption, got %v", err)
	}
}

func TestResolveOrderReceiver(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	user := &models.User{Email: "member@example.com", PasswordHash: "x", Locale: "en", Status: "active"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	email, locale := consumer.resolveOrderReceiver(&models.Order{UserID: user.ID, CustomerEmail: "other@example.com"})
	if email != "member@example.com" || locale != "en" {
		t.Fatalf("expected member email with en locale, got %q %q", email, locale)
	}

	// 游客订单回退到下单邮箱
	email, locale = consumer.resolveOrderReceiver(&models.Order{CustomerEmail: " guest@example.com "})
	if email != "guest@example.com" || locale != "" {
		t.Fatalf("expected guest email fallback, got %q %q", email, locale)
	}
}

func TestHandleOrderStatusEmailSkips(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	// 未知订单直接跳过，不应重试
	body, err := json.Marshal(queue.OrderStatusEmailPayload{OrderID: 12345, Status: "confirmed"})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	if err := consumer.handleOrderStatusEmail(context.Background(), asynq.NewTask(queue.TaskOrderStatusEmail, body)); err != nil {
		t.Fatalf("expected nil for unknown order, got %v", err)
	}

	// 邮件服务关闭时视为跳过
	order := &models.Order{OrderNo: "SN-TEST-1", CustomerEmail: "guest@example.com", Status: "confirmed", Currency: "USD", PaymentMethod: "fiat"}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	body, err = json.Marshal(queue.OrderStatusEmailPayload{OrderID: order.ID, Status: "confirmed"})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	if err := consumer.handleOrderStatusEmail(context.Background(), asynq.NewTask(queue.TaskOrderStatusEmail, body)); err != nil {
		t.Fatalf("expected nil when email service disabled, got %v", err)
	}

	// 非法载荷返回错误以便进入重试
	if err := consumer.handleOrderStatusEmail(context.Background(), asynq.NewTask(queue.TaskOrderStatusEmail, []byte("{"))); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
