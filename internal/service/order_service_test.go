package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/queue"
	"github.com/sylvan-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type orderServiceFixture struct {
	orderSvc    *OrderService
	tokenSvc    *TokenService
	discountSvc *DiscountService
	db          *gorm.DB
}

func setupOrderServiceTest(t *testing.T) *orderServiceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Tree{},
		&models.LandPlot{},
		&models.Adoption{},
		&models.Discount{},
		&models.DiscountRedemption{},
		&models.TokenAccount{},
		&models.TokenTransaction{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	treeRepo := repository.NewTreeRepository(db)
	plotRepo := repository.NewLandPlotRepository(db)
	adoptionRepo := repository.NewAdoptionRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	discountSvc := NewDiscountService(discountRepo)
	tokenSvc := NewTokenService(tokenRepo)
	adoptionSvc := NewAdoptionService(treeRepo, plotRepo, adoptionRepo)
	pricing := NewPricingEngine(config.PricingConfig{
		Currency:              "USD",
		ShippingFee:           "5.00",
		FreeShippingThreshold: "50.00",
		TaxRate:               0.08,
		MinPayableAmount:      "0.50",
	})
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("queue client failed: %v", err)
	}
	orderSvc := NewOrderService(
		orderRepo, productRepo, treeRepo, plotRepo, adoptionRepo,
		discountSvc, tokenSvc, adoptionSvc, pricing, queueClient,
		config.OrderConfig{PaymentExpireMinutes: 30},
		config.PricingConfig{MilestoneThresholds: []int{1, 5, 10}},
	)
	return &orderServiceFixture{orderSvc: orderSvc, tokenSvc: tokenSvc, discountSvc: discountSvc, db: db}
}

func seedProduct(t *testing.T, db *gorm.DB, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Slug:             fmt.Sprintf("product-%d", time.Now().UnixNano()),
		Name:             "有机肥料礼盒",
		PriceAmount:      models.NewMoneyFromDecimal(decimal.RequireFromString(price)),
		TokenPrice:       models.NewMoneyFromDecimal(decimal.RequireFromString("30")),
		StockTotal:       stock,
		RequiresShipping: true,
		IsActive:         true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func seedTree(t *testing.T, db *gorm.DB, cap int) *models.Tree {
	t.Helper()
	tree := &models.Tree{
		Name:        "古樟一号",
		Species:     "camphor",
		PriceAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("40")),
		TokenPrice:  models.NewMoneyFromDecimal(decimal.RequireFromString("30")),
		AdopterCap:  cap,
		Status:      constants.TreeStatusAvailable,
	}
	if err := db.Create(tree).Error; err != nil {
		t.Fatalf("create tree failed: %v", err)
	}
	return tree
}

func seedPlot(t *testing.T, db *gorm.DB, slots int) *models.LandPlot {
	t.Helper()
	plot := &models.LandPlot{
		Name:        "山前梯田A区",
		Region:      "north",
		PriceAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("25")),
		TokenPrice:  models.NewMoneyFromDecimal(decimal.RequireFromString("20")),
		TotalSlots:  slots,
		Status:      constants.PlotStatusAvailable,
	}
	if err := db.Create(plot).Error; err != nil {
		t.Fatalf("create plot failed: %v", err)
	}
	return plot
}

func seedDiscount(t *testing.T, db *gorm.DB, code string, percent, maxUsage int) *models.Discount {
	t.Helper()
	discount := &models.Discount{
		Code:     code,
		Percent:  percent,
		MaxUsage: maxUsage,
		Status:   constants.DiscountStatusActive,
	}
	if err := db.Create(discount).Error; err != nil {
		t.Fatalf("create discount failed: %v", err)
	}
	return discount
}

func shippingAddress() map[string]interface{} {
	return map[string]interface{}{
		"line1":   "12 Orchard Road",
		"city":    "Portland",
		"country": "US",
	}
}

func fiatOrderInput(userID uint, items ...OrderItemInput) OrderCreateInput {
	return OrderCreateInput{
		UserID:          userID,
		CustomerName:    "Ada Chen",
		CustomerEmail:   "ada@example.com",
		ShippingAddress: shippingAddress(),
		PaymentMethod:   constants.PaymentMethodFiat,
		Items:           items,
	}
}

func TestOrderServiceCreateFiatOrderTotals(t *testing.T) {
	f := setupOrderServiceTest(t)
	product := seedProduct(t, f.db, "20", 10)
	seedDiscount(t, f.db, "WELCOME10", 10, 1)

	input := fiatOrderInput(1, OrderItemInput{
		ItemType: constants.ItemTypeProduct,
		TargetID: product.ID,
		Quantity: 1,
	})
	input.DiscountCode = "welcome10"

	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if order.ExpiresAt == nil {
		t.Fatalf("expected expires_at to be set")
	}
	// 20 + 5 运费，9 折优惠 2.50，税 (25-2.50)*8% = 1.80
	if got := order.DiscountAmount.Decimal.StringFixed(2); got != "2.50" {
		t.Fatalf("expected discount 2.50, got %s", got)
	}
	if got := order.TaxAmount.Decimal.StringFixed(2); got != "1.80" {
		t.Fatalf("expected tax 1.80, got %s", got)
	}
	if got := order.TotalAmount.Decimal.StringFixed(2); got != "24.30" {
		t.Fatalf("expected total 24.30, got %s", got)
	}
	if order.DiscountCode != "WELCOME10" {
		t.Fatalf("expected normalized discount code, got %s", order.DiscountCode)
	}

	var stored models.Product
	if err := f.db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("load product failed: %v", err)
	}
	if stored.StockSold != 1 {
		t.Fatalf("expected stock_sold 1, got %d", stored.StockSold)
	}
}

func TestOrderServiceConfirmAllocatesAdoptions(t *testing.T) {
	f := setupOrderServiceTest(t)
	tree := seedTree(t, f.db, 3)
	plot := seedPlot(t, f.db, 5)
	discount := seedDiscount(t, f.db, "GREEN20", 20, 1)

	input := fiatOrderInput(7,
		OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1},
		OrderItemInput{ItemType: constants.ItemTypePlot, TargetID: plot.ID, Quantity: 2},
	)
	input.ShippingAddress = nil
	input.DiscountCode = "GREEN20"

	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	confirmed, err := f.orderSvc.Confirm(order.ID)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	if confirmed.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", confirmed.PaymentStatus)
	}
	if confirmed.PaidAt == nil {
		t.Fatalf("expected paid_at to be set")
	}

	var adoptions []models.Adoption
	if err := f.db.Where("order_id = ?", order.ID).Order("id ASC").Find(&adoptions).Error; err != nil {
		t.Fatalf("load adoptions failed: %v", err)
	}
	if len(adoptions) != 3 {
		t.Fatalf("expected 3 adoptions, got %d", len(adoptions))
	}
	slots := map[int]bool{}
	for _, adoption := range adoptions {
		if adoption.PlotID != nil {
			slots[adoption.SlotNo] = true
		}
		expiry := time.Until(adoption.ExpiresAt)
		if expiry < 364*24*time.Hour || expiry > 366*24*time.Hour {
			t.Fatalf("expected one-year expiry, got %v", adoption.ExpiresAt)
		}
	}
	if !slots[1] || !slots[2] {
		t.Fatalf("expected plot slots 1 and 2, got %v", slots)
	}

	var storedTree models.Tree
	if err := f.db.First(&storedTree, tree.ID).Error; err != nil {
		t.Fatalf("load tree failed: %v", err)
	}
	if storedTree.AdoptedCount != 1 {
		t.Fatalf("expected adopted_count 1, got %d", storedTree.AdoptedCount)
	}

	var storedDiscount models.Discount
	if err := f.db.First(&storedDiscount, discount.ID).Error; err != nil {
		t.Fatalf("load discount failed: %v", err)
	}
	if storedDiscount.UsedCount != 1 {
		t.Fatalf("expected used_count 1, got %d", storedDiscount.UsedCount)
	}
	if storedDiscount.Status != constants.DiscountStatusUsed {
		t.Fatalf("expected discount used, got %s", storedDiscount.Status)
	}

	// 重复确认幂等
	again, err := f.orderSvc.Confirm(order.ID)
	if err != nil {
		t.Fatalf("repeat confirm failed: %v", err)
	}
	if again.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed after repeat, got %s", again.Status)
	}
	var count int64
	if err := f.db.Model(&models.Adoption{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count adoptions failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected adoptions unchanged after repeat confirm, got %d", count)
	}
}

func TestOrderServicePlotSlotExhaustion(t *testing.T) {
	f := setupOrderServiceTest(t)
	plot := seedPlot(t, f.db, 1)

	makeOrder := func(userID uint) *models.Order {
		input := fiatOrderInput(userID, OrderItemInput{ItemType: constants.ItemTypePlot, TargetID: plot.ID, Quantity: 1})
		input.ShippingAddress = nil
		order, err := f.orderSvc.CreateOrder(input)
		if err != nil {
			t.Fatalf("create order failed: %v", err)
		}
		return order
	}

	first := makeOrder(1)
	second := makeOrder(2)

	if _, err := f.orderSvc.Confirm(first.ID); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	if _, err := f.orderSvc.Confirm(second.ID); !errors.Is(err, ErrPlotExhausted) {
		t.Fatalf("expected ErrPlotExhausted, got %v", err)
	}

	var stored models.Order
	if err := f.db.First(&stored, second.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPending {
		t.Fatalf("expected failed confirm to leave order pending, got %s", stored.Status)
	}
}

func TestOrderServiceLowestSlotReusedAfterExpiry(t *testing.T) {
	f := setupOrderServiceTest(t)
	plot := seedPlot(t, f.db, 3)

	confirmPlotOrder := func(userID uint) *models.Order {
		input := fiatOrderInput(userID, OrderItemInput{ItemType: constants.ItemTypePlot, TargetID: plot.ID, Quantity: 1})
		input.ShippingAddress = nil
		order, err := f.orderSvc.CreateOrder(input)
		if err != nil {
			t.Fatalf("create order failed: %v", err)
		}
		if _, err := f.orderSvc.Confirm(order.ID); err != nil {
			t.Fatalf("confirm failed: %v", err)
		}
		return order
	}

	confirmPlotOrder(1)
	confirmPlotOrder(2)

	// 槽位 1 的认养到期后应被惰性释放并优先复用
	if err := f.db.Model(&models.Adoption{}).
		Where("plot_id = ? AND slot_no = ?", plot.ID, 1).
		Update("expires_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("expire adoption failed: %v", err)
	}

	third := confirmPlotOrder(3)
	var adoption models.Adoption
	if err := f.db.Where("order_id = ?", third.ID).First(&adoption).Error; err != nil {
		t.Fatalf("load adoption failed: %v", err)
	}
	if adoption.SlotNo != 1 {
		t.Fatalf("expected freed slot 1 to be reused, got %d", adoption.SlotNo)
	}
}

func TestOrderServiceTreeDoubleAdoptRejected(t *testing.T) {
	f := setupOrderServiceTest(t)
	tree := seedTree(t, f.db, 5)

	makeOrder := func() *models.Order {
		input := fiatOrderInput(9, OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1})
		input.ShippingAddress = nil
		order, err := f.orderSvc.CreateOrder(input)
		if err != nil {
			t.Fatalf("create order failed: %v", err)
		}
		return order
	}

	first := makeOrder()
	second := makeOrder()
	if _, err := f.orderSvc.Confirm(first.ID); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	if _, err := f.orderSvc.Confirm(second.ID); !errors.Is(err, ErrTreeAlreadyAdopted) {
		t.Fatalf("expected ErrTreeAlreadyAdopted, got %v", err)
	}
}

func TestOrderServiceDuplicateTargetsRejectedAtCreation(t *testing.T) {
	f := setupOrderServiceTest(t)
	tree := seedTree(t, f.db, 5)
	plot := seedPlot(t, f.db, 2)

	// 同一棵树重复出现在单内必须在下单时拒绝，否则支付后无法确认
	input := fiatOrderInput(9,
		OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1},
		OrderItemInput{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1},
	)
	input.ShippingAddress = nil
	if _, err := f.orderSvc.CreateOrder(input); !errors.Is(err, ErrTreeAlreadyAdopted) {
		t.Fatalf("expected ErrTreeAlreadyAdopted at creation, got %v", err)
	}
	var count int64
	if err := f.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no order persisted, got %d", count)
	}

	// 单内累计槽位需求超过地块剩余槽位同样在下单时拒绝
	input = fiatOrderInput(9,
		OrderItemInput{ItemType: constants.ItemTypePlot, TargetID: plot.ID, Quantity: 1},
		OrderItemInput{ItemType: constants.ItemTypePlot, TargetID: plot.ID, Quantity: 2},
	)
	input.ShippingAddress = nil
	if _, err := f.orderSvc.CreateOrder(input); !errors.Is(err, ErrPlotExhausted) {
		t.Fatalf("expected ErrPlotExhausted at creation, got %v", err)
	}
}

func TestOrderServiceTokenOrderConfirmsImmediately(t *testing.T) {
	f := setupOrderServiceTest(t)
	tree := seedTree(t, f.db, 2)

	if _, _, err := f.tokenSvc.AdminAdjust(5, models.NewMoneyFromDecimal(decimal.RequireFromString("100")), "初始发放"); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	input := OrderCreateInput{
		UserID:        5,
		CustomerName:  "Ben Wu",
		CustomerEmail: "ben@example.com",
		PaymentMethod: constants.PaymentMethodToken,
		Items: []OrderItemInput{
			{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1},
		},
	}
	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create token order failed: %v", err)
	}
	if order.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed token order, got %s", order.Status)
	}
	if got := order.TokenTotal.Decimal.StringFixed(2); got != "30.00" {
		t.Fatalf("expected token total 30.00, got %s", got)
	}

	account, err := f.tokenSvc.GetAccount(5)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if got := account.Balance.Decimal.StringFixed(2); got != "70.00" {
		t.Fatalf("expected balance 70.00, got %s", got)
	}

	var count int64
	if err := f.db.Model(&models.Adoption{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count adoptions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 adoption, got %d", count)
	}
}

func TestOrderServiceTokenInsufficientBalance(t *testing.T) {
	f := setupOrderServiceTest(t)
	tree := seedTree(t, f.db, 2)

	if _, _, err := f.tokenSvc.AdminAdjust(6, models.NewMoneyFromDecimal(decimal.RequireFromString("10")), "初始发放"); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	input := OrderCreateInput{
		UserID:        6,
		CustomerName:  "Cam Li",
		CustomerEmail: "cam@example.com",
		PaymentMethod: constants.PaymentMethodToken,
		Items: []OrderItemInput{
			{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1},
		},
	}
	if _, err := f.orderSvc.CreateOrder(input); !errors.Is(err, ErrTokenInsufficientBalance) {
		t.Fatalf("expected ErrTokenInsufficientBalance, got %v", err)
	}

	account, err := f.tokenSvc.GetAccount(6)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if got := account.Balance.Decimal.StringFixed(2); got != "10.00" {
		t.Fatalf("expected balance untouched at 10.00, got %s", got)
	}
	var count int64
	if err := f.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected failed order to be rolled back, got %d orders", count)
	}
}

func TestOrderServiceGuestTokenPaymentRejected(t *testing.T) {
	f := setupOrderServiceTest(t)
	tree := seedTree(t, f.db, 2)

	input := OrderCreateInput{
		CustomerName:  "Guest",
		CustomerEmail: "guest@example.com",
		PaymentMethod: constants.PaymentMethodToken,
		Items: []OrderItemInput{
			{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1},
		},
	}
	if _, err := f.orderSvc.CreateOrder(input); !errors.Is(err, ErrGuestTokenPayment) {
		t.Fatalf("expected ErrGuestTokenPayment, got %v", err)
	}
}

func TestOrderServiceExpiredOrderLazyCancel(t *testing.T) {
	f := setupOrderServiceTest(t)
	product := seedProduct(t, f.db, "20", 5)

	order, err := f.orderSvc.CreateOrder(fiatOrderInput(3, OrderItemInput{
		ItemType: constants.ItemTypeProduct,
		TargetID: product.ID,
		Quantity: 2,
	}))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if err := f.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("force expiry failed: %v", err)
	}

	got, err := f.orderSvc.Get(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if got.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected lazily cancelled order, got %s", got.Status)
	}

	var stored models.Product
	if err := f.db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("load product failed: %v", err)
	}
	if stored.StockSold != 0 {
		t.Fatalf("expected stock released, got stock_sold %d", stored.StockSold)
	}
}

func TestOrderServiceStatusTransitions(t *testing.T) {
	f := setupOrderServiceTest(t)
	product := seedProduct(t, f.db, "20", 5)

	order, err := f.orderSvc.CreateOrder(fiatOrderInput(2, OrderItemInput{
		ItemType: constants.ItemTypeProduct,
		TargetID: product.ID,
		Quantity: 1,
	}))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 待支付不可直接发货
	if _, err := f.orderSvc.UpdateStatusAdmin(order.ID, StatusUpdateInput{Status: constants.OrderStatusShipped}); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid, got %v", err)
	}

	if _, err := f.orderSvc.Confirm(order.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	shipped, err := f.orderSvc.UpdateStatusAdmin(order.ID, StatusUpdateInput{Status: constants.OrderStatusShipped, TrackingNo: "TRK-123"})
	if err != nil {
		t.Fatalf("ship failed: %v", err)
	}
	if shipped.Status != constants.OrderStatusShipped || shipped.TrackingNo != "TRK-123" {
		t.Fatalf("unexpected shipped order: %s / %s", shipped.Status, shipped.TrackingNo)
	}
	delivered, err := f.orderSvc.UpdateStatusAdmin(order.ID, StatusUpdateInput{Status: constants.OrderStatusDelivered})
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if delivered.Status != constants.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", delivered.Status)
	}

	// 已签收订单不可再取消
	if _, err := f.orderSvc.Cancel(order.ID, 0); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid on cancel, got %v", err)
	}
}

func TestOrderServiceTokenRefundOnRefundTransition(t *testing.T) {
	f := setupOrderServiceTest(t)
	tree := seedTree(t, f.db, 2)

	if _, _, err := f.tokenSvc.AdminAdjust(8, models.NewMoneyFromDecimal(decimal.RequireFromString("50")), "初始发放"); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}
	order, err := f.orderSvc.CreateOrder(OrderCreateInput{
		UserID:        8,
		CustomerName:  "Du Mei",
		CustomerEmail: "du@example.com",
		PaymentMethod: constants.PaymentMethodToken,
		Items: []OrderItemInput{
			{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create token order failed: %v", err)
	}

	refunded, err := f.orderSvc.Refund(order.ID)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refunded.Status != constants.OrderStatusRefunded {
		t.Fatalf("expected refunded, got %s", refunded.Status)
	}

	account, err := f.tokenSvc.GetAccount(8)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if got := account.Balance.Decimal.StringFixed(2); got != "50.00" {
		t.Fatalf("expected balance restored to 50.00, got %s", got)
	}

	// 重复退款幂等，不重复返还
	if _, err := f.orderSvc.Refund(order.ID); err != nil {
		t.Fatalf("repeat refund failed: %v", err)
	}
	account, err = f.tokenSvc.GetAccount(8)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if got := account.Balance.Decimal.StringFixed(2); got != "50.00" {
		t.Fatalf("expected balance unchanged after repeat refund, got %s", got)
	}
}

func TestOrderServiceDiscountRejectedForTokenOrder(t *testing.T) {
	f := setupOrderServiceTest(t)
	tree := seedTree(t, f.db, 2)
	seedDiscount(t, f.db, "NOPE10", 10, 1)

	input := OrderCreateInput{
		UserID:        4,
		CustomerName:  "Eve",
		CustomerEmail: "eve@example.com",
		PaymentMethod: constants.PaymentMethodToken,
		DiscountCode:  "NOPE10",
		Items: []OrderItemInput{
			{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1},
		},
	}
	if _, err := f.orderSvc.CreateOrder(input); !errors.Is(err, ErrDiscountFiatOnly) {
		t.Fatalf("expected ErrDiscountFiatOnly, got %v", err)
	}
}

func TestOrderServiceGuestOrderLookup(t *testing.T) {
	f := setupOrderServiceTest(t)
	tree := seedTree(t, f.db, 2)

	input := OrderCreateInput{
		CustomerName:  "Guest Fan",
		CustomerEmail: "fan@example.com",
		PaymentMethod: constants.PaymentMethodFiat,
		Items: []OrderItemInput{
			{ItemType: constants.ItemTypeTree, TargetID: tree.ID, Quantity: 1},
		},
	}
	order, err := f.orderSvc.CreateOrder(input)
	if err != nil {
		t.Fatalf("create guest order failed: %v", err)
	}

	found, err := f.orderSvc.GetByOrderNoAndEmail(order.OrderNo, "FAN@example.com")
	if err != nil {
		t.Fatalf("guest lookup failed: %v", err)
	}
	if found.ID != order.ID {
		t.Fatalf("expected order %d, got %d", order.ID, found.ID)
	}

	if _, err := f.orderSvc.GetByOrderNoAndEmail(order.OrderNo, "other@example.com"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound with wrong email, got %v", err)
	}
}
