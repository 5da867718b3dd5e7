package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/logger"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/queue"
	"github.com/sylvan-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// allowedTransitions 订单状态机（cancelled/refunded 为终态）
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed: true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusShipped:  true,
		constants.OrderStatusRefunded: true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusDelivered: true,
		constants.OrderStatusRefunded:  true,
	},
	constants.OrderStatusDelivered: {
		constants.OrderStatusRefunded: true,
	},
	constants.OrderStatusCancelled: {},
	constants.OrderStatusRefunded:  {},
}

// isTransitionAllowed 状态流转是否合法（目标与当前相同视为合法，便于幂等）
func isTransitionAllowed(current, target string) bool {
	if current == target {
		return true
	}
	targets, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return targets[target]
}

// OrderService 订单服务
type OrderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	treeRepo     repository.TreeRepository
	plotRepo     repository.LandPlotRepository
	adoptionRepo repository.AdoptionRepository
	discountSvc  *DiscountService
	tokenSvc     *TokenService
	adoptionSvc  *AdoptionService
	pricing      *PricingEngine
	queueClient  *queue.Client

	paymentExpire time.Duration
	milestones    []int
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	treeRepo repository.TreeRepository,
	plotRepo repository.LandPlotRepository,
	adoptionRepo repository.AdoptionRepository,
	discountSvc *DiscountService,
	tokenSvc *TokenService,
	adoptionSvc *AdoptionService,
	pricing *PricingEngine,
	queueClient *queue.Client,
	orderCfg config.OrderConfig,
	pricingCfg config.PricingConfig,
) *OrderService {
	expireMinutes := orderCfg.PaymentExpireMinutes
	if expireMinutes <= 0 {
		expireMinutes = 30
	}
	return &OrderService{
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		treeRepo:      treeRepo,
		plotRepo:      plotRepo,
		adoptionRepo:  adoptionRepo,
		discountSvc:   discountSvc,
		tokenSvc:      tokenSvc,
		adoptionSvc:   adoptionSvc,
		pricing:       pricing,
		queueClient:   queueClient,
		paymentExpire: time.Duration(expireMinutes) * time.Minute,
		milestones:    pricingCfg.MilestoneThresholds,
	}
}

// generateOrderNo 生成订单编号
func generateOrderNo() string {
	return fmt.Sprintf("SV%s%s", time.Now().Format("20060102150405"), randNumeric(6))
}

// randNumeric 生成指定长度的随机数字串
func randNumeric(length int) string {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			sb.WriteString("0")
			continue
		}
		sb.WriteString(n.String())
	}
	return sb.String()
}

// OrderItemInput 下单项输入
type OrderItemInput struct {
	ItemType    string `json:"item_type"`
	TargetID    uint   `json:"target_id"`
	VariantID   *uint  `json:"variant_id"`
	Quantity    int    `json:"quantity"`
	IsGift      bool   `json:"is_gift"`
	GiftName    string `json:"gift_name"`
	GiftEmail   string `json:"gift_email"`
	GiftMessage string `json:"gift_message"`
}

// OrderCreateInput 下单输入
type OrderCreateInput struct {
	UserID          uint
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress map[string]interface{}
	PaymentMethod   string
	DiscountCode    string
	Notes           string
	ClientIP        string
	Items           []OrderItemInput
}

// resolvedItems 下单项解析结果
type resolvedItems struct {
	items            []models.OrderItem
	subtotal         decimal.Decimal
	tokenTotal       decimal.Decimal
	requiresShipping bool
	stockConsume     map[uint]int // 需要扣减库存的商品及数量
	treeTargets      map[uint]bool
	plotConsume      map[uint]int // 单内各地块累计认租槽位数
}

// CreateOrder 创建订单。
// 法币订单落库为待支付并注册超时取消任务；积分订单在同一事务内扣减余额并直接确认。
func (s *OrderService) CreateOrder(input OrderCreateInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrInvalidOrderItem
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, ErrInvalidAddress
	}
	method := strings.TrimSpace(input.PaymentMethod)
	if method != constants.PaymentMethodFiat && method != constants.PaymentMethodToken {
		return nil, ErrOrderNotPayable
	}
	if method == constants.PaymentMethodToken && input.UserID == 0 {
		return nil, ErrGuestTokenPayment
	}
	if method == constants.PaymentMethodToken && strings.TrimSpace(input.DiscountCode) != "" {
		return nil, ErrDiscountFiatOnly
	}

	resolved, err := s.resolveItems(input)
	if err != nil {
		return nil, err
	}
	if resolved.requiresShipping && len(input.ShippingAddress) == 0 {
		return nil, ErrInvalidAddress
	}

	now := time.Now()
	order := &models.Order{
		OrderNo:       generateOrderNo(),
		UserID:        input.UserID,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		Status:        constants.OrderStatusPending,
		Currency:      s.pricing.Currency(),
		PaymentMethod: method,
		PaymentStatus: constants.PaymentStatusUnpaid,
		Notes:         strings.TrimSpace(input.Notes),
		ClientIP:      strings.TrimSpace(input.ClientIP),
	}
	if len(input.ShippingAddress) > 0 {
		order.ShippingAddress = models.JSON(input.ShippingAddress)
	}

	if method == constants.PaymentMethodToken {
		order.TokenTotal = models.NewMoneyFromDecimal(resolved.tokenTotal)
	} else {
		if err := s.priceFiatOrder(order, input, resolved); err != nil {
			return nil, err
		}
		expiresAt := now.Add(s.paymentExpire)
		order.ExpiresAt = &expiresAt
	}

	var confirmed *confirmResult
	if err := models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Create(order, resolved.items); err != nil {
			return err
		}
		if err := s.consumeStock(tx, resolved.stockConsume); err != nil {
			return err
		}
		if method == constants.PaymentMethodToken {
			if _, err := s.tokenSvc.DebitForOrder(tx, input.UserID, order.ID, order.TokenTotal); err != nil {
				return err
			}
			result, err := s.confirmInTx(tx, order.ID, now)
			if err != nil {
				return err
			}
			confirmed = result
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if method == constants.PaymentMethodToken {
		s.notifyConfirmed(confirmed)
	} else if order.ExpiresAt != nil {
		if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, time.Until(*order.ExpiresAt)); err != nil {
			logger.Warnw("order_timeout_task_enqueue_failed", "order_id", order.ID, "error", err)
		}
	}

	created, err := s.orderRepo.GetByID(order.ID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, ErrOrderNotFound
	}
	return created, nil
}

// priceFiatOrder 计算法币订单的金额字段
func (s *OrderService) priceFiatOrder(order *models.Order, input OrderCreateInput, resolved *resolvedItems) error {
	pricingInput := PricingInput{
		Subtotal:         models.NewMoneyFromDecimal(resolved.subtotal),
		RequiresShipping: resolved.requiresShipping,
		PaymentMethod:    constants.PaymentMethodFiat,
	}
	if code := NormalizeCode(input.DiscountCode); code != "" {
		validation, err := s.discountSvc.Validate(code, models.NewMoneyFromDecimal(resolved.subtotal), input.UserID)
		if err != nil {
			return err
		}
		pricingInput.DiscountPercent = validation.Percent
		pricingInput.MaxDiscount = validation.MaxDiscount
		order.DiscountCode = validation.Discount.Code
		order.DiscountID = &validation.Discount.ID
	}
	result, err := s.pricing.ComputeTotals(pricingInput)
	if err != nil {
		return err
	}
	order.Subtotal = result.Subtotal
	order.ShippingFee = result.ShippingFee
	order.DiscountAmount = result.DiscountAmount
	order.TaxAmount = result.TaxAmount
	order.TotalAmount = result.TotalAmount
	return nil
}

// resolveItems 解析下单项并生成价格快照
func (s *OrderService) resolveItems(input OrderCreateInput) (*resolvedItems, error) {
	isToken := input.PaymentMethod == constants.PaymentMethodToken
	result := &resolvedItems{
		subtotal:     decimal.Zero,
		tokenTotal:   decimal.Zero,
		stockConsume: make(map[uint]int),
		treeTargets:  make(map[uint]bool),
		plotConsume:  make(map[uint]int),
	}

	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		switch item.ItemType {
		case constants.ItemTypeProduct:
			if err := s.resolveProductItem(item, isToken, result); err != nil {
				return nil, err
			}
		case constants.ItemTypeTree:
			if err := s.resolveTreeItem(item, isToken, result); err != nil {
				return nil, err
			}
		case constants.ItemTypePlot:
			if err := s.resolvePlotItem(item, isToken, result); err != nil {
				return nil, err
			}
		default:
			return nil, ErrInvalidOrderItem
		}
	}
	return result, nil
}

func (s *OrderService) resolveProductItem(item OrderItemInput, isToken bool, result *resolvedItems) error {
	product, err := s.productRepo.GetByID(item.TargetID)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	if !product.IsActive {
		return ErrProductInactive
	}

	name := product.Name
	unitPrice := product.PriceAmount.Decimal
	tokenPrice := product.TokenPrice.Decimal
	if item.VariantID != nil {
		variant, err := s.productRepo.GetVariantByID(*item.VariantID)
		if err != nil {
			return err
		}
		if variant == nil || variant.ProductID != product.ID || !variant.IsActive {
			return ErrVariantNotFound
		}
		name = fmt.Sprintf("%s - %s", product.Name, variant.Name)
		unitPrice = variant.PriceAmount.Decimal
		tokenPrice = variant.TokenPrice.Decimal
	}
	if isToken && !tokenPrice.IsPositive() {
		return ErrTokenNotSupported
	}
	if product.StockTotal > 0 && product.StockSold+result.stockConsume[product.ID]+item.Quantity > product.StockTotal {
		return ErrProductOutOfStock
	}

	qty := decimal.NewFromInt(int64(item.Quantity))
	result.items = append(result.items, models.OrderItem{
		ItemType:    constants.ItemTypeProduct,
		TargetID:    product.ID,
		VariantID:   item.VariantID,
		Name:        name,
		UnitPrice:   models.NewMoneyFromDecimal(unitPrice),
		TokenPrice:  models.NewMoneyFromDecimal(tokenPrice),
		Quantity:    item.Quantity,
		TotalPrice:  models.NewMoneyFromDecimal(unitPrice.Mul(qty).Round(2)),
		IsGift:      item.IsGift,
		GiftName:    strings.TrimSpace(item.GiftName),
		GiftEmail:   strings.TrimSpace(item.GiftEmail),
		GiftMessage: strings.TrimSpace(item.GiftMessage),
	})
	if isToken {
		result.tokenTotal = result.tokenTotal.Add(tokenPrice.Mul(qty)).Round(2)
	} else {
		result.subtotal = result.subtotal.Add(unitPrice.Mul(qty)).Round(2)
	}
	if product.RequiresShipping {
		result.requiresShipping = true
	}
	result.stockConsume[product.ID] += item.Quantity
	return nil
}

func (s *OrderService) resolveTreeItem(item OrderItemInput, isToken bool, result *resolvedItems) error {
	if item.Quantity != 1 {
		return ErrInvalidQuantity
	}
	tree, err := s.treeRepo.GetByID(item.TargetID)
	if err != nil {
		return err
	}
	if tree == nil {
		return ErrTreeNotFound
	}
	// 同一棵树在单内只允许出现一次，否则确认时必然撞上重复认养
	if result.treeTargets[tree.ID] {
		return ErrTreeAlreadyAdopted
	}
	// 软校验，最终名额以确认时的行锁判定为准
	if tree.Status == constants.TreeStatusFullyAdopted {
		return ErrTreeExhausted
	}
	tokenPrice := tree.TokenPrice.Decimal
	if isToken && !tokenPrice.IsPositive() {
		return ErrTokenNotSupported
	}

	result.items = append(result.items, models.OrderItem{
		ItemType:    constants.ItemTypeTree,
		TargetID:    tree.ID,
		Name:        tree.Name,
		UnitPrice:   tree.PriceAmount,
		TokenPrice:  tree.TokenPrice,
		Quantity:    1,
		TotalPrice:  tree.PriceAmount,
		IsGift:      item.IsGift,
		GiftName:    strings.TrimSpace(item.GiftName),
		GiftEmail:   strings.TrimSpace(item.GiftEmail),
		GiftMessage: strings.TrimSpace(item.GiftMessage),
	})
	if isToken {
		result.tokenTotal = result.tokenTotal.Add(tokenPrice).Round(2)
	} else {
		result.subtotal = result.subtotal.Add(tree.PriceAmount.Decimal).Round(2)
	}
	result.treeTargets[tree.ID] = true
	return nil
}

func (s *OrderService) resolvePlotItem(item OrderItemInput, isToken bool, result *resolvedItems) error {
	plot, err := s.plotRepo.GetByID(item.TargetID)
	if err != nil {
		return err
	}
	if plot == nil {
		return ErrPlotNotFound
	}
	if item.Quantity > plot.TotalSlots {
		return ErrInvalidQuantity
	}
	// 软校验，槽位分配在确认时持锁完成
	if plot.Status == constants.PlotStatusFullyOccupied {
		return ErrPlotExhausted
	}
	// 单内累计需求不能超过当前剩余槽位，否则确认时必然分配失败
	if result.plotConsume[plot.ID]+item.Quantity > plot.TotalSlots-plot.OccupiedCount {
		return ErrPlotExhausted
	}
	tokenPrice := plot.TokenPrice.Decimal
	if isToken && !tokenPrice.IsPositive() {
		return ErrTokenNotSupported
	}

	qty := decimal.NewFromInt(int64(item.Quantity))
	result.items = append(result.items, models.OrderItem{
		ItemType:    constants.ItemTypePlot,
		TargetID:    plot.ID,
		Name:        plot.Name,
		UnitPrice:   plot.PriceAmount,
		TokenPrice:  plot.TokenPrice,
		Quantity:    item.Quantity,
		TotalPrice:  models.NewMoneyFromDecimal(plot.PriceAmount.Decimal.Mul(qty).Round(2)),
		IsGift:      item.IsGift,
		GiftName:    strings.TrimSpace(item.GiftName),
		GiftEmail:   strings.TrimSpace(item.GiftEmail),
		GiftMessage: strings.TrimSpace(item.GiftMessage),
	})
	if isToken {
		result.tokenTotal = result.tokenTotal.Add(tokenPrice.Mul(qty)).Round(2)
	} else {
		result.subtotal = result.subtotal.Add(plot.PriceAmount.Decimal.Mul(qty)).Round(2)
	}
	result.plotConsume[plot.ID] += item.Quantity
	return nil
}

// consumeStock 在事务内逐商品扣减库存（条件更新防超卖）
func (s *OrderService) consumeStock(tx *gorm.DB, consume map[uint]int) error {
	if len(consume) == 0 {
		return nil
	}
	repo := s.productRepo.WithTx(tx)
	for productID, quantity := range consume {
		rows, err := repo.ConsumeStock(productID, quantity)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrProductOutOfStock
		}
	}
	return nil
}

// releaseStock 在事务内回补库存
func (s *OrderService) releaseStock(tx *gorm.DB, items []models.OrderItem) {
	repo := s.productRepo.WithTx(tx)
	for _, item := range items {
		if item.ItemType != constants.ItemTypeProduct {
			continue
		}
		if _, err := repo.ReleaseStock(item.TargetID, item.Quantity); err != nil {
			logger.Warnw("order_stock_release_failed", "product_id", item.TargetID, "quantity", item.Quantity, "error", err)
		}
	}
}

// confirmResult 订单确认结果（事务提交后用于发送通知）
type confirmResult struct {
	order     *models.Order
	adoptions []models.Adoption
	milestone int
}

// Confirm 确认订单（支付成功回调入口，幂等）
func (s *OrderService) Confirm(orderID uint) (*models.Order, error) {
	var result *confirmResult
	if err := models.DB.Transaction(func(tx *gorm.DB) error {
		r, err := s.confirmInTx(tx, orderID, time.Now())
		if err != nil {
			return err
		}
		result = r
		return nil
	}); err != nil {
		return nil, err
	}
	s.notifyConfirmed(result)
	return result.order, nil
}

// confirmInTx 在事务内确认订单：占用优惠额度、分配认养、更新状态。
func (s *OrderService) confirmInTx(tx *gorm.DB, orderID uint, now time.Time) (*confirmResult, error) {
	orderRepo := s.orderRepo.WithTx(tx)
	order, err := orderRepo.GetByIDForUpdate(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusConfirmed {
		return &confirmResult{order: order}, nil
	}
	if !isTransitionAllowed(order.Status, constants.OrderStatusConfirmed) {
		return nil, ErrOrderStatusInvalid
	}

	// 优惠额度占用失败不阻断确认，订单保留已计算的优惠金额
	if order.DiscountCode != "" {
		if err := s.discountSvc.Consume(tx, order.DiscountCode, order.UserID, order.ID, order.Subtotal); err != nil {
			logger.Warnw("discount_consume_failed", "order_id", order.ID, "code", order.DiscountCode, "error", err)
		}
	}

	prevCount, err := s.adoptionRepo.WithTx(tx).CountByUser(order.UserID)
	if err != nil {
		return nil, err
	}

	var adoptions []models.Adoption
	for _, item := range order.Items {
		grant := s.grantForItem(order, item)
		switch item.ItemType {
		case constants.ItemTypeTree:
			adoption, err := s.adoptionSvc.AdoptTreeInTx(tx, item.TargetID, grant)
			if err != nil {
				return nil, err
			}
			adoptions = append(adoptions, *adoption)
		case constants.ItemTypePlot:
			for i := 0; i < item.Quantity; i++ {
				adoption, err := s.adoptionSvc.AllocatePlotSlotInTx(tx, item.TargetID, grant)
				if err != nil {
					return nil, err
				}
				adoptions = append(adoptions, *adoption)
			}
		}
	}

	updates := map[string]interface{}{
		"payment_status": constants.PaymentStatusPaid,
		"paid_at":        now,
		"expires_at":     nil,
	}
	if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusConfirmed, updates); err != nil {
		return nil, err
	}
	order.Status = constants.OrderStatusConfirmed
	order.PaymentStatus = constants.PaymentStatusPaid
	order.PaidAt = &now
	order.ExpiresAt = nil

	milestone := 0
	if order.UserID > 0 && len(adoptions) > 0 {
		milestone = s.crossedMilestone(prevCount, prevCount+int64(len(adoptions)))
	}
	return &confirmResult{order: order, adoptions: adoptions, milestone: milestone}, nil
}

// grantForItem 构造认养归属（赠送项以受赠人为认养人）
func (s *OrderService) grantForItem(order *models.Order, item models.OrderItem) AdoptionGrant {
	grant := AdoptionGrant{
		UserID:       order.UserID,
		OrderID:      order.ID,
		AdopterName:  order.CustomerName,
		AdopterEmail: order.CustomerEmail,
		GiftMessage:  item.GiftMessage,
	}
	if item.IsGift {
		if item.GiftName != "" {
			grant.AdopterName = item.GiftName
		}
		if item.GiftEmail != "" {
			grant.AdopterEmail = item.GiftEmail
		}
	}
	return grant
}

// crossedMilestone 返回本次新增认养越过的最高里程碑阈值，未越过返回 0
func (s *OrderService) crossedMilestone(before, after int64) int {
	crossed := 0
	for _, threshold := range s.milestones {
		t := int64(threshold)
		if before < t && t <= after && threshold > crossed {
			crossed = threshold
		}
	}
	return crossed
}

// notifyConfirmed 订单确认后的队列通知（失败仅记录，不影响订单结果）
func (s *OrderService) notifyConfirmed(result *confirmResult) {
	if result == nil || result.order == nil {
		return
	}
	order := result.order
	if err := s.queueClient.EnqueueOrderStatusEmail(queue.OrderStatusEmailPayload{OrderID: order.ID, Status: order.Status}); err != nil {
		logger.Warnw("order_status_email_enqueue_failed", "order_id", order.ID, "error", err)
	}
	for _, adoption := range result.adoptions {
		if err := s.queueClient.EnqueueAdoptionCertificate(queue.AdoptionCertificatePayload{AdoptionID: adoption.ID}); err != nil {
			logger.Warnw("adoption_certificate_enqueue_failed", "adoption_id", adoption.ID, "error", err)
		}
	}
	if result.milestone > 0 {
		if err := s.queueClient.EnqueueAdoptionMilestone(queue.AdoptionMilestonePayload{UserID: order.UserID, Milestone: result.milestone}); err != nil {
			logger.Warnw("adoption_milestone_enqueue_failed", "user_id", order.UserID, "milestone", result.milestone, "error", err)
		}
	}
}

// Cancel 取消待支付订单并回补库存
func (s *OrderService) Cancel(orderID uint, userID uint) (*models.Order, error) {
	if err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if userID > 0 && order.UserID != userID {
			return ErrOrderNotFound
		}
		return s.cancelInTx(tx, order, time.Now())
	}); err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(orderID)
}

// cancelInTx 在事务内取消订单（仅待支付可取消，重复取消幂等）
func (s *OrderService) cancelInTx(tx *gorm.DB, order *models.Order, now time.Time) error {
	if order.Status == constants.OrderStatusCancelled {
		return nil
	}
	if order.Status != constants.OrderStatusPending {
		return ErrOrderStatusInvalid
	}
	s.releaseStock(tx, order.Items)
	return s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusCancelled, map[string]interface{}{
		"canceled_at": now,
		"expires_at":  nil,
	})
}

// CancelIfExpired 惰性取消已过期的待支付订单，返回订单最新状态
func (s *OrderService) CancelIfExpired(order *models.Order) (*models.Order, error) {
	if order == nil {
		return nil, nil
	}
	if order.Status != constants.OrderStatusPending || order.ExpiresAt == nil || order.ExpiresAt.After(time.Now()) {
		return order, nil
	}

	if err := models.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		if locked == nil || locked.Status != constants.OrderStatusPending ||
			locked.ExpiresAt == nil || locked.ExpiresAt.After(time.Now()) {
			return nil
		}
		logger.Infow("order_expired_cancelled", "order_id", locked.ID, "order_no", locked.OrderNo)
		return s.cancelInTx(tx, locked, time.Now())
	}); err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(order.ID)
}

// CancelExpiredByID 超时取消任务入口
func (s *OrderService) CancelExpiredByID(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	_, err = s.CancelIfExpired(order)
	return err
}

// Refund 将订单置为已退款（积分订单同事务退回积分，幂等）
func (s *OrderService) Refund(orderID uint) (*models.Order, error) {
	if err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status == constants.OrderStatusRefunded {
			return nil
		}
		if !isTransitionAllowed(order.Status, constants.OrderStatusRefunded) {
			return ErrOrderStatusInvalid
		}
		if order.PaymentMethod == constants.PaymentMethodToken && order.UserID > 0 {
			if _, err := s.tokenSvc.RefundForOrder(tx, order.UserID, order.ID, order.TokenTotal); err != nil {
				return err
			}
		}
		return orderRepo.UpdateStatus(order.ID, constants.OrderStatusRefunded, map[string]interface{}{
			"payment_status": constants.PaymentStatusRefunded,
		})
	}); err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(orderID)
}

// StatusUpdateInput 管理端状态流转输入
type StatusUpdateInput struct {
	Status     string `json:"status"`
	TrackingNo string `json:"tracking_no"`
}

// UpdateStatusAdmin 管理端订单状态流转
func (s *OrderService) UpdateStatusAdmin(orderID uint, input StatusUpdateInput) (*models.Order, error) {
	switch input.Status {
	case constants.OrderStatusConfirmed:
		return s.Confirm(orderID)
	case constants.OrderStatusCancelled:
		return s.Cancel(orderID, 0)
	case constants.OrderStatusRefunded:
		return s.Refund(orderID)
	case constants.OrderStatusShipped, constants.OrderStatusDelivered:
		// 发货/签收仅推进状态
	default:
		return nil, ErrOrderStatusInvalid
	}

	if err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !isTransitionAllowed(order.Status, input.Status) {
			return ErrOrderStatusInvalid
		}
		updates := map[string]interface{}{}
		if input.Status == constants.OrderStatusShipped && strings.TrimSpace(input.TrackingNo) != "" {
			updates["tracking_no"] = strings.TrimSpace(input.TrackingNo)
		}
		return orderRepo.UpdateStatus(order.ID, input.Status, updates)
	}); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order != nil {
		if err := s.queueClient.EnqueueOrderStatusEmail(queue.OrderStatusEmailPayload{OrderID: order.ID, Status: order.Status}); err != nil {
			logger.Warnw("order_status_email_enqueue_failed", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

// Get 获取订单（待支付过期时惰性取消）
func (s *OrderService) Get(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.CancelIfExpired(order)
}

// GetForUser 获取用户自己的订单
func (s *OrderService) GetForUser(orderID uint, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.CancelIfExpired(order)
}

// GetByOrderNoAndEmail 游客凭订单号与邮箱查单
func (s *OrderService) GetByOrderNoAndEmail(orderNo, email string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(strings.TrimSpace(orderNo))
	if err != nil {
		return nil, err
	}
	if order == nil || !strings.EqualFold(order.CustomerEmail, strings.TrimSpace(email)) {
		return nil, ErrOrderNotFound
	}
	return s.CancelIfExpired(order)
}

// ListForUser 用户订单列表
func (s *OrderService) ListForUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(filter)
}

// ListAdmin 管理端订单列表
func (s *OrderService) ListAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}
