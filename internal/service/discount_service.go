package service

import (
	"strings"
	"time"

	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/logger"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/repository"

	"gorm.io/gorm"
)

// DiscountService 优惠码服务
type DiscountService struct {
	discountRepo repository.DiscountRepository
}

// NewDiscountService 创建优惠码服务
func NewDiscountService(discountRepo repository.DiscountRepository) *DiscountService {
	return &DiscountService{discountRepo: discountRepo}
}

// DiscountValidation 校验通过后的折扣信息
type DiscountValidation struct {
	Discount    *models.Discount
	Percent     int
	MaxDiscount *models.Money
}

// NormalizeCode 归一化优惠码（去空格并统一大写）
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate 校验优惠码是否可用于指定订单金额与用户。
// 只做校验，不占用使用额度；额度在订单确认时通过 Consume 占用。
func (s *DiscountService) Validate(code string, orderAmount models.Money, userID uint) (*DiscountValidation, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, ErrDiscountNotFound
	}

	discount, err := s.discountRepo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	if discount == nil {
		return nil, ErrDiscountNotFound
	}

	if err := s.checkUsable(discount, userID, time.Now()); err != nil {
		return nil, err
	}

	if discount.MinOrderAmount.Decimal.IsPositive() &&
		orderAmount.Decimal.LessThan(discount.MinOrderAmount.Decimal) {
		return nil, ErrDiscountBelowMinimum
	}

	return &DiscountValidation{
		Discount:    discount,
		Percent:     discount.Percent,
		MaxDiscount: discount.MaxDiscount,
	}, nil
}

// checkUsable 基础可用性校验（状态、有效期、额度、用户绑定）
func (s *DiscountService) checkUsable(discount *models.Discount, userID uint, now time.Time) error {
	switch discount.Status {
	case constants.DiscountStatusActive:
	case constants.DiscountStatusUsed:
		return ErrDiscountExhausted
	case constants.DiscountStatusExpired:
		return ErrDiscountExpired
	default:
		return ErrDiscountInactive
	}

	if discount.ExpiresAt != nil && !now.Before(*discount.ExpiresAt) {
		// 状态滞后于时间时惰性标记过期
		if err := s.discountRepo.UpdateStatus(discount.ID, constants.DiscountStatusExpired); err != nil {
			logger.Warnw("discount_lazy_expire_failed", "discount_id", discount.ID, "error", err)
		}
		return ErrDiscountExpired
	}

	if discount.UsedCount >= discount.MaxUsage {
		return ErrDiscountExhausted
	}

	// 绑定用户的优惠码仅限该用户使用；多次额度同样归绑定用户
	if discount.UserID != nil && *discount.UserID != 0 && *discount.UserID != userID {
		return ErrDiscountNotEntitled
	}

	return nil
}

// Consume 在事务内占用一次使用额度并写入核销记录。
// 通过条件更新保证并发下同一额度只被一个订单占用，失败方收到 ErrDiscountAlreadyUsed。
func (s *DiscountService) Consume(tx *gorm.DB, code string, userID, orderID uint, amount models.Money) error {
	repo := s.discountRepo.WithTx(tx)

	normalized := NormalizeCode(code)
	discount, err := repo.GetByCodeForUpdate(normalized)
	if err != nil {
		return err
	}
	if discount == nil {
		return ErrDiscountNotFound
	}
	if err := s.checkUsable(discount, userID, time.Now()); err != nil {
		return err
	}

	affected, err := repo.ConsumeUsage(discount.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDiscountAlreadyUsed
	}

	if err := repo.CreateRedemption(&models.DiscountRedemption{
		DiscountID: discount.ID,
		UserID:     userID,
		OrderID:    orderID,
		Amount:     amount,
	}); err != nil {
		return err
	}

	// 额度耗尽时流转为 used
	if discount.UsedCount+1 >= discount.MaxUsage {
		if err := repo.UpdateStatus(discount.ID, constants.DiscountStatusUsed); err != nil {
			return err
		}
	}

	return nil
}

// DiscountCreateInput 创建优惠码入参
type DiscountCreateInput struct {
	Code           string
	Percent        int
	UserID         *uint
	MaxUsage       int
	MinOrderAmount models.Money
	MaxDiscount    *models.Money
	ExpiresAt      *time.Time
}

// Create 创建优惠码（管理端）
func (s *DiscountService) Create(input DiscountCreateInput) (*models.Discount, error) {
	if input.Percent <= 0 || input.Percent > 100 {
		return nil, ErrInvalidPercent
	}
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, ErrDiscountNotFound
	}
	maxUsage := input.MaxUsage
	if maxUsage <= 0 {
		maxUsage = 1
	}

	discount := &models.Discount{
		Code:           code,
		Percent:        input.Percent,
		UserID:         input.UserID,
		MaxUsage:       maxUsage,
		MinOrderAmount: input.MinOrderAmount,
		MaxDiscount:    input.MaxDiscount,
		ExpiresAt:      input.ExpiresAt,
		Status:         constants.DiscountStatusActive,
	}
	if err := s.discountRepo.Create(discount); err != nil {
		return nil, err
	}
	return discount, nil
}

// List 优惠码列表（管理端）
func (s *DiscountService) List(filter repository.DiscountListFilter) ([]models.Discount, int64, error) {
	return s.discountRepo.List(filter)
}

// Cancel 作废优惠码（管理端）
func (s *DiscountService) Cancel(id uint) error {
	discount, err := s.discountRepo.GetByID(id)
	if err != nil {
		return err
	}
	if discount == nil {
		return ErrDiscountNotFound
	}
	return s.discountRepo.UpdateStatus(id, constants.DiscountStatusCancelled)
}
