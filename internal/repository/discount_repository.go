package repository

import (
	"errors"

	"github.com/sylvan-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DiscountRepository 优惠码数据访问接口
type DiscountRepository interface {
	GetByID(id uint) (*models.Discount, error)
	GetByCode(code string) (*models.Discount, error)
	GetByCodeForUpdate(code string) (*models.Discount, error)
	Create(discount *models.Discount) error
	Update(discount *models.Discount) error
	List(filter DiscountListFilter) ([]models.Discount, int64, error)
	ConsumeUsage(id uint) (int64, error)
	UpdateStatus(id uint, status string) error
	CreateRedemption(redemption *models.DiscountRedemption) error
	CountRedemptionsByUser(discountID, userID uint) (int64, error)
	GetRedemptionByOrderID(orderID uint) (*models.DiscountRedemption, error)
	WithTx(tx *gorm.DB) *GormDiscountRepository
}

// GormDiscountRepository GORM 实现
type GormDiscountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository 创建优惠码仓库
func NewDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDiscountRepository) WithTx(tx *gorm.DB) *GormDiscountRepository {
	if tx == nil {
		return r
	}
	return &GormDiscountRepository{db: tx}
}

// GetByID 根据 ID 获取优惠码
func (r *GormDiscountRepository) GetByID(id uint) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.First(&discount, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &discount, nil
}

// GetByCode 根据优惠码获取记录
func (r *GormDiscountRepository) GetByCode(code string) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.Where("code = ?", code).First(&discount).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &discount, nil
}

// GetByCodeForUpdate 根据优惠码获取记录并加行锁（事务内使用）
func (r *GormDiscountRepository) GetByCodeForUpdate(code string) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).First(&discount).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &discount, nil
}

// Create 创建优惠码
func (r *GormDiscountRepository) Create(discount *models.Discount) error {
	return r.db.Create(discount).Error
}

// Update 更新优惠码
func (r *GormDiscountRepository) Update(discount *models.Discount) error {
	return r.db.Save(discount).Error
}

// List 优惠码列表
func (r *GormDiscountRepository) List(filter DiscountListFilter) ([]models.Discount, int64, error) {
	var discounts []models.Discount
	query := r.db.Model(&models.Discount{})

	if filter.Code != "" {
		query = query.Where("code = ?", filter.Code)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("id desc").Find(&discounts).Error; err != nil {
		return nil, 0, err
	}
	return discounts, total, nil
}

// ConsumeUsage 占用一次使用额度（条件更新，返回受影响行数；0 表示额度已耗尽）
func (r *GormDiscountRepository) ConsumeUsage(id uint) (int64, error) {
	result := r.db.Model(&models.Discount{}).
		Where("id = ?", id).
		Where("used_count < max_usage").
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	return result.RowsAffected, result.Error
}

// UpdateStatus 更新优惠码状态
func (r *GormDiscountRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Discount{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// CreateRedemption 创建核销记录
func (r *GormDiscountRepository) CreateRedemption(redemption *models.DiscountRedemption) error {
	return r.db.Create(redemption).Error
}

// CountRedemptionsByUser 统计用户对某优惠码的核销次数
func (r *GormDiscountRepository) CountRedemptionsByUser(discountID, userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.DiscountRedemption{}).
		Where("discount_id = ? AND user_id = ?", discountID, userID).
		Count(&count).Error
	return count, err
}

// GetRedemptionByOrderID 根据订单 ID 获取核销记录
func (r *GormDiscountRepository) GetRedemptionByOrderID(orderID uint) (*models.DiscountRedemption, error) {
	var redemption models.DiscountRedemption
	if err := r.db.Where("order_id = ?", orderID).First(&redemption).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}
