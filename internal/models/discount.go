package models

import (
	"time"

	"gorm.io/gorm"
)

// Discount 优惠码表
type Discount struct {
	ID             uint           `gorm:"primarykey" json:"id"`                              // 主键
	Code           string         `gorm:"uniqueIndex;not null" json:"code"`                  // 优惠码（统一大写）
	Percent        int            `gorm:"not null" json:"percent"`                           // 折扣百分比（1-100）
	UserID         *uint          `gorm:"index" json:"user_id,omitempty"`                    // 绑定用户ID（空表示不限用户）
	MaxUsage       int            `gorm:"not null;default:1" json:"max_usage"`               // 最大使用次数
	UsedCount      int            `gorm:"not null;default:0" json:"used_count"`              // 已使用次数
	MinOrderAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_order_amount"` // 最低订单金额
	MaxDiscount    *Money         `gorm:"type:decimal(20,2)" json:"max_discount,omitempty"`  // 单次最大优惠金额（空表示不限）
	ExpiresAt      *time.Time     `gorm:"index" json:"expires_at,omitempty"`                 // 过期时间（空表示长期有效）
	Status         string         `gorm:"index;not null;default:'active'" json:"status"`     // 状态（active/used/expired/cancelled）
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                        // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间
}

// TableName 指定表名
func (Discount) TableName() string {
	return "discounts"
}

// DiscountRedemption 优惠码核销记录表
type DiscountRedemption struct {
	ID         uint      `gorm:"primarykey" json:"id"`                               // 主键
	DiscountID uint      `gorm:"index;not null" json:"discount_id"`                  // 优惠ID
	UserID     uint      `gorm:"index;not null" json:"user_id"`                      // 用户ID（游客订单为 0）
	OrderID    uint      `gorm:"uniqueIndex;not null" json:"order_id"`               // 核销订单ID
	Amount     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 本次优惠金额
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                            // 创建时间
}

// TableName 指定表名
func (DiscountRedemption) TableName() string {
	return "discount_redemptions"
}
