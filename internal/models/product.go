package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 实物商品表
type Product struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                     // 主键
	Slug            string         `gorm:"uniqueIndex;not null" json:"slug"`                         // 唯一标识
	Name            string         `gorm:"not null" json:"name"`                                     // 商品名称
	Description     string         `gorm:"type:text" json:"description,omitempty"`                   // 商品描述
	PriceAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`       // 法币价格
	TokenPrice      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"token_price"` // 积分价格（0 表示不支持积分支付）
	Images          StringArray    `gorm:"type:json" json:"images"`                                  // 图片数组
	Tags            StringArray    `gorm:"type:json" json:"tags"`                                    // 标签数组
	StockTotal      int            `gorm:"not null;default:0" json:"stock_total"`                    // 库存总量（0 表示不限库存）
	StockSold       int            `gorm:"not null;default:0" json:"stock_sold"`                     // 已售量
	RequiresShipping bool          `gorm:"not null;default:true" json:"requires_shipping"`           // 是否需要物流
	IsActive        bool           `gorm:"default:true;index" json:"is_active"`                      // 是否上架
	SortOrder       int            `gorm:"default:0;index" json:"sort_order"`                        // 排序权重
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间

	// 关联
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"` // 规格列表
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// ProductVariant 商品规格表
type ProductVariant struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                     // 主键
	ProductID   uint           `gorm:"index;not null" json:"product_id"`                         // 商品ID
	Name        string         `gorm:"not null" json:"name"`                                     // 规格名称
	PriceAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`       // 规格价格
	TokenPrice  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"token_price"` // 规格积分价格
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`                      // 是否可用
	SortOrder   int            `gorm:"default:0;index" json:"sort_order"`                        // 排序权重
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (ProductVariant) TableName() string {
	return "product_variants"
}
