package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表
type OrderItem struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID     uint           `gorm:"index;not null" json:"order_id"`                           // 订单ID
	ItemType    string         `gorm:"type:varchar(20);index;not null" json:"item_type"`         // 项目类型（product/tree/plot）
	TargetID    uint           `gorm:"index;not null" json:"target_id"`                          // 目标ID（商品/树木/地块）
	VariantID   *uint          `gorm:"index" json:"variant_id,omitempty"`                        // 商品规格ID
	Name        string         `gorm:"not null" json:"name"`                                     // 名称快照
	UnitPrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`  // 单价快照
	TokenPrice  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"token_price"` // 积分单价快照
	Quantity    int            `gorm:"not null" json:"quantity"`                                 // 数量
	TotalPrice  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 小计
	IsGift      bool           `gorm:"not null;default:false" json:"is_gift"`                    // 是否赠送
	GiftName    string         `gorm:"type:varchar(100)" json:"gift_name,omitempty"`             // 受赠人姓名
	GiftEmail   string         `gorm:"type:varchar(200)" json:"gift_email,omitempty"`            // 受赠人邮箱
	GiftMessage string         `gorm:"type:varchar(500)" json:"gift_message,omitempty"`          // 赠言
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                                  // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
