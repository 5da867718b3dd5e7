package models

import (
	"time"

	"gorm.io/gorm"
)

// Adoption 认养记录表
type Adoption struct {
	ID            uint           `gorm:"primarykey" json:"id"`                           // 主键
	UserID        uint           `gorm:"index;not null" json:"user_id"`                  // 用户ID（游客订单为 0）
	OrderID       uint           `gorm:"index;not null" json:"order_id"`                 // 来源订单ID
	TreeID        *uint          `gorm:"index" json:"tree_id,omitempty"`                 // 树木ID（树木认养）
	PlotID        *uint          `gorm:"index" json:"plot_id,omitempty"`                 // 地块ID（地块认养）
	SlotNo        int            `gorm:"index;not null;default:0" json:"slot_no"`        // 槽位编号（仅地块认养，从 1 开始）
	AdopterName   string         `gorm:"type:varchar(100)" json:"adopter_name"`          // 认养人姓名（证书署名）
	AdopterEmail  string         `gorm:"type:varchar(200)" json:"adopter_email"`         // 证书送达邮箱
	GiftMessage   string         `gorm:"type:varchar(500)" json:"gift_message,omitempty"` // 赠言
	Status        string         `gorm:"index;not null;default:'active'" json:"status"`  // 状态（active/expired）
	CertifiedAt   *time.Time     `json:"certified_at,omitempty"`                         // 证书发送时间
	ExpiresAt     time.Time      `gorm:"index;not null" json:"expires_at"`               // 到期时间（认养起一年）
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                     // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                 // 软删除时间
}

// TableName 指定表名
func (Adoption) TableName() string {
	return "adoptions"
}
