package models

import (
	"time"

	"gorm.io/gorm"
)

// Tree 可认养树木表
type Tree struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                     // 主键
	Name         string         `gorm:"not null" json:"name"`                                     // 树木名称
	Species      string         `gorm:"index;not null" json:"species"`                            // 树种
	Location     string         `gorm:"type:varchar(200)" json:"location,omitempty"`              // 所在位置
	Description  string         `gorm:"type:text" json:"description,omitempty"`                   // 描述
	PriceAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`       // 法币认养价格
	TokenPrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"token_price"` // 积分认养价格
	AdopterCap   int            `gorm:"not null;default:1" json:"adopter_cap"`                    // 认养名额上限
	AdoptedCount int            `gorm:"not null;default:0" json:"adopted_count"`                  // 当前有效认养数
	Images       StringArray    `gorm:"type:json" json:"images"`                                  // 图片数组
	Status       string         `gorm:"index;not null;default:'available'" json:"status"`         // 状态（available/fully_adopted）
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (Tree) TableName() string {
	return "trees"
}
