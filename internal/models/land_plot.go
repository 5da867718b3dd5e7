package models

import (
	"time"

	"gorm.io/gorm"
)

// LandPlot 可认养地块表
type LandPlot struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                     // 主键
	Name          string         `gorm:"not null" json:"name"`                                     // 地块名称
	Region        string         `gorm:"index" json:"region,omitempty"`                            // 所属区域
	Description   string         `gorm:"type:text" json:"description,omitempty"`                   // 描述
	PriceAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`       // 法币认养价格（每槽位）
	TokenPrice    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"token_price"` // 积分认养价格（每槽位）
	TotalSlots    int            `gorm:"not null;default:1" json:"total_slots"`                    // 槽位总数
	OccupiedCount int            `gorm:"not null;default:0" json:"occupied_count"`                 // 当前占用槽位数
	Images        StringArray    `gorm:"type:json" json:"images"`                                  // 图片数组
	Status        string         `gorm:"index;not null;default:'available'" json:"status"`         // 状态（available/fully_occupied）
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (LandPlot) TableName() string {
	return "land_plots"
}
