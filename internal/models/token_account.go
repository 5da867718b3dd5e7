package models

import (
	"time"

	"gorm.io/gorm"
)

// TokenAccount 积分账户表
type TokenAccount struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                 // 主键
	UserID    uint           `gorm:"uniqueIndex;not null" json:"user_id"`                  // 用户ID
	Balance   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance"` // 当前余额
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                           // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间
}

// TableName 指定表名
func (TokenAccount) TableName() string {
	return "token_accounts"
}

// TokenTransaction 积分流水表（只增不改）
type TokenTransaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                        // 主键
	UserID        uint      `gorm:"index;not null" json:"user_id"`                               // 用户ID
	OrderID       *uint     `gorm:"index" json:"order_id,omitempty"`                             // 关联订单ID
	Type          string    `gorm:"index;not null" json:"type"`                                  // 流水类型
	Amount        Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`         // 变动金额（带符号）
	BalanceBefore Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_before"` // 变动前余额
	BalanceAfter  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_after"`  // 变动后余额
	Reference     string    `gorm:"uniqueIndex;not null" json:"reference"`                       // 幂等引用号
	Remark        string    `gorm:"type:varchar(200)" json:"remark,omitempty"`                   // 备注
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                     // 创建时间
}

// TableName 指定表名
func (TokenTransaction) TableName() string {
	return "token_transactions"
}
