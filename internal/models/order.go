package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                         // 主键
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`                         // 订单编号
	UserID          uint           `gorm:"index;not null" json:"user_id,omitempty"`                      // 用户ID（游客订单为 0）
	CustomerName    string         `gorm:"type:varchar(100)" json:"customer_name"`                       // 客户姓名快照
	CustomerEmail   string         `gorm:"index" json:"customer_email"`                                  // 客户邮箱快照
	CustomerPhone   string         `gorm:"type:varchar(40)" json:"customer_phone,omitempty"`             // 客户电话快照
	ShippingAddress JSON           `gorm:"type:json" json:"shipping_address,omitempty"`                  // 收货地址快照
	Status          string         `gorm:"index;not null" json:"status"`                                 // 订单状态
	Currency        string         `gorm:"not null" json:"currency"`                                     // 币种
	Subtotal        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`        // 商品小计
	ShippingFee     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_fee"`    // 运费
	DiscountAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	TaxAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"tax_amount"`      // 税额
	TotalAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 实付金额
	TokenTotal      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"token_total"`     // 积分支付总额
	DiscountCode    string         `gorm:"index" json:"discount_code,omitempty"`                         // 优惠码
	DiscountID      *uint          `gorm:"index" json:"discount_id,omitempty"`                           // 优惠ID
	PaymentMethod   string         `gorm:"type:varchar(20);not null" json:"payment_method"`              // 支付方式（fiat/token）
	PaymentStatus   string         `gorm:"index;not null;default:'unpaid'" json:"payment_status"`        // 支付状态
	PaymentIntentID string         `gorm:"index" json:"payment_intent_id,omitempty"`                     // 支付网关意向ID
	TrackingNo      string         `gorm:"type:varchar(100)" json:"tracking_no,omitempty"`               // 物流单号
	Notes           string         `gorm:"type:varchar(500)" json:"notes,omitempty"`                     // 备注
	ClientIP        string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                  // 下单客户端IP
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at"`                                      // 待支付过期时间
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`                                         // 支付时间
	CanceledAt      *time.Time     `gorm:"index" json:"canceled_at"`                                     // 取消时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
	// 关联
	Adoptions []Adoption `gorm:"foreignKey:OrderID" json:"adoptions,omitempty"` // 本单产生的认养记录
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
