package constants

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// 支付状态常量
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// 支付方式常量
const (
	PaymentMethodFiat  = "fiat"
	PaymentMethodToken = "token"
)

// 订单项类型常量
const (
	ItemTypeProduct = "product"
	ItemTypeTree    = "tree"
	ItemTypePlot    = "plot"
)

// 认养状态常量
const (
	AdoptionStatusActive  = "active"
	AdoptionStatusExpired = "expired"
)

// 树木状态常量
const (
	TreeStatusAvailable    = "available"
	TreeStatusFullyAdopted = "fully_adopted"
)

// 地块状态常量
const (
	PlotStatusAvailable     = "available"
	PlotStatusFullyOccupied = "fully_occupied"
)

// 优惠码状态常量
const (
	DiscountStatusActive    = "active"
	DiscountStatusUsed      = "used"
	DiscountStatusExpired   = "expired"
	DiscountStatusCancelled = "cancelled"
)

// 积分流水类型常量
const (
	TokenTxnTypeOrderDebit  = "order_debit"
	TokenTxnTypeOrderRefund = "order_refund"
	TokenTxnTypeReward      = "reward"
	TokenTxnTypeAdminAdjust = "admin_adjust"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 认养期限（天）
const AdoptionTermDays = 365

// 队列名称常量
const (
	QueueDefault = "default"
)

// 队列任务类型常量
const (
	TaskOrderStatusEmail       = "order:status_email"
	TaskAdoptionCertificate    = "adoption:certificate"
	TaskAdoptionMilestone      = "adoption:milestone"
	TaskOrderTimeoutCancel     = "order:timeout_cancel"
	TaskAdoptionExpiryReminder = "adoption:expiry_reminder"
)

