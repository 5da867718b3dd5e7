package service

import "errors"

// 校验类错误
var (
	ErrInvalidOrderItem  = errors.New("invalid order item")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidAddress    = errors.New("invalid shipping address")
	ErrInvalidPercent    = errors.New("invalid discount percent")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrGuestTokenPayment = errors.New("guest order cannot pay with tokens")
)

// 资源不存在类错误
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrVariantNotFound  = errors.New("product variant not found")
	ErrTreeNotFound     = errors.New("tree not found")
	ErrPlotNotFound     = errors.New("land plot not found")
	ErrDiscountNotFound = errors.New("discount not found")
	ErrAccountNotFound  = errors.New("token account not found")
)

// 优惠码类错误
var (
	ErrDiscountInactive     = errors.New("discount not active")
	ErrDiscountExpired      = errors.New("discount expired")
	ErrDiscountExhausted    = errors.New("discount usage limit reached")
	ErrDiscountAlreadyUsed  = errors.New("discount already used")
	ErrDiscountNotEntitled  = errors.New("discount bound to another user")
	ErrDiscountBelowMinimum = errors.New("order amount below discount minimum")
	ErrDiscountFiatOnly     = errors.New("discount applies to fiat payment only")
)

// 冲突类错误
var (
	ErrOrderStatusInvalid  = errors.New("order status transition not allowed")
	ErrOrderNotPayable     = errors.New("order not payable")
	ErrTreeExhausted       = errors.New("tree adoption capacity reached")
	ErrTreeAlreadyAdopted  = errors.New("tree already adopted by user")
	ErrPlotExhausted       = errors.New("land plot has no free slot")
	ErrProductOutOfStock   = errors.New("product out of stock")
	ErrProductInactive     = errors.New("product not available")
)

// 积分类错误
var (
	ErrTokenInsufficientBalance = errors.New("token balance insufficient")
	ErrTokenNotSupported        = errors.New("item cannot be paid with tokens")
)

// 支付类错误
var (
	ErrBelowMinimumPayable         = errors.New("total below gateway minimum payable amount")
	ErrPaymentGatewayNotConfigured = errors.New("payment gateway not configured")
	ErrPaymentGatewayRequestFailed = errors.New("payment gateway request failed")
)

// 认证类错误
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrUserDisabled       = errors.New("user disabled")
	ErrUserNotFound       = errors.New("user not found")
)

// 邮件类错误
var (
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)
