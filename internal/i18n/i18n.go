package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleZH = "zh-CN"
	LocaleTW = "zh-TW"
	LocaleEN = "en"
)

// DefaultLocale 默认语言
const DefaultLocale = LocaleZH

// ResolveLocale 解析请求语言：优先 query lang，其次 Accept-Language。
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if lang := normalizeLocale(c.Query("lang")); lang != "" {
		return lang
	}
	header := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(header, ",") {
		if idx := strings.Index(part, ";"); idx >= 0 {
			part = part[:idx]
		}
		if lang := normalizeLocale(part); lang != "" {
			return lang
		}
	}
	return DefaultLocale
}

func normalizeLocale(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "zh-tw"), strings.HasPrefix(raw, "zh-hant"), strings.HasPrefix(raw, "zh-hk"):
		return LocaleTW
	case strings.HasPrefix(raw, "zh"):
		return LocaleZH
	case strings.HasPrefix(raw, "en"):
		return LocaleEN
	default:
		return ""
	}
}

// T 按语言取文案，未命中时回退默认语言，再回退 key 本身。
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if locale == LocaleTW {
		if msg, ok := messages[LocaleZH][key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 按语言取带参数文案。
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

var messages = map[string]map[string]string{
	LocaleZH: {
		"error.invalid_request":             "请求参数无效",
		"error.unauthorized":                "请先登录",
		"error.forbidden":                   "没有权限执行此操作",
		"error.jwt_secret_missing":          "服务端认证配置缺失",
		"error.auth_header_missing":         "缺少认证信息",
		"error.auth_header_invalid":         "认证信息格式无效",
		"error.token_invalid":               "登录状态无效，请重新登录",
		"error.token_revoked":               "登录状态已失效，请重新登录",
		"error.user_disabled":               "账号已被禁用",
		"error.internal":                    "服务器开小差了，请稍后再试",
		"error.order_not_found":             "订单不存在",
		"error.order_not_payable":           "订单当前不可支付",
		"error.order_status_invalid":        "订单状态不允许此操作",
		"error.product_not_found":           "商品不存在",
		"error.product_unavailable":         "商品已下架",
		"error.product_out_of_stock":        "商品库存不足",
		"error.tree_not_found":              "树木不存在",
		"error.tree_exhausted":              "该树木认养名额已满",
		"error.tree_already_adopted":        "您已认养过这棵树",
		"error.plot_not_found":              "地块不存在",
		"error.plot_exhausted":              "该地块已无空闲位置",
		"error.discount_not_found":          "优惠码不存在",
		"error.discount_unusable":           "优惠码不可用",
		"error.discount_below_minimum":      "订单金额未达到优惠码使用门槛",
		"error.discount_fiat_only":          "积分支付订单不支持优惠码",
		"error.token_balance_insufficient":  "积分余额不足",
		"error.token_not_supported":         "该商品不支持积分支付",
		"error.guest_token_payment":         "积分支付需要先登录",
		"error.below_minimum_payable":       "订单金额低于最低可支付金额",
		"error.payment_gateway_unavailable": "支付服务暂不可用，请稍后再试",
		"error.account_not_found":           "积分账户不存在",
		"error.invalid_credentials":         "邮箱或密码错误",
		"error.email_taken":                 "该邮箱已注册",
		"error.password_too_short":          "密码长度不足",
		"error.email_invalid":               "邮箱格式无效",
		"error.user_not_found":              "用户不存在",
		"error.user_id_invalid":             "用户标识无效",
		"error.user_id_type_invalid":        "用户标识类型无效",
		"error.id_invalid":                  "资源 ID 无效",
		"error.quantity_invalid":            "数量无效",
		"error.address_invalid":             "收货地址无效",
		"error.amount_invalid":              "金额无效",
		"error.discount_percent_invalid":    "折扣比例无效",
		"error.register_failed":             "注册失败，请稍后再试",
		"error.login_failed":                "登录失败，请稍后再试",
		"error.user_fetch_failed":           "获取用户信息失败",
		"error.order_create_failed":         "创建订单失败",
		"error.order_fetch_failed":          "获取订单失败",
		"error.order_cancel_failed":         "取消订单失败",
		"error.order_update_failed":         "更新订单失败",
		"error.order_refund_failed":         "订单退款失败",
		"error.payment_create_failed":       "创建支付失败",
		"error.payment_sync_failed":         "同步支付状态失败",
		"error.payment_webhook_invalid":     "回调验签失败",
		"error.payment_webhook_failed":      "处理支付回调失败",
		"error.tree_fetch_failed":           "获取树木信息失败",
		"error.plot_fetch_failed":           "获取地块信息失败",
		"error.product_fetch_failed":        "获取商品信息失败",
		"error.adoption_fetch_failed":       "获取认养记录失败",
		"error.token_account_fetch_failed":  "获取积分账户失败",
		"error.token_txn_fetch_failed":      "获取积分流水失败",
		"error.token_adjust_failed":         "调整积分失败",
		"error.discount_create_failed":      "创建优惠码失败",
		"error.discount_fetch_failed":       "获取优惠码失败",
		"error.discount_cancel_failed":      "作废优惠码失败",

		"email.order_status.subject":        "订单 %s 状态更新",
		"email.order_status.body_paid":      "您的订单 %s 已支付成功，感谢支持绿色家园。",
		"email.order_status.body_shipped":   "您的订单 %s 已发货，物流单号：%s。",
		"email.order_status.body_delivered": "您的订单 %s 已送达，欢迎再次光临。",
		"email.order_status.body_cancelled": "您的订单 %s 已取消，如有疑问请联系客服。",
		"email.certificate.subject":         "您的认养证书已生成",
		"email.certificate.body":            "%s 您好，您对「%s」的认养已生效，有效期至 %s。感谢您守护这片绿色。",
		"email.milestone.subject":           "认养里程碑达成",
		"email.milestone.body":              "恭喜！您的累计认养数已达到 %d，感谢您持续的贡献。",
		"email.expiry_reminder.subject":     "您的认养即将到期",
		"email.expiry_reminder.body":        "%s 您好，您对「%s」的认养将于 %s 到期，欢迎续养，继续守护这片绿色。",
	},
	LocaleEN: {
		"error.invalid_request":             "Invalid request",
		"error.unauthorized":                "Please sign in first",
		"error.forbidden":                   "You are not allowed to perform this action",
		"error.jwt_secret_missing":          "Server auth configuration missing",
		"error.auth_header_missing":         "Missing authorization header",
		"error.auth_header_invalid":         "Invalid authorization header",
		"error.token_invalid":               "Session invalid, please sign in again",
		"error.token_revoked":               "Session expired, please sign in again",
		"error.user_disabled":               "Account disabled",
		"error.internal":                    "Something went wrong, please try again later",
		"error.order_not_found":             "Order not found",
		"error.order_not_payable":           "Order is not payable",
		"error.order_status_invalid":        "Order status does not allow this operation",
		"error.product_not_found":           "Product not found",
		"error.product_unavailable":         "Product is unavailable",
		"error.product_out_of_stock":        "Product is out of stock",
		"error.tree_not_found":              "Tree not found",
		"error.tree_exhausted":              "This tree has no adoption openings left",
		"error.tree_already_adopted":        "You have already adopted this tree",
		"error.plot_not_found":              "Land plot not found",
		"error.plot_exhausted":              "This plot has no free slots",
		"error.discount_not_found":          "Discount code not found",
		"error.discount_unusable":           "Discount code cannot be used",
		"error.discount_below_minimum":      "Order amount is below the discount minimum",
		"error.discount_fiat_only":          "Discount codes do not apply to token payments",
		"error.token_balance_insufficient":  "Insufficient token balance",
		"error.token_not_supported":         "This item cannot be paid with tokens",
		"error.guest_token_payment":         "Please sign in to pay with tokens",
		"error.below_minimum_payable":       "Order total is below the minimum payable amount",
		"error.payment_gateway_unavailable": "Payment service unavailable, please try again later",
		"error.account_not_found":           "Token account not found",
		"error.invalid_credentials":         "Incorrect email or password",
		"error.email_taken":                 "This email is already registered",
		"error.password_too_short":          "Password is too short",
		"error.email_invalid":               "Invalid email address",
		"error.user_not_found":              "User not found",
		"error.user_id_invalid":             "Invalid user identity",
		"error.user_id_type_invalid":        "Invalid user identity type",
		"error.id_invalid":                  "Invalid resource ID",
		"error.quantity_invalid":            "Invalid quantity",
		"error.address_invalid":             "Invalid shipping address",
		"error.amount_invalid":              "Invalid amount",
		"error.discount_percent_invalid":    "Invalid discount percent",
		"error.register_failed":             "Registration failed, please try again later",
		"error.login_failed":                "Login failed, please try again later",
		"error.user_fetch_failed":           "Failed to load user profile",
		"error.order_create_failed":         "Failed to create order",
		"error.order_fetch_failed":          "Failed to load order",
		"error.order_cancel_failed":         "Failed to cancel order",
		"error.order_update_failed":         "Failed to update order",
		"error.order_refund_failed":         "Failed to refund order",
		"error.payment_create_failed":       "Failed to create payment",
		"error.payment_sync_failed":         "Failed to sync payment status",
		"error.payment_webhook_invalid":     "Webhook signature verification failed",
		"error.payment_webhook_failed":      "Failed to process payment webhook",
		"error.tree_fetch_failed":           "Failed to load trees",
		"error.plot_fetch_failed":           "Failed to load land plots",
		"error.product_fetch_failed":        "Failed to load products",
		"error.adoption_fetch_failed":       "Failed to load adoptions",
		"error.token_account_fetch_failed":  "Failed to load token account",
		"error.token_txn_fetch_failed":      "Failed to load token transactions",
		"error.token_adjust_failed":         "Failed to adjust tokens",
		"error.discount_create_failed":      "Failed to create discount",
		"error.discount_fetch_failed":       "Failed to load discounts",
		"error.discount_cancel_failed":      "Failed to cancel discount",

		"email.order_status.subject":        "Order %s status update",
		"email.order_status.body_paid":      "Your order %s has been paid. Thank you for supporting the forest.",
		"email.order_status.body_shipped":   "Your order %s has shipped. Tracking number: %s.",
		"email.order_status.body_delivered": "Your order %s has been delivered. See you next time.",
		"email.order_status.body_cancelled": "Your order %s has been cancelled. Contact support if you have questions.",
		"email.certificate.subject":         "Your adoption certificate is ready",
		"email.certificate.body":            "Hi %s, your adoption of %s is now active until %s. Thank you for protecting the forest.",
		"email.milestone.subject":           "Adoption milestone reached",
		"email.milestone.body":              "Congratulations! You have reached %d adoptions in total. Thank you for your continued support.",
		"email.expiry_reminder.subject":     "Your adoption is about to expire",
		"email.expiry_reminder.body":        "Hi %s, your adoption of %s expires on %s. Renew it to keep protecting the forest.",
	},
	LocaleTW: {
		"error.invalid_request":      "請求參數無效",
		"error.unauthorized":         "請先登入",
		"error.token_invalid":        "登入狀態無效，請重新登入",
		"error.order_not_found":      "訂單不存在",
		"error.discount_not_found":   "優惠碼不存在",
		"email.order_status.subject": "訂單 %s 狀態更新",
	},
}
