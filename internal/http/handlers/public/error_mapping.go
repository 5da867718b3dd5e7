package public

import (
	"errors"

	"github.com/sylvan-next/internal/http/response"
	"github.com/sylvan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var orderCommonErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidOrderItem, code: response.CodeBadRequest, key: "error.invalid_request"},
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest, key: "error.quantity_invalid"},
	{target: service.ErrInvalidAddress, code: response.CodeBadRequest, key: "error.address_invalid"},
	{target: service.ErrProductNotFound, code: response.CodeBadRequest, key: "error.product_not_found"},
	{target: service.ErrVariantNotFound, code: response.CodeBadRequest, key: "error.product_not_found"},
	{target: service.ErrProductInactive, code: response.CodeBadRequest, key: "error.product_unavailable"},
	{target: service.ErrProductOutOfStock, code: response.CodeBadRequest, key: "error.product_out_of_stock"},
	{target: service.ErrTreeNotFound, code: response.CodeBadRequest, key: "error.tree_not_found"},
	{target: service.ErrTreeExhausted, code: response.CodeBadRequest, key: "error.tree_exhausted"},
	{target: service.ErrTreeAlreadyAdopted, code: response.CodeBadRequest, key: "error.tree_already_adopted"},
	{target: service.ErrPlotNotFound, code: response.CodeBadRequest, key: "error.plot_not_found"},
	{target: service.ErrPlotExhausted, code: response.CodeBadRequest, key: "error.plot_exhausted"},
	{target: service.ErrDiscountNotFound, code: response.CodeBadRequest, key: "error.discount_not_found"},
	{target: service.ErrDiscountInactive, code: response.CodeBadRequest, key: "error.discount_unusable"},
	{target: service.ErrDiscountExpired, code: response.CodeBadRequest, key: "error.discount_unusable"},
	{target: service.ErrDiscountExhausted, code: response.CodeBadRequest, key: "error.discount_unusable"},
	{target: service.ErrDiscountAlreadyUsed, code: response.CodeBadRequest, key: "error.discount_unusable"},
	{target: service.ErrDiscountNotEntitled, code: response.CodeBadRequest, key: "error.discount_unusable"},
	{target: service.ErrDiscountBelowMinimum, code: response.CodeBadRequest, key: "error.discount_below_minimum"},
	{target: service.ErrDiscountFiatOnly, code: response.CodeBadRequest, key: "error.discount_fiat_only"},
	{target: service.ErrOrderNotPayable, code: response.CodeBadRequest, key: "error.order_not_payable"},
}

var userOrderExtraErrorRules = []mappedHandlerError{
	{target: service.ErrTokenInsufficientBalance, code: response.CodeBadRequest, key: "error.token_balance_insufficient"},
	{target: service.ErrTokenNotSupported, code: response.CodeBadRequest, key: "error.token_not_supported"},
}

var guestOrderExtraErrorRules = []mappedHandlerError{
	{target: service.ErrGuestTokenPayment, code: response.CodeBadRequest, key: "error.guest_token_payment"},
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, key: "error.email_invalid"},
}

var paymentCreateErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderNotPayable, code: response.CodeBadRequest, key: "error.order_not_payable"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, key: "error.order_status_invalid"},
	{target: service.ErrBelowMinimumPayable, code: response.CodeBadRequest, key: "error.below_minimum_payable"},
	{target: service.ErrPaymentGatewayNotConfigured, code: response.CodeInternal, key: "error.payment_gateway_unavailable"},
	{target: service.ErrPaymentGatewayRequestFailed, code: response.CodeInternal, key: "error.payment_gateway_unavailable"},
}

var paymentSyncErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, key: "error.order_status_invalid"},
	{target: service.ErrPaymentGatewayNotConfigured, code: response.CodeInternal, key: "error.payment_gateway_unavailable"},
	{target: service.ErrPaymentGatewayRequestFailed, code: response.CodeInternal, key: "error.payment_gateway_unavailable"},
}

func respondUserOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(orderCommonErrorRules, userOrderExtraErrorRules), response.CodeInternal, "error.order_create_failed")
}

func respondGuestOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(orderCommonErrorRules, guestOrderExtraErrorRules), response.CodeInternal, "error.order_create_failed")
}

func respondPaymentCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCreateErrorRules, response.CodeInternal, "error.payment_create_failed")
}

func respondPaymentSyncError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentSyncErrorRules, response.CodeInternal, "error.payment_sync_failed")
}
