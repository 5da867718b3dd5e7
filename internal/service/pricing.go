package service

import (
	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/models"

	"github.com/shopspring/decimal"
)

// PricingEngine 订单计价引擎（纯计算，不依赖数据库）
type PricingEngine struct {
	currency              string
	shippingFee           decimal.Decimal
	freeShippingThreshold decimal.Decimal
	taxRate               decimal.Decimal
	minPayable            decimal.Decimal
}

// PricingInput 计价输入
type PricingInput struct {
	Subtotal         models.Money // 商品小计（已按单价×数量累加）
	RequiresShipping bool         // 是否包含需要物流的商品
	PaymentMethod    string       // 支付方式（fiat/token）
	DiscountPercent  int          // 折扣百分比（0 表示无折扣）
	MaxDiscount      *models.Money
}

// PricingResult 计价结果
type PricingResult struct {
	Subtotal       models.Money `json:"subtotal"`
	ShippingFee    models.Money `json:"shipping_fee"`
	DiscountAmount models.Money `json:"discount_amount"`
	TaxAmount      models.Money `json:"tax_amount"`
	TotalAmount    models.Money `json:"total_amount"`
}

// NewPricingEngine 从配置创建计价引擎
func NewPricingEngine(cfg config.PricingConfig) *PricingEngine {
	return &PricingEngine{
		currency:              cfg.Currency,
		shippingFee:           parseDecimalOrZero(cfg.ShippingFee),
		freeShippingThreshold: parseDecimalOrZero(cfg.FreeShippingThreshold),
		taxRate:               decimal.NewFromFloat(cfg.TaxRate),
		minPayable:            parseDecimalOrZero(cfg.MinPayableAmount),
	}
}

func parseDecimalOrZero(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Currency 默认币种
func (e *PricingEngine) Currency() string {
	return e.currency
}

// MinPayable 网关最低可支付金额
func (e *PricingEngine) MinPayable() models.Money {
	return models.NewMoneyFromDecimal(e.minPayable)
}

// ComputeTotals 计算订单各项金额。
// 规则：折扣作用于「小计 + 运费」的税前金额；税基为折后金额；
// 合计 = max(0, 小计 + 运费 - 折扣) + 税。
// 法币订单折扣会被限制在网关最低可支付金额之上（完全折免除外）。
func (e *PricingEngine) ComputeTotals(input PricingInput) (PricingResult, error) {
	subtotal := input.Subtotal.Decimal.Round(2)
	if subtotal.IsNegative() {
		return PricingResult{}, ErrInvalidAmount
	}

	shipping := e.shippingFeeFor(subtotal, input)
	preTax := subtotal.Add(shipping)

	discount, err := e.discountFor(preTax, input)
	if err != nil {
		return PricingResult{}, err
	}

	discounted := preTax.Sub(discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	tax := discounted.Mul(e.taxRate).Round(2)
	if tax.IsNegative() {
		tax = decimal.Zero
	}
	total := discounted.Add(tax)

	return PricingResult{
		Subtotal:       models.NewMoneyFromDecimal(subtotal),
		ShippingFee:    models.NewMoneyFromDecimal(shipping),
		DiscountAmount: models.NewMoneyFromDecimal(discount),
		TaxAmount:      models.NewMoneyFromDecimal(tax),
		TotalAmount:    models.NewMoneyFromDecimal(total),
	}, nil
}

// shippingFeeFor 计算运费：积分支付、无需物流或达到免邮门槛时为 0。
func (e *PricingEngine) shippingFeeFor(subtotal decimal.Decimal, input PricingInput) decimal.Decimal {
	if !input.RequiresShipping {
		return decimal.Zero
	}
	if input.PaymentMethod == constants.PaymentMethodToken {
		return decimal.Zero
	}
	if e.freeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(e.freeShippingThreshold) {
		return decimal.Zero
	}
	return e.shippingFee.Round(2)
}

// discountFor 计算折扣金额，依次应用百分比、单次上限与网关最低支付额约束。
func (e *PricingEngine) discountFor(preTax decimal.Decimal, input PricingInput) (decimal.Decimal, error) {
	if input.DiscountPercent <= 0 {
		if err := e.checkMinPayable(preTax, decimal.Zero, input); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, nil
	}
	if input.DiscountPercent > 100 {
		return decimal.Zero, ErrInvalidPercent
	}

	discount := preTax.
		Mul(decimal.NewFromInt(int64(input.DiscountPercent))).
		Div(decimal.NewFromInt(100)).
		Round(2)
	if input.MaxDiscount != nil && discount.GreaterThan(input.MaxDiscount.Decimal) {
		discount = input.MaxDiscount.Decimal.Round(2)
	}

	// 法币支付需满足网关最低金额：折扣不得把应付压进 (0, minPayable) 区间
	if input.PaymentMethod != constants.PaymentMethodToken && e.minPayable.IsPositive() {
		discounted := preTax.Sub(discount)
		if discounted.IsNegative() {
			discounted = decimal.Zero
		}
		total := discounted.Add(discounted.Mul(e.taxRate).Round(2))
		if total.IsPositive() && total.LessThan(e.minPayable) {
			// 回缩折扣使应付恰好达到最低金额
			floorBase := e.minPayable.
				Div(decimal.NewFromInt(1).Add(e.taxRate)).
				RoundUp(2)
			discount = preTax.Sub(floorBase)
			if discount.IsNegative() {
				// 即使不打折合计仍低于最低金额
				return decimal.Zero, ErrBelowMinimumPayable
			}
			discount = discount.Round(2)
		}
	}

	return discount, nil
}

// checkMinPayable 无折扣场景下校验网关最低支付金额。
func (e *PricingEngine) checkMinPayable(preTax, discount decimal.Decimal, input PricingInput) error {
	if input.PaymentMethod == constants.PaymentMethodToken || !e.minPayable.IsPositive() {
		return nil
	}
	discounted := preTax.Sub(discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	total := discounted.Add(discounted.Mul(e.taxRate).Round(2))
	if total.IsPositive() && total.LessThan(e.minPayable) {
		return ErrBelowMinimumPayable
	}
	return nil
}
