package service

import (
	"errors"
	"testing"

	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/models"

	"github.com/shopspring/decimal"
)

func newTestPricingEngine() *PricingEngine {
	return NewPricingEngine(config.PricingConfig{
		Currency:              "USD",
		ShippingFee:           "5.00",
		FreeShippingThreshold: "100.00",
		TaxRate:               0.08,
		MinPayableAmount:      "0.50",
	})
}

func money(raw string) models.Money {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		panic(err)
	}
	return models.NewMoneyFromDecimal(d)
}

func TestComputeTotalsWithDiscountAndTax(t *testing.T) {
	engine := newTestPricingEngine()

	result, err := engine.ComputeTotals(PricingInput{
		Subtotal:         money("20.00"),
		RequiresShipping: true,
		PaymentMethod:    constants.PaymentMethodFiat,
		DiscountPercent:  10,
	})
	if err != nil {
		t.Fatalf("compute totals failed: %v", err)
	}
	if result.ShippingFee.String() != "5.00" {
		t.Fatalf("shipping fee want 5.00 got %s", result.ShippingFee.String())
	}
	if result.DiscountAmount.String() != "2.50" {
		t.Fatalf("discount want 2.50 got %s", result.DiscountAmount.String())
	}
	if result.TaxAmount.String() != "1.80" {
		t.Fatalf("tax want 1.80 got %s", result.TaxAmount.String())
	}
	if result.TotalAmount.String() != "24.30" {
		t.Fatalf("total want 24.30 got %s", result.TotalAmount.String())
	}
}

func TestComputeTotalsInvariant(t *testing.T) {
	engine := newTestPricingEngine()

	result, err := engine.ComputeTotals(PricingInput{
		Subtotal:         money("47.35"),
		RequiresShipping: true,
		PaymentMethod:    constants.PaymentMethodFiat,
		DiscountPercent:  23,
	})
	if err != nil {
		t.Fatalf("compute totals failed: %v", err)
	}
	// total == max(0, subtotal + shipping - discount) + tax
	preTax := result.Subtotal.Decimal.Add(result.ShippingFee.Decimal).Sub(result.DiscountAmount.Decimal)
	if preTax.IsNegative() {
		preTax = decimal.Zero
	}
	want := preTax.Add(result.TaxAmount.Decimal).Round(2)
	if !result.TotalAmount.Decimal.Equal(want) {
		t.Fatalf("invariant broken: total %s want %s", result.TotalAmount.String(), want.StringFixed(2))
	}
}

func TestComputeTotalsDiscountCappedAtGatewayFloor(t *testing.T) {
	engine := NewPricingEngine(config.PricingConfig{
		Currency:         "USD",
		ShippingFee:      "0",
		TaxRate:          0,
		MinPayableAmount: "0.50",
	})

	result, err := engine.ComputeTotals(PricingInput{
		Subtotal:        money("0.60"),
		PaymentMethod:   constants.PaymentMethodFiat,
		DiscountPercent: 90,
	})
	if err != nil {
		t.Fatalf("compute totals failed: %v", err)
	}
	if result.TotalAmount.String() != "0.50" {
		t.Fatalf("total want 0.50 got %s", result.TotalAmount.String())
	}
	if result.DiscountAmount.String() != "0.10" {
		t.Fatalf("discount want 0.10 got %s", result.DiscountAmount.String())
	}
}

func TestComputeTotalsBelowMinimumFails(t *testing.T) {
	engine := newTestPricingEngine()

	_, err := engine.ComputeTotals(PricingInput{
		Subtotal:      money("0.30"),
		PaymentMethod: constants.PaymentMethodFiat,
	})
	if !errors.Is(err, ErrBelowMinimumPayable) {
		t.Fatalf("want ErrBelowMinimumPayable got %v", err)
	}
}

func TestComputeTotalsFullDiscountAllowsZeroTotal(t *testing.T) {
	engine := NewPricingEngine(config.PricingConfig{
		Currency:         "USD",
		ShippingFee:      "0",
		TaxRate:          0,
		MinPayableAmount: "0.50",
	})

	result, err := engine.ComputeTotals(PricingInput{
		Subtotal:        money("10.00"),
		PaymentMethod:   constants.PaymentMethodFiat,
		DiscountPercent: 100,
	})
	if err != nil {
		t.Fatalf("compute totals failed: %v", err)
	}
	if !result.TotalAmount.Decimal.IsZero() {
		t.Fatalf("total want 0 got %s", result.TotalAmount.String())
	}
}

func TestComputeTotalsFreeShippingThreshold(t *testing.T) {
	engine := newTestPricingEngine()

	result, err := engine.ComputeTotals(PricingInput{
		Subtotal:         money("120.00"),
		RequiresShipping: true,
		PaymentMethod:    constants.PaymentMethodFiat,
	})
	if err != nil {
		t.Fatalf("compute totals failed: %v", err)
	}
	if !result.ShippingFee.Decimal.IsZero() {
		t.Fatalf("shipping fee want 0 got %s", result.ShippingFee.String())
	}
}

func TestComputeTotalsTokenPaymentSkipsShippingAndFloor(t *testing.T) {
	engine := newTestPricingEngine()

	result, err := engine.ComputeTotals(PricingInput{
		Subtotal:         money("0.30"),
		RequiresShipping: true,
		PaymentMethod:    constants.PaymentMethodToken,
	})
	if err != nil {
		t.Fatalf("compute totals failed: %v", err)
	}
	if !result.ShippingFee.Decimal.IsZero() {
		t.Fatalf("shipping fee want 0 got %s", result.ShippingFee.String())
	}
}

func TestComputeTotalsMaxDiscountCap(t *testing.T) {
	engine := newTestPricingEngine()
	cap := money("1.00")

	result, err := engine.ComputeTotals(PricingInput{
		Subtotal:         money("20.00"),
		RequiresShipping: true,
		PaymentMethod:    constants.PaymentMethodFiat,
		DiscountPercent:  50,
		MaxDiscount:      &cap,
	})
	if err != nil {
		t.Fatalf("compute totals failed: %v", err)
	}
	if result.DiscountAmount.String() != "1.00" {
		t.Fatalf("discount want 1.00 got %s", result.DiscountAmount.String())
	}
}

func TestComputeTotalsInvalidPercent(t *testing.T) {
	engine := newTestPricingEngine()

	_, err := engine.ComputeTotals(PricingInput{
		Subtotal:        money("20.00"),
		PaymentMethod:   constants.PaymentMethodFiat,
		DiscountPercent: 120,
	})
	if !errors.Is(err, ErrInvalidPercent) {
		t.Fatalf("want ErrInvalidPercent got %v", err)
	}
}
