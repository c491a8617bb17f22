package services

import (
	"github.com/keshav-const/BTP-sub000/models"
	"github.com/shopspring/decimal"
)

// PricingPolicy holds the tax and shipping parameters. The zero value is not
// useful; start from DefaultPricingPolicy.
type PricingPolicy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               decimal.NewFromFloat(0.10),
		FreeShippingThreshold: decimal.NewFromInt(1000),
		FlatShippingFee:       decimal.NewFromInt(50),
	}
}

// PricedLine is one (unit price, quantity) pair.
type PricedLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Calculate prices lines. Tax is rounded half-up to 2 places; shipping is
// free only when the subtotal is strictly above the threshold.
func (p PricingPolicy) Calculate(lines []PricedLine) models.PriceBreakdown {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(p.TaxRate).Round(2)

	shipping := p.FlatShippingFee
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return models.PriceBreakdown{
		Subtotal:        subtotal,
		Tax:             tax,
		ShippingCharges: shipping,
		Total:           subtotal.Add(tax).Add(shipping),
	}
}
