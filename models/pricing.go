package models

import "github.com/shopspring/decimal"

// PriceBreakdown is the result of pricing a set of lines.
type PriceBreakdown struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	ShippingCharges decimal.Decimal `json:"shipping_charges"`
	Total           decimal.Decimal `json:"total"`
}
