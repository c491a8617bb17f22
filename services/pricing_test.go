package services_test

import (
	"testing"

	"github.com/keshav-const/BTP-sub000/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculate_ScenarioTwoProducts(t *testing.T) {
	p := services.DefaultPricingPolicy()
	got := p.Calculate([]services.PricedLine{
		{UnitPrice: d("100"), Quantity: 2},
		{UnitPrice: d("20"), Quantity: 1},
	})

	assert.True(t, got.Subtotal.Equal(d("220")), got.Subtotal.String())
	assert.True(t, got.Tax.Equal(d("22")), got.Tax.String())
	assert.True(t, got.ShippingCharges.Equal(d("50")), got.ShippingCharges.String())
	assert.True(t, got.Total.Equal(d("292")), got.Total.String())
}

func TestCalculate_ShippingThreshold(t *testing.T) {
	p := services.DefaultPricingPolicy()

	atThreshold := p.Calculate([]services.PricedLine{{UnitPrice: d("1000"), Quantity: 1}})
	assert.True(t, atThreshold.ShippingCharges.Equal(d("50")))

	above := p.Calculate([]services.PricedLine{{UnitPrice: d("1000.01"), Quantity: 1}})
	assert.True(t, above.ShippingCharges.IsZero())

	empty := p.Calculate(nil)
	assert.True(t, empty.Subtotal.IsZero())
	assert.True(t, empty.ShippingCharges.Equal(d("50")))
}

func TestCalculate_TaxRounding(t *testing.T) {
	p := services.DefaultPricingPolicy()
	got := p.Calculate([]services.PricedLine{{UnitPrice: d("19.99"), Quantity: 3}})

	assert.True(t, got.Subtotal.Equal(d("59.97")))
	// 5.997 rounds to 6.00
	assert.True(t, got.Tax.Equal(d("6")), got.Tax.String())
	assert.True(t, got.Total.Equal(d("115.97")), got.Total.String())
}

func TestCalculate_TotalIsSumOfParts(t *testing.T) {
	p := services.DefaultPricingPolicy()
	prices := []string{"0", "0.01", "9.99", "250.5", "999.99", "1000", "1234.56"}
	for _, price := range prices {
		for qty := 0; qty <= 5; qty++ {
			got := p.Calculate([]services.PricedLine{{UnitPrice: d(price), Quantity: qty}})
			assert.True(t, got.Total.Equal(got.Subtotal.Add(got.Tax).Add(got.ShippingCharges)), "%s x %d", price, qty)
			assert.True(t, got.Tax.Equal(got.Subtotal.Mul(d("0.10")).Round(2)), "%s x %d", price, qty)
			if got.Subtotal.GreaterThan(d("1000")) {
				assert.True(t, got.ShippingCharges.IsZero())
			} else {
				assert.True(t, got.ShippingCharges.Equal(d("50")))
			}
		}
	}
}

func TestCalculate_CustomPolicy(t *testing.T) {
	p := services.PricingPolicy{
		TaxRate:               d("0.18"),
		FreeShippingThreshold: d("500"),
		FlatShippingFee:       d("40"),
	}
	got := p.Calculate([]services.PricedLine{{UnitPrice: d("300"), Quantity: 2}})
	assert.True(t, got.Tax.Equal(d("108")))
	assert.True(t, got.ShippingCharges.IsZero())
	assert.True(t, got.Total.Equal(d("708")))
}
