package cart

import "github.com/shopspring/decimal"

// Pricing constants. Shipping is free strictly above the threshold; orders
// at exactly 100.00 still pay the flat rate.
var (
	freeShippingThreshold = decimal.NewFromInt(100)
	flatShippingPrice     = decimal.NewFromInt(10)
	taxRate               = decimal.RequireFromString("0.0875")
)

// round2 rounds a currency amount half-up to two decimal places.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CalcPrices computes the four derived cart amounts from the item lines:
//
//	itemsPrice    = round2(sum of price * quantity)
//	shippingPrice = 0 if itemsPrice > 100.00, else 10.00
//	taxPrice      = round2(itemsPrice * 0.0875)
//	totalPrice    = round2(itemsPrice + shippingPrice + taxPrice)
//
// It is pure and deterministic for identical input.
// An empty line set prices to zero across the board: there is nothing to
// ship or tax.
func CalcPrices(items []Item) Prices {
	if len(items) == 0 {
		return Prices{
			ItemsPrice:    decimal.Zero,
			ShippingPrice: decimal.Zero,
			TaxPrice:      decimal.Zero,
			TotalPrice:    decimal.Zero,
		}
	}

	itemsPrice := decimal.Zero
	for _, it := range items {
		itemsPrice = itemsPrice.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	itemsPrice = round2(itemsPrice)

	shippingPrice := flatShippingPrice
	if itemsPrice.GreaterThan(freeShippingThreshold) {
		shippingPrice = decimal.Zero
	}

	taxPrice := round2(itemsPrice.Mul(taxRate))
	totalPrice := round2(itemsPrice.Add(shippingPrice).Add(taxPrice))

	return Prices{
		ItemsPrice:    itemsPrice,
		ShippingPrice: shippingPrice,
		TaxPrice:      taxPrice,
		TotalPrice:    totalPrice,
	}
}
