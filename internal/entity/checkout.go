package entity

import "github.com/shopspring/decimal"

// CartSubtotal sums price times quantity over the cart in decimal arithmetic.
func CartSubtotal(cart *CartState) decimal.Decimal {
	total := decimal.Zero
	if cart == nil {
		return total
	}
	for _, item := range cart.Items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.CartQuantity)))
		total = total.Add(line)
	}
	return total
}

// Summarize computes the checkout payload for AddOrder from a cart. The total
// is rounded to cents.
func Summarize(cart *CartState) OrderPayload {
	if cart == nil {
		return OrderPayload{}
	}
	return OrderPayload{
		NumberOfItems: cart.NumberOfItems,
		TotalQuantity: cart.TotalQuantity(),
		TotalAmount:   CartSubtotal(cart).Round(2).InexactFloat64(),
	}
}
