package services

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineSubtotal is quantity x unit price, rounded to cents.
func LineSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// GrandTotal applies VAT to the lines subtotal and subtracts the down payment:
// subtotal + subtotal*vat/100 - downPayment. The result may be negative.
func GrandTotal(subtotal, vatPercent, downPayment decimal.Decimal) decimal.Decimal {
	vat := subtotal.Mul(vatPercent).Div(hundred)
	return subtotal.Add(vat).Sub(downPayment).Round(2)
}
