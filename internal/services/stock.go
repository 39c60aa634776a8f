package services

// CheckStock reports whether quantity can be taken from stock.
// Untracked stock (nil) always allows.
func CheckStock(stock *int, quantity int) bool {
	return stock == nil || *stock >= quantity
}

// stockLedger tracks what is left per product while a batch of lines is
// checked, so two lines for the same product cannot both claim the same units.
type stockLedger map[uint]int

func (l stockLedger) take(productID uint, stock *int, quantity int) (available int, ok bool) {
	if stock == nil {
		return 0, true
	}
	left, seen := l[productID]
	if !seen {
		left = *stock
	}
	if !CheckStock(&left, quantity) {
		return left, false
	}
	l[productID] = left - quantity
	return left, true
}
