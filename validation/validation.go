package validation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Violations maps a field path (e.g. "lines[0].quantity") to an error code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

// RequiredID flags a zero identifier.
func RequiredID(field string, id uint, v Violations) {
	if id == 0 {
		v.Add(field, "required")
	}
}

func NonNegative(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.Add(field, "must_not_be_negative")
	}
}

func MaxDecimal(field string, val, maxVal decimal.Decimal, v Violations) {
	if val.GreaterThan(maxVal) {
		v.Add(field, "out_of_range")
	}
}

func MinInt(field string, val, minVal int, v Violations) {
	if val < minVal {
		v.Add(field, "too_small")
	}
}

func OneOf[T comparable](field string, val T, allowed []T, v Violations) {
	for _, a := range allowed {
		if a == val {
			return
		}
	}
	v.Add(field, "invalid_choice")
}
