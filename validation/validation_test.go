package validation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidators(t *testing.T) {
	v := make(Violations)
	Required("name", "  ", v)
	RequiredID("customer_id", 0, v)
	NonNegative("down_payment", decimal.NewFromInt(-1), v)
	MinInt("lines[0].quantity", 0, 1, v)
	OneOf("payment_method", "Bitcoin", []string{"Cash", "Tempo"}, v)
	MaxDecimal("vat_percent", decimal.NewFromInt(1000), decimal.RequireFromString("999.99"), v)

	want := map[string]string{
		"name":              "required",
		"customer_id":       "required",
		"down_payment":      "must_not_be_negative",
		"lines[0].quantity": "too_small",
		"payment_method":    "invalid_choice",
		"vat_percent":       "out_of_range",
	}
	for field, code := range want {
		if got := v[field]; got != code {
			t.Errorf("%s: got %q, want %q", field, got, code)
		}
	}
	if len(v) != len(want) {
		t.Fatalf("expected %d violations, got %d: %v", len(want), len(v), v)
	}
}

func TestValidatorsAcceptValidInput(t *testing.T) {
	v := make(Violations)
	Required("name", "Paracetamol", v)
	RequiredID("customer_id", 4, v)
	NonNegative("down_payment", decimal.Zero, v)
	MinInt("lines[0].quantity", 1, 1, v)
	OneOf("payment_method", "Cash", []string{"Cash", "Tempo"}, v)
	if !v.Empty() {
		t.Fatalf("expected no violations, got %v", v)
	}
}

func TestAddKeepsFirstCode(t *testing.T) {
	v := make(Violations)
	v.Add("due_date", "required")
	v.Add("due_date", "invalid_format")
	if v["due_date"] != "required" {
		t.Fatalf("first violation should win, got %q", v["due_date"])
	}
}
