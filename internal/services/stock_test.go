package services

import "testing"

func TestCheckStock(t *testing.T) {
	tests := []struct {
		name  string
		stock *int
		qty   int
		want  bool
	}{
		{"untracked", nil, 1_000_000, true},
		{"plenty", intPtr(10), 3, true},
		{"exact", intPtr(3), 3, true},
		{"short", intPtr(2), 3, false},
		{"empty", intPtr(0), 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckStock(tt.stock, tt.qty); got != tt.want {
				t.Fatalf("CheckStock = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStockLedgerAccumulatesPerProduct(t *testing.T) {
	l := make(stockLedger)
	stock := intPtr(5)

	if _, ok := l.take(1, stock, 3); !ok {
		t.Fatal("first take should fit")
	}
	available, ok := l.take(1, stock, 3)
	if ok || available != 2 {
		t.Fatalf("second take: ok=%v available=%d, want false and 2", ok, available)
	}
	if _, ok := l.take(2, intPtr(1), 1); !ok {
		t.Fatal("other product has its own balance")
	}
	if _, ok := l.take(3, nil, 99); !ok {
		t.Fatal("untracked product always fits")
	}
	if *stock != 5 {
		t.Fatal("ledger must not mutate the stored stock")
	}
}
