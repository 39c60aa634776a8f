package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item sold on invoices.
// A nil Stock means the quantity on hand is not tracked.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name  string          `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Kind  string          `gorm:"size:100" json:"kind,omitempty"` // e.g. "Obat Bebas", "Vitamin"
	Price decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	Stock *int            `json:"stock"`
}

// TracksStock reports whether the product has a managed stock level.
func (p *Product) TracksStock() bool {
	return p.Stock != nil
}

// Available returns the quantity on hand, or 0 when stock is untracked.
func (p *Product) Available() int {
	if p.Stock == nil {
		return 0
	}
	return *p.Stock
}
