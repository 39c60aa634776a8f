package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentMethod is how the customer settles an invoice.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "Cash"
	PaymentTransfer   PaymentMethod = "Transfer"
	PaymentCreditCard PaymentMethod = "Credit Card"
	PaymentDebitCard  PaymentMethod = "Debit Card"
	PaymentTempo      PaymentMethod = "Tempo"
)

// PaymentMethods lists the accepted payment methods in display order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentTransfer, PaymentCreditCard, PaymentDebitCard, PaymentTempo}

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	for _, pm := range PaymentMethods {
		if m == pm {
			return true
		}
	}
	return false
}

// Invoice is the header of a sales document (faktur).
// Its line items are keyed by the human-readable Number, not by ID,
// so Number never changes once the invoice exists.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Format: INV-YYYYMMDD-SSSS
	Number string `gorm:"size:50;not null;uniqueIndex" json:"number"`

	DueDate       datatypes.Date  `gorm:"not null" json:"due_date"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null;default:'Cash'" json:"payment_method"`
	VATPercent    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"vat_percent"`
	DownPayment   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"down_payment"`

	// Derived on every write from the lines, VATPercent and DownPayment.
	Subtotal   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	GrandTotal decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"grand_total"`

	AuthorID uint  `gorm:"not null;index" json:"author_id"`
	Author   *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	CustomerID uint      `gorm:"not null;index" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	CompanyID *uint    `gorm:"index" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceNumber;references:Number" json:"lines"`
}

// InvoiceLine is one line item (detail faktur) of an invoice.
type InvoiceLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceNumber string `gorm:"size:50;not null;index" json:"invoice_number"`

	ProductID uint     `gorm:"not null;index" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	// Quantity x UnitPrice, recomputed before every write.
	Subtotal decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
}

// LinesSubtotal sums the stored line subtotals.
func (i *Invoice) LinesSubtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range i.Lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// QuantityByProduct sums line quantities per product.
func (i *Invoice) QuantityByProduct() map[uint]int {
	out := make(map[uint]int, len(i.Lines))
	for _, l := range i.Lines {
		out[l.ProductID] += l.Quantity
	}
	return out
}
