package models

import "time"

// Company is an organization that customers may belong to and invoices may be issued under.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name    string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Address string `gorm:"type:text" json:"address,omitempty"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Fax     string `gorm:"size:50" json:"fax,omitempty"`
}

// Customer is the party an invoice is billed to.
// A nil CompanyID denotes an individual customer.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name      string   `gorm:"size:255;not null;index" json:"name"`
	CompanyID *uint    `gorm:"index" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Address   string   `gorm:"type:text" json:"address,omitempty"`
}

// IsIndividual returns true when the customer is not linked to a company.
func (c *Customer) IsIndividual() bool {
	return c.CompanyID == nil
}
