package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/go-faktur/internal/models"
	"github.com/diewo77/go-faktur/validation"
	"gorm.io/gorm"
)

// Parties resolves and maintains companies and customers.
type Parties struct {
	db *gorm.DB
}

func NewParties(db *gorm.DB) *Parties {
	return &Parties{db: db}
}

// WithTx returns a Parties bound to tx.
func (p *Parties) WithTx(tx *gorm.DB) *Parties {
	return &Parties{db: tx}
}

type CompanyInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Fax     string `json:"fax"`
}

type CustomerInput struct {
	Name      string `json:"name"`
	CompanyID *uint  `json:"company_id"`
	Address   string `json:"address"`
}

// CompanyPatch changes the given fields of a company; nil leaves a field alone.
type CompanyPatch struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Fax     *string `json:"fax"`
}

// CustomerPatch changes the given fields of a customer. A CompanyID of 0
// detaches the customer from its company.
type CustomerPatch struct {
	Name      *string `json:"name"`
	CompanyID *uint   `json:"company_id"`
	Address   *string `json:"address"`
}

// Customer loads a customer with its company.
func (p *Parties) Customer(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := p.db.WithContext(ctx).Preload("Company").First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "customer", ID: id}
		}
		return nil, storeErr("find customer", err)
	}
	return &c, nil
}

func (p *Parties) Company(ctx context.Context, id uint) (*models.Company, error) {
	var c models.Company
	if err := p.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "company", ID: id}
		}
		return nil, storeErr("find company", err)
	}
	return &c, nil
}

func (p *Parties) CreateCompany(ctx context.Context, in CompanyInput) (*models.Company, error) {
	v := make(validation.Violations)
	in.Name = strings.TrimSpace(in.Name)
	validation.Required("name", in.Name, v)
	if err := invalid(v); err != nil {
		return nil, err
	}

	c := models.Company{Name: in.Name, Address: in.Address, Phone: in.Phone, Fax: in.Fax}
	if err := p.db.WithContext(ctx).Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ValidationError{Fields: validation.Violations{"name": "already_exists"}}
		}
		return nil, storeErr("create company", err)
	}
	return &c, nil
}

// CreateCustomer validates the optional company reference. A company_id of 0
// is treated as absent (individual customer).
func (p *Parties) CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	v := make(validation.Violations)
	in.Name = strings.TrimSpace(in.Name)
	validation.Required("name", in.Name, v)
	if err := invalid(v); err != nil {
		return nil, err
	}

	c := models.Customer{Name: in.Name, Address: in.Address}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CompanyID != nil && *in.CompanyID != 0 {
			if _, err := p.WithTx(tx).Company(ctx, *in.CompanyID); err != nil {
				return err
			}
			c.CompanyID = in.CompanyID
		}
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, storeErr("create customer", err)
	}
	return p.Customer(ctx, c.ID)
}

// UpdateCompany applies patch. A new name must not belong to another company.
func (p *Parties) UpdateCompany(ctx context.Context, id uint, patch CompanyPatch) (*models.Company, error) {
	v := make(validation.Violations)
	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		validation.Required("name", name, v)
		updates["name"] = name
	}
	if patch.Address != nil {
		updates["address"] = *patch.Address
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Fax != nil {
		updates["fax"] = *patch.Fax
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	var out *models.Company
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parties := p.WithTx(tx)
		if _, err := parties.Company(ctx, id); err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Company{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return &ValidationError{Fields: validation.Violations{"name": "already_exists"}}
				}
				return err
			}
		}
		var err error
		out, err = parties.Company(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeErr("update company", err)
	}
	return out, nil
}

// UpdateCustomer applies patch and returns the customer with its company.
// Invoices keep the company they were issued under.
func (p *Parties) UpdateCustomer(ctx context.Context, id uint, patch CustomerPatch) (*models.Customer, error) {
	v := make(validation.Violations)
	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		validation.Required("name", name, v)
		updates["name"] = name
	}
	if patch.Address != nil {
		updates["address"] = *patch.Address
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parties := p.WithTx(tx)
		if _, err := parties.Customer(ctx, id); err != nil {
			return err
		}
		if patch.CompanyID != nil {
			if *patch.CompanyID == 0 {
				updates["company_id"] = nil
			} else {
				if _, err := parties.Company(ctx, *patch.CompanyID); err != nil {
					return err
				}
				updates["company_id"] = *patch.CompanyID
			}
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.Customer{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, storeErr("update customer", err)
	}
	return p.Customer(ctx, id)
}

// DeleteCustomer refuses while any invoice references the customer.
func (p *Parties) DeleteCustomer(ctx context.Context, id uint) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.Invoice{}).Where("customer_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return &ConflictError{Reason: "customer is used by invoices"}
		}
		res := tx.Delete(&models.Customer{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "customer", ID: id}
		}
		return nil
	})
	return storeErr("delete customer", err)
}

// DeleteCompany refuses while any customer or invoice references the company.
func (p *Parties) DeleteCompany(ctx context.Context, id uint) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customers, invoices int64
		if err := tx.Model(&models.Customer{}).Where("company_id = ?", id).Count(&customers).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Invoice{}).Where("company_id = ?", id).Count(&invoices).Error; err != nil {
			return err
		}
		if customers+invoices > 0 {
			return &ConflictError{Reason: "company is used by customers or invoices"}
		}
		res := tx.Delete(&models.Company{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "company", ID: id}
		}
		return nil
	})
	return storeErr("delete company", err)
}
