package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-faktur/auth"
	"github.com/diewo77/go-faktur/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedProduct struct {
	name  string
	kind  string
	price string
	stock int
}

var baseProducts = []seedProduct{
	{"Paracetamol 500mg", "Obat Bebas", "5000", 500},
	{"Amoxicillin 500mg", "Antibiotik", "15000", 200},
	{"Vitamin C 1000mg", "Vitamin", "25000", 300},
	{"Antimo Tablet", "Obat Bebas", "8000", 150},
	{"Betadine Solution 15ml", "Antiseptik", "12000", 100},
	{"Omeprazole 20mg", "Obat Keras", "35000", 80},
	{"Hansaplast Strip 20pcs", "Alat Kesehatan", "18000", 250},
	{"Thermometer Digital", "Alat Kesehatan", "45000", 50},
	{"Masker Medis 50pcs", "Alat Pelindung", "30000", 400},
	{"Hand Sanitizer 100ml", "Antiseptik", "15000", 200},
	{"Ibuprofen 400mg", "Obat Bebas", "8500", 300},
	{"Kapas Steril 25gr", "Alat Kesehatan", "6000", 180},
	{"Salep Luka Bakar 10gr", "Obat Luar", "22000", 120},
	{"Multivitamin Dewasa", "Vitamin", "65000", 90},
	{"Sirup Batuk Anak 60ml", "Obat Bebas", "18500", 160},
}

var baseCompanies = []models.Company{
	{Name: "RS Siloam Hospitals", Address: "Jl. Garnisun No. 1, Jakarta Pusat", Phone: "021-5566789", Fax: "021-5566790"},
	{Name: "RSUD Dr. Cipto Mangunkusumo", Address: "Jl. Diponegoro No. 71, Jakarta Pusat", Phone: "021-3914808", Fax: "021-3914809"},
	{Name: "Klinik Kimia Farma", Address: "Jl. Veteran No. 15, Jakarta Pusat", Phone: "021-3456789", Fax: "021-3456790"},
}

// baseCustomers maps customer name to company name ("" for individuals).
var baseCustomers = []struct {
	name, company, address string
}{
	{"Dr. Ahmad Fauzi", "RS Siloam Hospitals", "Jl. Kebayoran Baru No. 12, Jakarta Selatan"},
	{"dr. Siti Nurhaliza", "RSUD Dr. Cipto Mangunkusumo", "Jl. Menteng Dalam No. 8, Jakarta Pusat"},
	{"Farmasist Budi Santoso", "Klinik Kimia Farma", "Jl. Cempaka Putih No. 22, Jakarta Pusat"},
	{"Ibu Sari Rahayu", "", "Jl. Tebet Raya No. 88, Jakarta Selatan"},
}

// Seed inserts the demo user, parties and catalog. Running it twice is a no-op.
func Seed(conn *gorm.DB) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("username = ?", "admin").First(&user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			hash, err := auth.HashPassword("admin123")
			if err != nil {
				return err
			}
			user = models.User{Name: "Tera", Username: "admin", PasswordHash: hash}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("seed user: %w", err)
			}
		} else if err != nil {
			return err
		}

		companyIDs := make(map[string]uint, len(baseCompanies))
		for _, c := range baseCompanies {
			var existing models.Company
			err := tx.Where("name = ?", c.Name).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				existing = c
				if err := tx.Create(&existing).Error; err != nil {
					return fmt.Errorf("seed company %q: %w", c.Name, err)
				}
			} else if err != nil {
				return err
			}
			companyIDs[c.Name] = existing.ID
		}

		for _, c := range baseCustomers {
			var count int64
			if err := tx.Model(&models.Customer{}).Where("name = ?", c.name).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			customer := models.Customer{Name: c.name, Address: c.address}
			if c.company != "" {
				id := companyIDs[c.company]
				customer.CompanyID = &id
			}
			if err := tx.Create(&customer).Error; err != nil {
				return fmt.Errorf("seed customer %q: %w", c.name, err)
			}
		}

		for _, p := range baseProducts {
			var count int64
			if err := tx.Model(&models.Product{}).Where("name = ?", p.name).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			stock := p.stock
			product := models.Product{
				Name:  p.name,
				Kind:  p.kind,
				Price: decimal.RequireFromString(p.price),
				Stock: &stock,
			}
			if err := tx.Create(&product).Error; err != nil {
				return fmt.Errorf("seed product %q: %w", p.name, err)
			}
		}
		return nil
	})
}
