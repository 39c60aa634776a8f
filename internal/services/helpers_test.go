package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-faktur/internal/config"
	"github.com/diewo77/go-faktur/internal/db"
	"github.com/diewo77/go-faktur/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var day1 = time.Date(2025, 8, 11, 10, 30, 0, 0, time.Local)

type fixture struct {
	db       *gorm.DB
	svc      *InvoiceService
	clock    *time.Time
	user     models.User
	company  models.Company
	customer models.Customer // belongs to company
	walkIn   models.Customer // individual
	p1       models.Product  // stock 10, price 1000
	p2       models.Product  // stock 5, price 500
	p3       models.Product  // stock 4, price 2500
	untrack  models.Product  // no stock tracking
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), db.GormConfig(false))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(d))
	t.Cleanup(func() {
		if sqlDB, err := d.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return d
}

func intPtr(n int) *int { return &n }

func uintPtr(n uint) *uint { return &n }

func strPtr(s string) *string { return &s }

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// newFileDB opens a sqlite file through db.Connect, so the pool has the
// single connection production sqlite runs with.
func newFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := db.Connect(config.DatabaseConfig{Driver: "sqlite", RawDSN: filepath.Join(t.TempDir(), "faktur.db")})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(d))
	t.Cleanup(func() {
		if sqlDB, err := d.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return d
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return seedFixture(t, newTestDB(t))
}

func seedFixture(t *testing.T, d *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{db: d}

	f.user = models.User{Name: "Tera", Username: "admin", PasswordHash: "x"}
	require.NoError(t, d.Create(&f.user).Error)
	f.company = models.Company{Name: "RS Siloam Hospitals", Address: "Jl. Garnisun No. 1"}
	require.NoError(t, d.Create(&f.company).Error)
	f.customer = models.Customer{Name: "Dr. Ahmad Fauzi", CompanyID: &f.company.ID}
	require.NoError(t, d.Create(&f.customer).Error)
	f.walkIn = models.Customer{Name: "Ibu Sari Rahayu"}
	require.NoError(t, d.Create(&f.walkIn).Error)

	f.p1 = models.Product{Name: "Paracetamol 500mg", Price: decimal.NewFromInt(1000), Stock: intPtr(10)}
	f.p2 = models.Product{Name: "Antimo Tablet", Price: decimal.NewFromInt(500), Stock: intPtr(5)}
	f.p3 = models.Product{Name: "Vitamin C 1000mg", Price: decimal.NewFromInt(2500), Stock: intPtr(4)}
	f.untrack = models.Product{Name: "Konsultasi Apoteker", Price: decimal.NewFromInt(20000)}
	for _, p := range []*models.Product{&f.p1, &f.p2, &f.p3, &f.untrack} {
		require.NoError(t, d.Create(p).Error)
	}

	now := day1
	f.clock = &now
	f.svc = NewInvoiceService(d, NewNumbering(func() time.Time { return *f.clock }), nil, Options{NumberRetries: 3})
	return f
}

func (f *fixture) stock(t *testing.T, p models.Product) *int {
	t.Helper()
	var got models.Product
	require.NoError(t, f.db.First(&got, p.ID).Error)
	return got.Stock
}

func (f *fixture) requireStock(t *testing.T, p models.Product, want int) {
	t.Helper()
	got := f.stock(t, p)
	require.NotNil(t, got, "stock of %s should be tracked", p.Name)
	require.Equal(t, want, *got, "stock of %s", p.Name)
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) createInput(lines ...LineInput) CreateInput {
	return CreateInput{
		DueDate:       "2025-09-10",
		PaymentMethod: models.PaymentTransfer,
		VATPercent:    decimal.NewFromInt(10),
		CustomerID:    f.customer.ID,
		Lines:         lines,
	}
}

func line(p models.Product, qty int, price string) LineInput {
	return LineInput{ProductID: p.ID, Quantity: qty, UnitPrice: money(price)}
}

func (f *fixture) mustCreate(t *testing.T, lines ...LineInput) *models.Invoice {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), f.user.ID, f.createInput(lines...))
	require.NoError(t, err)
	return inv
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	w := decimal.RequireFromString(want)
	require.True(t, w.Equal(got), "want %s, got %s", w, got)
}
