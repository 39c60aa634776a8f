package services

import (
	"context"
	"errors"

	"github.com/diewo77/go-faktur/internal/models"
	"gorm.io/gorm"
)

func linesInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at, id")
}

// Get returns the invoice with author, customer (and its company), company
// and lines with their products. It never writes to the store.
func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	cached, gen, ok := s.cache.Get(ctx, id)
	if ok {
		return cached, nil
	}

	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Customer.Company").
		Preload("Company").
		Preload("Lines", linesInOrder).
		Preload("Lines.Product").
		First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "invoice", ID: id}
		}
		return nil, storeErr("get invoice", err)
	}
	if inv.Lines == nil {
		inv.Lines = []models.InvoiceLine{}
	}
	s.cache.Set(ctx, &inv, gen)
	return &inv, nil
}

// Lines returns one invoice's lines with products, oldest first.
func (s *InvoiceService) Lines(ctx context.Context, id uint) ([]models.InvoiceLine, error) {
	db := s.db.WithContext(ctx)

	var inv models.Invoice
	if err := db.Select("id", "number").First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "invoice", ID: id}
		}
		return nil, storeErr("get invoice", err)
	}

	lines := []models.InvoiceLine{}
	if err := linesInOrder(db.Preload("Product").Where("invoice_number = ?", inv.Number)).
		Find(&lines).Error; err != nil {
		return nil, storeErr("list invoice lines", err)
	}
	return lines, nil
}

// ListQuery pages through invoices, newest first. CustomerID 0 means all.
type ListQuery struct {
	Page       int
	Limit      int
	CustomerID uint
}

const (
	maxListLimit = 100
	// (maxListPage-1)*maxListLimit stays far below any SQL offset limit.
	maxListPage = 1_000_000
)

// Normalize clamps Page and Limit into their accepted ranges.
func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > maxListPage {
		q.Page = maxListPage
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
}

// List returns one page of invoice headers with their customer, plus the total count.
func (s *InvoiceService) List(ctx context.Context, q ListQuery) ([]models.Invoice, int64, error) {
	q.Normalize()
	db := s.db.WithContext(ctx).Model(&models.Invoice{})
	if q.CustomerID != 0 {
		db = db.Where("customer_id = ?", q.CustomerID)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, storeErr("count invoices", err)
	}
	out := []models.Invoice{}
	err := db.Preload("Customer").
		Order("created_at DESC, id DESC").
		Limit(q.Limit).Offset((q.Page - 1) * q.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, storeErr("list invoices", err)
	}
	return out, total, nil
}
