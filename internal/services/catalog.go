package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/go-faktur/internal/metrics"
	"github.com/diewo77/go-faktur/internal/models"
	"github.com/diewo77/go-faktur/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Catalog reads products and moves their stock.
// Every stock change is a single conditional UPDATE, never read-then-write.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// WithTx returns a Catalog bound to tx.
func (c *Catalog) WithTx(tx *gorm.DB) *Catalog {
	return &Catalog{db: tx}
}

// ProductInput is the payload for creating a product.
type ProductInput struct {
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	Price decimal.Decimal `json:"price"`
	Stock *int            `json:"stock"`
}

// ProductPatch changes the given fields of a product; nil leaves a field alone.
type ProductPatch struct {
	Name  *string          `json:"name"`
	Kind  *string          `json:"kind"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock"`
}

// StockOp is how a manual stock adjustment applies its quantity.
type StockOp string

const (
	StockAdd      StockOp = "add"
	StockSubtract StockOp = "subtract"
	StockSet      StockOp = "set"
)

var StockOps = []StockOp{StockAdd, StockSubtract, StockSet}

// StockAdjustment is a manual stock correction outside any invoice.
type StockAdjustment struct {
	Operation StockOp `json:"operation"`
	Quantity  int     `json:"quantity"`
}

// StockChange reports an applied adjustment.
type StockChange struct {
	Product   *models.Product `json:"product"`
	Previous  *int            `json:"previous_stock"`
	Current   int             `json:"new_stock"`
	Operation StockOp         `json:"operation"`
	Amount    int             `json:"amount"`
}

func (c *Catalog) Find(ctx context.Context, id uint) (*models.Product, error) {
	return findProduct(c.db.WithContext(ctx), id)
}

// lock is Find with a row lock where the dialect has one.
func (c *Catalog) lock(ctx context.Context, id uint) (*models.Product, error) {
	return findProduct(forUpdate(c.db.WithContext(ctx)), id)
}

func findProduct(db *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	if err := db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "product", ID: id}
		}
		return nil, storeErr("find product", err)
	}
	return &p, nil
}

func (c *Catalog) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	v := make(validation.Violations)
	in.Name = strings.TrimSpace(in.Name)
	validation.Required("name", in.Name, v)
	validation.NonNegative("price", in.Price, v)
	if in.Stock != nil {
		validation.MinInt("stock", *in.Stock, 0, v)
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	p := models.Product{Name: in.Name, Kind: strings.TrimSpace(in.Kind), Price: in.Price.Round(2), Stock: in.Stock}
	if err := c.db.WithContext(ctx).Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ValidationError{Fields: validation.Violations{"name": "already_exists"}}
		}
		return nil, storeErr("create product", err)
	}
	return &p, nil
}

// Update applies patch to a product. A new name must not belong to another product.
func (c *Catalog) Update(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	v := make(validation.Violations)
	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		validation.Required("name", name, v)
		updates["name"] = name
	}
	if patch.Kind != nil {
		updates["kind"] = strings.TrimSpace(*patch.Kind)
	}
	if patch.Price != nil {
		validation.NonNegative("price", *patch.Price, v)
		updates["price"] = patch.Price.Round(2)
	}
	if patch.Stock != nil {
		validation.MinInt("stock", *patch.Stock, 0, v)
		updates["stock"] = *patch.Stock
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	var out *models.Product
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cat := c.WithTx(tx)
		p, err := cat.lock(ctx, id)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return &ValidationError{Fields: validation.Violations{"name": "already_exists"}}
				}
				return err
			}
		}
		out, err = cat.Find(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeErr("update product", err)
	}
	return out, nil
}

// Decrement takes quantity units from a tracked product. It fails with
// InsufficientStockError when fewer units are on hand; untracked products
// are left alone.
func (c *Catalog) Decrement(ctx context.Context, productID uint, quantity int) error {
	res := c.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock IS NOT NULL AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return storeErr("decrement stock", res.Error)
	}
	if res.RowsAffected == 1 {
		metrics.StockMoved.WithLabelValues("out").Add(float64(quantity))
		return nil
	}

	p, err := c.Find(ctx, productID)
	if err != nil {
		return err
	}
	if !p.TracksStock() {
		return nil
	}
	return &InsufficientStockError{ProductID: p.ID, Product: p.Name, Available: p.Available(), Requested: quantity}
}

// Increment returns quantity units to a tracked product.
func (c *Catalog) Increment(ctx context.Context, productID uint, quantity int) error {
	res := c.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock IS NOT NULL", productID).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return storeErr("increment stock", res.Error)
	}
	if res.RowsAffected == 1 {
		metrics.StockMoved.WithLabelValues("in").Add(float64(quantity))
	}
	return nil
}

// Restock adds quantity to a tracked product and returns it re-read.
func (c *Catalog) Restock(ctx context.Context, productID uint, quantity int) (*models.Product, error) {
	change, err := c.AdjustStock(ctx, productID, StockAdjustment{Operation: StockAdd, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	return change.Product, nil
}

// AdjustStock applies a manual correction. Add and subtract need a tracked
// product; subtract goes through Decrement and never drives stock below
// zero. Set replaces the level and may start tracking an untracked product.
func (c *Catalog) AdjustStock(ctx context.Context, productID uint, adj StockAdjustment) (*StockChange, error) {
	v := make(validation.Violations)
	validation.Required("operation", string(adj.Operation), v)
	if adj.Operation != "" {
		validation.OneOf("operation", adj.Operation, StockOps, v)
	}
	minQty := 1
	if adj.Operation == StockSet {
		minQty = 0
	}
	validation.MinInt("quantity", adj.Quantity, minQty, v)
	if err := invalid(v); err != nil {
		return nil, err
	}

	change := &StockChange{Operation: adj.Operation, Amount: adj.Quantity}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cat := c.WithTx(tx)
		p, err := cat.lock(ctx, productID)
		if err != nil {
			return err
		}
		change.Previous = p.Stock
		if adj.Operation != StockSet && !p.TracksStock() {
			return &ValidationError{Fields: validation.Violations{"stock": "not_tracked"}}
		}

		switch adj.Operation {
		case StockAdd:
			err = cat.Increment(ctx, productID, adj.Quantity)
		case StockSubtract:
			err = cat.Decrement(ctx, productID, adj.Quantity)
		case StockSet:
			err = cat.set(ctx, p, adj.Quantity)
		}
		if err != nil {
			return err
		}
		change.Product, err = cat.Find(ctx, productID)
		if err != nil {
			return err
		}
		change.Current = change.Product.Available()
		return nil
	})
	if err != nil {
		return nil, storeErr("adjust stock", err)
	}
	return change, nil
}

func (c *Catalog) set(ctx context.Context, p *models.Product, level int) error {
	delta := level - p.Available()
	if err := c.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", p.ID).Update("stock", level).Error; err != nil {
		return err
	}
	switch {
	case delta > 0:
		metrics.StockMoved.WithLabelValues("in").Add(float64(delta))
	case delta < 0:
		metrics.StockMoved.WithLabelValues("out").Add(float64(-delta))
	}
	return nil
}

// Delete removes a product unless an invoice line still references it.
func (c *Catalog) Delete(ctx context.Context, productID uint) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.InvoiceLine{}).Where("product_id = ?", productID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return &ConflictError{Reason: "product is used by invoice lines"}
		}
		res := tx.Delete(&models.Product{}, productID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "product", ID: productID}
		}
		return nil
	})
	return storeErr("delete product", err)
}
