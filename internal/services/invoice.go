package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/diewo77/go-faktur/auth"
	"github.com/diewo77/go-faktur/internal/cache"
	"github.com/diewo77/go-faktur/internal/logger"
	"github.com/diewo77/go-faktur/internal/metrics"
	"github.com/diewo77/go-faktur/internal/models"
	"github.com/diewo77/go-faktur/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errNumberTaken marks a unique-index hit on invoices.number, the only
// failure a create is retried for.
var errNumberTaken = errors.New("invoice number taken")

// maxPercent is what a decimal(5,2) VAT column can hold.
var maxPercent = decimal.RequireFromString("999.99")

// LineInput is one requested invoice line.
type LineInput struct {
	ProductID uint             `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// CreateInput is the payload for a new invoice. Due dates are YYYY-MM-DD.
type CreateInput struct {
	DueDate       string               `json:"due_date"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	VATPercent    decimal.Decimal      `json:"vat_percent"`
	DownPayment   decimal.Decimal      `json:"down_payment"`
	CustomerID    uint                 `json:"customer_id"`
	CompanyID     *uint                `json:"company_id"`
	Lines         []LineInput          `json:"lines"`
}

// AmendInput patches header fields and replaces every line.
// Nil header fields keep their stored value; CompanyID 0 clears the company.
// Lines is always the complete new list, so an absent list removes all lines.
type AmendInput struct {
	DueDate       *string               `json:"due_date"`
	PaymentMethod *models.PaymentMethod `json:"payment_method"`
	VATPercent    *decimal.Decimal      `json:"vat_percent"`
	DownPayment   *decimal.Decimal      `json:"down_payment"`
	CustomerID    *uint                 `json:"customer_id"`
	CompanyID     *uint                 `json:"company_id"`
	Lines         []LineInput           `json:"lines"`
}

// Options tune the invoice engine.
type Options struct {
	// FallbackAuthor lets anonymous creates borrow the first user, creating
	// a placeholder when the store has none.
	FallbackAuthor bool
	// NumberRetries bounds how often a create is retried after a number collision.
	NumberRetries int
}

// InvoiceService creates, amends and deletes invoices together with their
// lines and the stock they allocate. Each operation is one transaction.
type InvoiceService struct {
	db      *gorm.DB
	catalog *Catalog
	parties *Parties
	numbers Numberer
	cache   cache.InvoiceCache
	opts    Options
}

func NewInvoiceService(db *gorm.DB, numbers Numberer, c cache.InvoiceCache, opts Options) *InvoiceService {
	if numbers == nil {
		numbers = NewNumbering(time.Now)
	}
	if c == nil {
		c = cache.Nop{}
	}
	if opts.NumberRetries < 0 {
		opts.NumberRetries = 0
	}
	return &InvoiceService{
		db:      db,
		catalog: NewCatalog(db),
		parties: NewParties(db),
		numbers: numbers,
		cache:   c,
		opts:    opts,
	}
}

// Create persists a new invoice for the acting user (0 when anonymous).
func (s *InvoiceService) Create(ctx context.Context, actorID uint, in CreateInput) (*models.Invoice, error) {
	inv, err := s.create(ctx, actorID, in)
	metrics.InvoiceOps.WithLabelValues("create", metrics.Outcome(err)).Inc()
	if err != nil {
		logger.WithCtx(ctx).Warn("invoice create failed", "error", err)
		return nil, err
	}
	logger.WithCtx(ctx).Info("invoice created",
		"invoice_id", inv.ID,
		"number", inv.Number,
		"lines", len(inv.Lines),
		"grand_total", inv.GrandTotal.String(),
	)
	return inv, nil
}

func (s *InvoiceService) create(ctx context.Context, actorID uint, in CreateInput) (*models.Invoice, error) {
	dueDate, err := in.validate()
	if err != nil {
		return nil, err
	}
	if actorID == 0 && !s.opts.FallbackAuthor {
		return nil, ErrNoAuthor
	}

	var id uint
	for attempt := 0; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			inv, err := s.insert(ctx, tx, actorID, in, dueDate)
			if err != nil {
				return err
			}
			id = inv.ID
			return nil
		})
		if err == nil {
			break
		}
		if !errors.Is(err, errNumberTaken) {
			return nil, storeErr("create invoice", err)
		}
		if attempt >= s.opts.NumberRetries {
			return nil, &ConflictError{Reason: "invoice number already taken", Err: err}
		}
		metrics.NumberRetries.Inc()
		logger.WithCtx(ctx).Warn("invoice number taken, retrying", "attempt", attempt+1)
	}
	return s.Get(ctx, id)
}

// insert runs inside the create transaction. Any error rolls back every write.
func (s *InvoiceService) insert(ctx context.Context, tx *gorm.DB, actorID uint, in CreateInput, dueDate datatypes.Date) (*models.Invoice, error) {
	parties := s.parties.WithTx(tx)
	if _, err := parties.Customer(ctx, in.CustomerID); err != nil {
		return nil, err
	}
	companyID, err := resolveCompany(ctx, parties, in.CompanyID)
	if err != nil {
		return nil, err
	}

	lines, err := s.prepareLines(ctx, tx, in.Lines)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, tx)
	if err != nil {
		return nil, err
	}

	authorID, err := s.resolveAuthor(ctx, tx, actorID)
	if err != nil {
		return nil, err
	}

	inv := &models.Invoice{
		Number:        number,
		DueDate:       dueDate,
		PaymentMethod: in.PaymentMethod,
		VATPercent:    in.VATPercent.Round(2),
		DownPayment:   in.DownPayment.Round(2),
		AuthorID:      authorID,
		CustomerID:    in.CustomerID,
		CompanyID:     companyID,
		Lines:         lines,
	}
	inv.Subtotal = inv.LinesSubtotal()
	inv.GrandTotal = GrandTotal(inv.Subtotal, inv.VATPercent, inv.DownPayment)

	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(inv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("insert invoice %s: %w: %w", number, errNumberTaken, err)
		}
		return nil, fmt.Errorf("insert invoice %s: %w", number, err)
	}
	if err := s.applyLines(ctx, tx, number, inv.Lines); err != nil {
		return nil, err
	}
	return inv, nil
}

// Amend patches the header and replaces all lines: stock held by the old
// lines is restored before the new lines are checked and taken.
func (s *InvoiceService) Amend(ctx context.Context, id uint, in AmendInput) (*models.Invoice, error) {
	err := s.amend(ctx, id, in)
	return s.finishWrite(ctx, "amend", id, err)
}

func (s *InvoiceService) amend(ctx context.Context, id uint, in AmendInput) error {
	dueDate, err := in.validate()
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(ctx, tx, id)
		if err != nil {
			return err
		}

		parties := s.parties.WithTx(tx)
		if in.CustomerID != nil {
			if _, err := parties.Customer(ctx, *in.CustomerID); err != nil {
				return err
			}
			inv.CustomerID = *in.CustomerID
		}
		if in.CompanyID != nil {
			companyID, err := resolveCompany(ctx, parties, in.CompanyID)
			if err != nil {
				return err
			}
			inv.CompanyID = companyID
		}
		if dueDate != nil {
			inv.DueDate = *dueDate
		}
		if in.PaymentMethod != nil {
			inv.PaymentMethod = *in.PaymentMethod
		}
		if in.VATPercent != nil {
			inv.VATPercent = in.VATPercent.Round(2)
		}
		if in.DownPayment != nil {
			inv.DownPayment = in.DownPayment.Round(2)
		}

		return s.replaceLines(ctx, tx, inv, in.Lines)
	})
	return storeErr("amend invoice", err)
}

// AmendLines replaces the lines only; VAT and down payment stay as stored.
func (s *InvoiceService) AmendLines(ctx context.Context, id uint, lines []LineInput) (*models.Invoice, error) {
	err := s.amendLines(ctx, id, lines)
	return s.finishWrite(ctx, "amend_lines", id, err)
}

func (s *InvoiceService) amendLines(ctx context.Context, id uint, lines []LineInput) error {
	v := make(validation.Violations)
	if lines == nil {
		v.Add("lines", "required")
	}
	validateLines(lines, v)
	if err := invalid(v); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(ctx, tx, id)
		if err != nil {
			return err
		}
		return s.replaceLines(ctx, tx, inv, lines)
	})
	return storeErr("amend invoice lines", err)
}

// Delete restores the stock of every line, then removes lines and header.
func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.restoreLines(ctx, tx, inv.Number); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Delete(&models.Invoice{}, inv.ID).Error; err != nil {
			return fmt.Errorf("delete invoice %s: %w", inv.Number, err)
		}
		return nil
	})
	err = storeErr("delete invoice", err)
	metrics.InvoiceOps.WithLabelValues("delete", metrics.Outcome(err)).Inc()
	if err != nil {
		logger.WithCtx(ctx).Warn("invoice delete failed", "invoice_id", id, "error", err)
		return err
	}
	s.cache.Invalidate(ctx, id)
	logger.WithCtx(ctx).Info("invoice deleted", "invoice_id", id)
	return nil
}

func (s *InvoiceService) finishWrite(ctx context.Context, op string, id uint, err error) (*models.Invoice, error) {
	metrics.InvoiceOps.WithLabelValues(op, metrics.Outcome(err)).Inc()
	if err != nil {
		logger.WithCtx(ctx).Warn("invoice "+op+" failed", "invoice_id", id, "error", err)
		return nil, err
	}
	s.cache.Invalidate(ctx, id)
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("invoice amended", "op", op, "invoice_id", id, "grand_total", inv.GrandTotal.String())
	return inv, nil
}

// replaceLines is the restore-then-reapply step shared by both amend paths.
func (s *InvoiceService) replaceLines(ctx context.Context, tx *gorm.DB, inv *models.Invoice, in []LineInput) error {
	if err := s.restoreLines(ctx, tx, inv.Number); err != nil {
		return err
	}
	lines, err := s.prepareLines(ctx, tx, in)
	if err != nil {
		return err
	}

	inv.Lines = lines
	inv.Subtotal = inv.LinesSubtotal()
	inv.GrandTotal = GrandTotal(inv.Subtotal, inv.VATPercent, inv.DownPayment)
	if err := tx.WithContext(ctx).Omit(clause.Associations).Save(inv).Error; err != nil {
		return fmt.Errorf("update invoice %s: %w", inv.Number, err)
	}
	return s.applyLines(ctx, tx, inv.Number, inv.Lines)
}

// prepareLines resolves products, checks stock and prices every line.
// Nothing is written.
func (s *InvoiceService) prepareLines(ctx context.Context, tx *gorm.DB, in []LineInput) ([]models.InvoiceLine, error) {
	cat := s.catalog.WithTx(tx)
	ledger := make(stockLedger)
	lines := make([]models.InvoiceLine, 0, len(in))

	for _, l := range in {
		p, err := cat.Find(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		if available, ok := ledger.take(p.ID, p.Stock, l.Quantity); !ok {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Product:   p.Name,
				Available: available,
				Requested: l.Quantity,
			}
		}
		line := models.InvoiceLine{
			ProductID: p.ID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.Round(2),
		}
		line.Subtotal = LineSubtotal(line.Quantity, line.UnitPrice)
		lines = append(lines, line)
	}
	return lines, nil
}

// applyLines inserts the lines under number and takes their stock.
func (s *InvoiceService) applyLines(ctx context.Context, tx *gorm.DB, number string, lines []models.InvoiceLine) error {
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].InvoiceNumber = number
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(&lines).Error; err != nil {
		return fmt.Errorf("insert lines of %s: %w", number, err)
	}
	cat := s.catalog.WithTx(tx)
	for _, l := range lines {
		if err := cat.Decrement(ctx, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// restoreLines gives back the stock held by number's lines and deletes them.
func (s *InvoiceService) restoreLines(ctx context.Context, tx *gorm.DB, number string) error {
	db := tx.WithContext(ctx)
	held := models.Invoice{Number: number}
	if err := db.Where("invoice_number = ?", number).Find(&held.Lines).Error; err != nil {
		return fmt.Errorf("load lines of %s: %w", number, err)
	}
	qty := held.QuantityByProduct()
	ids := make([]uint, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	cat := s.catalog.WithTx(tx)
	for _, id := range ids {
		if err := cat.Increment(ctx, id, qty[id]); err != nil {
			return err
		}
	}
	if err := db.Where("invoice_number = ?", number).Delete(&models.InvoiceLine{}).Error; err != nil {
		return fmt.Errorf("delete lines of %s: %w", number, err)
	}
	return nil
}

func (s *InvoiceService) resolveAuthor(ctx context.Context, tx *gorm.DB, actorID uint) (uint, error) {
	db := tx.WithContext(ctx)
	if actorID != 0 {
		var n int64
		if err := db.Model(&models.User{}).Where("id = ?", actorID).Count(&n).Error; err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, &NotFoundError{Entity: "user", ID: actorID}
		}
		return actorID, nil
	}
	if !s.opts.FallbackAuthor {
		return 0, ErrNoAuthor
	}

	var u models.User
	err := db.Order("id").First(&u).Error
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	hash, err := auth.HashPassword(uuid.NewString())
	if err != nil {
		return 0, err
	}
	u = models.User{Name: "Default User", Username: "admin", PasswordHash: hash}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&u)
	if res.Error != nil {
		return 0, fmt.Errorf("create placeholder author: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// a concurrent request created it first
		if err := db.Where("username = ?", u.Username).First(&u).Error; err != nil {
			return 0, fmt.Errorf("load placeholder author: %w", err)
		}
		return u.ID, nil
	}
	logger.WithCtx(ctx).Warn("created placeholder invoice author", "user_id", u.ID)
	return u.ID, nil
}

// resolveCompany returns nil for an absent or zero id.
func resolveCompany(ctx context.Context, parties *Parties, id *uint) (*uint, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	c, err := parties.Company(ctx, *id)
	if err != nil {
		return nil, err
	}
	return &c.ID, nil
}

// forUpdate adds a row lock on dialects that support SELECT ... FOR UPDATE.
func forUpdate(db *gorm.DB) *gorm.DB {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// lockInvoice loads the header, holding a row lock where the dialect has one.
func lockInvoice(ctx context.Context, tx *gorm.DB, id uint) (*models.Invoice, error) {
	db := forUpdate(tx.WithContext(ctx))
	var inv models.Invoice
	if err := db.First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "invoice", ID: id}
		}
		return nil, err
	}
	return &inv, nil
}

func (in CreateInput) validate() (datatypes.Date, error) {
	v := make(validation.Violations)
	due, _ := parseDueDate("due_date", in.DueDate, v)
	validation.Required("payment_method", string(in.PaymentMethod), v)
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		v.Add("payment_method", "invalid_choice")
	}
	validation.RequiredID("customer_id", in.CustomerID, v)
	validatePercent("vat_percent", in.VATPercent, v)
	validation.NonNegative("down_payment", in.DownPayment, v)
	validateLines(in.Lines, v)
	return due, invalid(v)
}

func (in AmendInput) validate() (*datatypes.Date, error) {
	v := make(validation.Violations)
	var due *datatypes.Date
	if in.DueDate != nil {
		if d, ok := parseDueDate("due_date", *in.DueDate, v); ok {
			due = &d
		}
	}
	if in.PaymentMethod != nil && !in.PaymentMethod.Valid() {
		v.Add("payment_method", "invalid_choice")
	}
	if in.CustomerID != nil {
		validation.RequiredID("customer_id", *in.CustomerID, v)
	}
	if in.VATPercent != nil {
		validatePercent("vat_percent", *in.VATPercent, v)
	}
	if in.DownPayment != nil {
		validation.NonNegative("down_payment", *in.DownPayment, v)
	}
	validateLines(in.Lines, v)
	return due, invalid(v)
}

func validateLines(lines []LineInput, v validation.Violations) {
	for i, l := range lines {
		prefix := fmt.Sprintf("lines[%d].", i)
		validation.RequiredID(prefix+"product_id", l.ProductID, v)
		validation.MinInt(prefix+"quantity", l.Quantity, 1, v)
		if l.UnitPrice == nil {
			v.Add(prefix+"unit_price", "required")
		} else {
			validation.NonNegative(prefix+"unit_price", *l.UnitPrice, v)
		}
	}
}

func validatePercent(field string, val decimal.Decimal, v validation.Violations) {
	validation.NonNegative(field, val, v)
	validation.MaxDecimal(field, val, maxPercent, v)
}

// parseDueDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func parseDueDate(field, raw string, v validation.Violations) (datatypes.Date, bool) {
	if raw == "" {
		v.Add(field, "required")
		return datatypes.Date{}, false
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return datatypes.Date(t), true
		}
	}
	v.Add(field, "invalid_date")
	return datatypes.Date{}, false
}
