package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-faktur/internal/models"
	"gorm.io/gorm"
)

// Numberer hands out the next invoice number inside a transaction.
type Numberer interface {
	Next(ctx context.Context, tx *gorm.DB) (string, error)
}

// Numbering issues INV-YYYYMMDD-SSSS numbers, restarting at 0001 each day.
type Numbering struct {
	Now func() time.Time
}

func NewNumbering(now func() time.Time) *Numbering {
	if now == nil {
		now = time.Now
	}
	return &Numbering{Now: now}
}

// NumberPrefix returns INV-YYYYMMDD for day.
func NumberPrefix(day time.Time) string {
	return "INV-" + day.Format("20060102")
}

// Next must run in the same transaction as the insert that consumes the
// number. On postgres it holds an advisory lock keyed on the day prefix until
// commit; elsewhere the unique index on invoices.number catches a race.
func (n *Numbering) Next(ctx context.Context, tx *gorm.DB) (string, error) {
	prefix := NumberPrefix(n.Now())
	db := tx.WithContext(ctx)

	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
			return "", fmt.Errorf("lock numbering prefix %s: %w", prefix, err)
		}
	}

	var existing []string
	if err := db.Model(&models.Invoice{}).
		Where("number LIKE ?", prefix+"-%").
		Pluck("number", &existing).Error; err != nil {
		return "", fmt.Errorf("read invoice numbers: %w", err)
	}
	return NextNumber(prefix, existing)
}

// NextNumber picks the sequence after the numeric maximum of existing, so
// numbering keeps climbing past 9999 where string order would not.
func NextNumber(prefix string, existing []string) (string, error) {
	last := 0
	for _, number := range existing {
		seq, err := ParseSequence(number)
		if err != nil {
			return "", err
		}
		if seq > last {
			last = seq
		}
	}
	return fmt.Sprintf("%s-%04d", prefix, last+1), nil
}

// ParseSequence reads the numeric suffix after the last '-'.
func ParseSequence(number string) (int, error) {
	i := strings.LastIndex(number, "-")
	if i < 0 || i == len(number)-1 {
		return 0, fmt.Errorf("invoice number %q has no sequence", number)
	}
	seq, err := strconv.Atoi(number[i+1:])
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("invoice number %q has a malformed sequence", number)
	}
	return seq, nil
}
