package services

import (
	"testing"
	"time"

	"github.com/diewo77/go-faktur/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberPrefix(t *testing.T) {
	assert.Equal(t, "INV-20250811", NumberPrefix(day1))
	assert.Equal(t, "INV-20260101", NumberPrefix(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNextNumber(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"first of the day", nil, "INV-20250811-0001"},
		{"increments", []string{"INV-20250811-0001", "INV-20250811-0002"}, "INV-20250811-0003"},
		{"unordered input", []string{"INV-20250811-0007", "INV-20250811-0003"}, "INV-20250811-0008"},
		{"past 9999", []string{"INV-20250811-9999", "INV-20250811-10000"}, "INV-20250811-10001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextNumber("INV-20250811", tt.existing)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSequence(t *testing.T) {
	seq, err := ParseSequence("INV-20250811-0042")
	require.NoError(t, err)
	assert.Equal(t, 42, seq)

	for _, bad := range []string{"INV", "INV-20250811-", "INV-20250811-00x1"} {
		_, err := ParseSequence(bad)
		assert.Error(t, err, bad)
	}

	_, err = NextNumber("INV-20250811", []string{"INV-20250811-abcd"})
	assert.Error(t, err)
}

func TestNumberingNextReadsStore(t *testing.T) {
	d := newTestDB(t)
	user := models.User{Username: "admin", PasswordHash: "x"}
	require.NoError(t, d.Create(&user).Error)
	customer := models.Customer{Name: "Rina Kusumawati"}
	require.NoError(t, d.Create(&customer).Error)

	for _, number := range []string{"INV-20250811-0001", "INV-20250811-0002", "INV-20250810-0009"} {
		require.NoError(t, d.Create(&models.Invoice{
			Number:        number,
			PaymentMethod: models.PaymentCash,
			Subtotal:      decimal.Zero,
			GrandTotal:    decimal.Zero,
			AuthorID:      user.ID,
			CustomerID:    customer.ID,
		}).Error)
	}

	n := NewNumbering(func() time.Time { return day1 })
	got, err := n.Next(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "INV-20250811-0003", got)

	n.Now = func() time.Time { return day1.AddDate(0, 0, 2) }
	got, err = n.Next(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "INV-20250813-0001", got)
}
