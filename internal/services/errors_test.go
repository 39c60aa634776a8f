package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/diewo77/go-faktur/validation"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorKindsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{&ValidationError{Fields: validation.Violations{"due_date": "required"}}, ErrValidation},
		{&NotFoundError{Entity: "invoice", ID: 3}, ErrNotFound},
		{&InsufficientStockError{Product: "Antimo Tablet", Available: 2, Requested: 3}, ErrInsufficientStock},
		{&ConflictError{Reason: "product is used by invoice lines"}, ErrConflict},
		{&TransactionError{Op: "create invoice", Err: errors.New("disk full")}, ErrTransaction},
	}
	for _, tt := range tests {
		t.Run(tt.kind.Error(), func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.kind)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrorMessages(t *testing.T) {
	v := &ValidationError{Fields: validation.Violations{"payment_method": "required", "due_date": "required"}}
	assert.Equal(t, "validation failed: due_date: required, payment_method: required", v.Error())

	s := &InsufficientStockError{Product: "Antimo Tablet", Available: 2, Requested: 3}
	assert.Equal(t, "insufficient stock for Antimo Tablet: available 2, requested 3", s.Error())

	assert.Equal(t, "customer 9 not found", (&NotFoundError{Entity: "customer", ID: uint(9)}).Error())
}

func TestConflictKeepsCause(t *testing.T) {
	err := &ConflictError{Reason: "invoice number already taken", Err: gorm.ErrDuplicatedKey}
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestStoreErr(t *testing.T) {
	assert.NoError(t, storeErr("op", nil))

	nf := &NotFoundError{Entity: "product", ID: 1}
	assert.Same(t, nf, storeErr("op", nf))

	raw := errors.New("connection reset")
	wrapped := storeErr("amend invoice", raw)
	assert.ErrorIs(t, wrapped, ErrTransaction)
	assert.ErrorIs(t, wrapped, raw)
	assert.Equal(t, "amend invoice: connection reset", wrapped.Error())
}
