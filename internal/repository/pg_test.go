package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	violation := &pgconn.PgError{Code: "23505", ConstraintName: ConstraintInvoiceNumber}
	assert.True(t, IsUniqueViolation(violation))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", violation)))

	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestUniqueConstraintName(t *testing.T) {
	violation := &pgconn.PgError{Code: "23505", ConstraintName: ConstraintInvoicePeriod}
	assert.Equal(t, ConstraintInvoicePeriod, UniqueConstraint(violation))
	assert.Equal(t, "", UniqueConstraint(&pgconn.PgError{Code: "40001"}))
	assert.Equal(t, "", UniqueConstraint(errors.New("plain")))
}
