package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVariantKey_NormalizesSize(t *testing.T) {
	assert.Equal(t, VariantKey{ProductID: 1, Size: "default"}, NewVariantKey(1, ""))
	assert.Equal(t, VariantKey{ProductID: 1, Size: "42"}, NewVariantKey(1, "42"))

	// A sizeless line item and an explicit "default" size collide on
	// purpose: they are the same variant.
	a := LineItem{ProductID: 1, Size: ""}
	b := LineItem{ProductID: 1, Size: DefaultSize}
	assert.Equal(t, a.Key(), b.Key())
}

func TestSummarize(t *testing.T) {
	assert.Zero(t, Summarize(nil))

	summary := Summarize([]LineItem{
		{ProductID: 1, Quantity: 2, UnitPriceCents: 12999},
		{ProductID: 2, Quantity: 1, UnitPriceCents: 8000},
	})
	assert.Equal(t, 3, summary.TotalItems)
	assert.Equal(t, int64(33998), summary.TotalAmountCents)
}

func TestMoneyConversion(t *testing.T) {
	assert.Equal(t, int64(12999), ToCents(129.99))
	assert.Equal(t, int64(100), ToCents(1))

	// 58.29 is not exactly representable in binary; rounding keeps the
	// cent value exact.
	assert.Equal(t, int64(5829), ToCents(58.29))

	assert.InDelta(t, 129.99, CentsToDecimal(12999), 0.0001)
}

func TestOwner(t *testing.T) {
	guest := GuestOwner()
	assert.True(t, guest.IsGuest())
	_, ok := guest.CustomerID()
	assert.False(t, ok)

	customer := CustomerOwner(42)
	assert.False(t, customer.IsGuest())
	id, ok := customer.CustomerID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}
