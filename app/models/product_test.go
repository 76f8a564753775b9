package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductValidate(t *testing.T) {
	valid := Product{
		Title:       "Canvas Sneaker",
		Description: "Low-top canvas sneaker",
		Price:       decimal.NewFromFloat(49.90),
	}
	assert.NoError(t, valid.Validate())

	negative := valid
	negative.Price = decimal.NewFromFloat(-1)
	assert.Error(t, negative.Validate())

	short := valid
	short.Title = "x"
	assert.Error(t, short.Validate())
}

func TestCartItemSubtotal(t *testing.T) {
	item := CartItem{Price: decimal.NewFromFloat(19.99), Quantity: 3}
	require.True(t, item.Subtotal().Equal(decimal.NewFromFloat(59.97)))
}
