package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the single active cart per user. Line items carry a price snapshot
// read from the live catalog when the item is added; checkout carries that
// snapshot into the session, so later catalog edits do not change it.
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type CartItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CartID    uint            `gorm:"not null;index:ux_cart_items_cart_product,unique,priority:1" json:"cart_id"`
	ProductID uint            `gorm:"not null;index:ux_cart_items_cart_product,unique,priority:2" json:"product_id"`
	Title     string          `gorm:"type:varchar(200)" json:"title"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Subtotal returns price multiplied by quantity for a single line item.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
