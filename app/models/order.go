package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusCreated   = "created"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order is materialized exactly once per confirmed checkout session. The
// unique index on SessionID is the storage-level guarantee; callers treat a
// conflicting insert as "order already exists", not as an error.
type Order struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"order_id"`
	SessionID string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"session_id"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	Items     []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2)" json:"total"`
	Currency  string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status    string          `gorm:"type:varchar(16);not null;default:'created';index" json:"status"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"-"`
	ProductID uint            `gorm:"not null" json:"product_id"`
	Title     string          `gorm:"type:varchar(200)" json:"title"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
}
