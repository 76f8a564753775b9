package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CheckoutStatusPending   = "pending"
	CheckoutStatusConfirmed = "confirmed"
	CheckoutStatusExpired   = "expired"
	CheckoutStatusFailed    = "failed"
)

// CheckoutSession tracks a single payment attempt from initiation to its
// terminal outcome. Status only ever moves pending -> confirmed or
// pending -> failed/expired; terminal states are final.
type CheckoutSession struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	SessionID        string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"session_id"`
	GatewaySessionID string          `gorm:"type:varchar(191);uniqueIndex;not null" json:"gateway_session_id"`
	UserID           uint            `gorm:"not null;index" json:"user_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	ItemsJSON        string          `gorm:"type:longtext;not null" json:"-"`
	Status           string          `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the session reached a final state.
func (s *CheckoutSession) IsTerminal() bool {
	return s.Status == CheckoutStatusConfirmed || s.Status == CheckoutStatusFailed || s.Status == CheckoutStatusExpired
}
