package payment

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Provider identifier used for webhook event deduplication keys.
const ProviderStripe = "stripe"

// Gateway event types the confirmation handler acts on. Anything else is
// acknowledged and ignored.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutFailed    = "checkout.session.failed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// CartLine is one line of the cart snapshot captured at checkout initiation.
// The snapshot travels with the session so a cart edited after checkout began
// cannot change what gets ordered.
type CartLine struct {
	ProductID uint            `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns price multiplied by quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CheckoutHandle is what the client needs to complete payment with the
// gateway.
type CheckoutHandle struct {
	SessionID    string `json:"session_id"`
	ClientSecret string `json:"client_secret"`
}

// WebhookEvent is the normalized form of a gateway notification.
type WebhookEvent struct {
	EventID          string
	EventType        string
	GatewaySessionID string
}

// Ack is the confirmation handler's result. Duplicate deliveries and
// already-terminal sessions are acknowledged without side effects.
type Ack struct {
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
}

type webhookEventPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// ParseWebhookEvent extracts the event id, type and gateway session reference
// from a raw webhook body.
func ParseWebhookEvent(raw []byte) (*WebhookEvent, error) {
	var payload webhookEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	ev := &WebhookEvent{
		EventID:          strings.TrimSpace(payload.ID),
		EventType:        strings.TrimSpace(payload.Type),
		GatewaySessionID: strings.TrimSpace(payload.Data.Object.ID),
	}
	if ev.EventType == "" || ev.GatewaySessionID == "" {
		return nil, errors.New("webhook event is missing type or session reference")
	}
	return ev, nil
}
