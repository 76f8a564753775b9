package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/models"
)

var (
	// ErrInvalidCart rejects empty carts and carts with negative prices or
	// non-positive quantities.
	ErrInvalidCart = errors.New("invalid cart")
	// ErrGateway covers any failure talking to the payment provider during
	// initiation. No local session is created in that case.
	ErrGateway = errors.New("payment gateway error")
	// ErrInvalidSignature rejects forged or malformed webhook deliveries.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrUnknownSession rejects webhook events referencing a session this
	// system never created.
	ErrUnknownSession = errors.New("unknown checkout session")
)

// Service implements checkout initiation and idempotent payment confirmation.
type Service struct {
	repo          Repository
	gateway       Gateway
	webhookSecret string
}

// NewService creates a checkout service from injected dependencies.
func NewService(repo Repository, gateway Gateway, webhookSecret string) *Service {
	return &Service{repo: repo, gateway: gateway, webhookSecret: webhookSecret}
}

// NewServiceFromDB creates a checkout service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, webhookSecret string) *Service {
	return NewService(NewRepository(db), gateway, webhookSecret)
}

// InitiateCheckout validates the cart snapshot, computes the amount server
// side, obtains a session from the gateway and only then persists a pending
// CheckoutSession. A gateway failure leaves no local state behind.
func (s *Service) InitiateCheckout(ctx context.Context, userID uint, lines []CartLine, currency string) (*CheckoutHandle, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidCart)
	}

	amount := decimal.Zero
	for _, line := range lines {
		if line.Price.IsNegative() {
			return nil, fmt.Errorf("%w: negative price on product %d", ErrInvalidCart, line.ProductID)
		}
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: non-positive quantity on product %d", ErrInvalidCart, line.ProductID)
		}
		amount = amount.Add(line.Subtotal())
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "EUR"
	}

	sessionID := uuid.NewString()
	gw, err := s.gateway.CreateSession(ctx, CreateSessionRequest{
		Amount:    amount,
		Currency:  currency,
		Reference: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	itemsJSON, err := json.Marshal(lines)
	if err != nil {
		return nil, err
	}

	session := &models.CheckoutSession{
		SessionID:        sessionID,
		GatewaySessionID: gw.ID,
		UserID:           userID,
		Amount:           amount,
		Currency:         currency,
		ItemsJSON:        string(itemsJSON),
		Status:           models.CheckoutStatusPending,
	}
	if err := s.repo.CreateSession(session); err != nil {
		return nil, err
	}

	return &CheckoutHandle{SessionID: sessionID, ClientSecret: gw.ClientSecret}, nil
}

// HandlePaymentEvent processes one webhook delivery. Signature verification
// happens before any write. Deliveries are deduplicated by event id, session
// transitions go through a compare-and-set on status=pending, and order
// materialization is guarded by the session_id uniqueness constraint, so
// repeated or concurrent deliveries of the same real-world event produce
// exactly one confirmed transition and at most one order.
func (s *Service) HandlePaymentEvent(ctx context.Context, rawBody []byte, signatureHeader string) (*Ack, error) {
	if !VerifyWebhookSignature(rawBody, signatureHeader, s.webhookSecret) {
		return nil, ErrInvalidSignature
	}

	ev, err := ParseWebhookEvent(rawBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	eventID := ev.EventID
	if eventID == "" {
		// Providers occasionally omit event ids; fall back to a payload
		// digest so redeliveries still deduplicate.
		eventID = "hash:" + payloadDigest(rawBody)
	}

	created, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.PaymentWebhookEvent{
		Provider:        ProviderStripe,
		ProviderEventID: eventID,
		EventType:       ev.EventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return nil, err
	}
	// A redelivery of an already-processed event is a pure no-op. If the
	// first attempt crashed between recording and processing, ProcessedAt is
	// still nil and we process again; every step below is idempotent.
	if !created && stored.ProcessedAt != nil {
		return &Ack{Duplicate: true}, nil
	}

	ack, procErr := s.applyEvent(ctx, ev)
	if procErr != nil {
		// An unknown session never becomes known; that rejection is final.
		// Every other failure may be transient, so processed_at stays NULL
		// and the gateway's redelivery runs the confirmation again instead
		// of short-circuiting as a duplicate.
		if errors.Is(procErr, ErrUnknownSession) {
			_ = s.repo.MarkWebhookProcessed(stored.ID, procErr.Error())
		} else {
			_ = s.repo.RecordWebhookError(stored.ID, procErr.Error())
		}
		return nil, procErr
	}
	if markErr := s.repo.MarkWebhookProcessed(stored.ID, ""); markErr != nil {
		return nil, markErr
	}
	if !created {
		ack.Duplicate = true
	}
	return ack, nil
}

func (s *Service) applyEvent(ctx context.Context, ev *WebhookEvent) (*Ack, error) {
	var target string
	switch ev.EventType {
	case EventCheckoutCompleted:
		target = models.CheckoutStatusConfirmed
	case EventCheckoutFailed:
		target = models.CheckoutStatusFailed
	case EventCheckoutExpired:
		target = models.CheckoutStatusExpired
	default:
		return &Ack{Ignored: true}, nil
	}

	session, err := s.repo.GetSessionByGatewayID(ev.GatewaySessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownSession
		}
		return nil, err
	}

	if session.IsTerminal() {
		return s.ackTerminal(session)
	}

	won, err := s.repo.TransitionSessionStatus(session.ID, models.CheckoutStatusPending, target)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent delivery won the transition; observe the outcome it
		// produced and acknowledge without side effects.
		session, err = s.repo.GetSessionBySessionID(session.SessionID)
		if err != nil {
			return nil, err
		}
		return s.ackTerminal(session)
	}

	if target != models.CheckoutStatusConfirmed {
		return &Ack{}, nil
	}

	session.Status = models.CheckoutStatusConfirmed
	order, err := s.materializeOrder(session)
	if err != nil {
		return nil, err
	}
	return &Ack{OrderID: order.OrderID}, nil
}

// ackTerminal acknowledges a delivery for a session already in a terminal
// state. For confirmed sessions it re-runs materialization, which is a no-op
// when the order exists; this heals a crash between the confirmed transition
// and the order insert.
func (s *Service) ackTerminal(session *models.CheckoutSession) (*Ack, error) {
	if session.Status != models.CheckoutStatusConfirmed {
		return &Ack{}, nil
	}
	order, err := s.materializeOrder(session)
	if err != nil {
		return nil, err
	}
	return &Ack{OrderID: order.OrderID}, nil
}

// materializeOrder builds an order from a confirmed session's stored snapshot
// and inserts it at most once. The snapshot is never re-read from the live
// cart. A lost insert race is success: the existing order is returned.
func (s *Service) materializeOrder(session *models.CheckoutSession) (*models.Order, error) {
	var lines []CartLine
	if err := json.Unmarshal([]byte(session.ItemsJSON), &lines); err != nil {
		return nil, fmt.Errorf("corrupt items snapshot for session %s: %w", session.SessionID, err)
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Title:     line.Title,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}

	order := &models.Order{
		OrderID:   uuid.NewString(),
		SessionID: session.SessionID,
		UserID:    session.UserID,
		Items:     items,
		Total:     session.Amount,
		Currency:  session.Currency,
		Status:    models.OrderStatusCreated,
	}

	created, err := s.repo.CreateOrderIfAbsent(order)
	if err != nil {
		return nil, err
	}
	if !created {
		return s.repo.GetOrderBySessionID(session.SessionID)
	}
	return order, nil
}

// ExpireStaleSessions moves pending sessions older than maxAge into the
// expired terminal state and returns how many were affected.
func (s *Service) ExpireStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error) {
	_ = ctx
	return s.repo.ExpireStaleSessions(time.Now().Add(-maxAge))
}

func payloadDigest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
