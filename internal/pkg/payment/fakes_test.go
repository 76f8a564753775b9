package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/models"
)

// fakeRepository is an in-memory Repository with the same conditional-update
// and unique-constraint semantics as the GORM implementation.
type fakeRepository struct {
	mu       sync.Mutex
	nextID   uint
	sessions map[uint]*models.CheckoutSession
	orders   []*models.Order
	events   map[string]*models.PaymentWebhookEvent

	// failSessionLookups makes the next N GetSessionByGatewayID calls fail,
	// simulating a transient database error mid-processing.
	failSessionLookups int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		sessions: make(map[uint]*models.CheckoutSession),
		events:   make(map[string]*models.PaymentWebhookEvent),
	}
}

func (f *fakeRepository) CreateSession(session *models.CheckoutSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.GatewaySessionID == session.GatewaySessionID {
			return errors.New("duplicate gateway_session_id")
		}
	}
	f.nextID++
	session.ID = f.nextID
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeRepository) GetSessionByGatewayID(gatewaySessionID string) (*models.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSessionLookups > 0 {
		f.failSessionLookups--
		return nil, errors.New("connection reset")
	}
	for _, s := range f.sessions {
		if s.GatewaySessionID == gatewaySessionID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetSessionBySessionID(sessionID string) (*models.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.SessionID == sessionID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) TransitionSessionStatus(id uint, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (f *fakeRepository) ExpireStaleSessions(olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.sessions {
		if s.Status == models.CheckoutStatusPending && s.CreatedAt.Before(olderThan) {
			s.Status = models.CheckoutStatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeRepository) CreateOrderIfAbsent(order *models.Order) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.SessionID == order.SessionID {
			return false, nil
		}
	}
	f.nextID++
	order.ID = f.nextID
	cp := *order
	f.orders = append(f.orders, &cp)
	return true, nil
}

func (f *fakeRepository) GetOrderBySessionID(sessionID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.SessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := f.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	f.nextID++
	event.ID = f.nextID
	cp := *event
	f.events[key] = &cp
	out := cp
	return true, &out, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) RecordWebhookError(id uint, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ageSession backdates a session's CreatedAt so expiry sweeps pick it up.
func (f *fakeRepository) ageSession(sessionID string, age time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.SessionID == sessionID {
			s.CreatedAt = time.Now().Add(-age)
		}
	}
}

func (f *fakeRepository) eventProcessed(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ProviderEventID == eventID {
			return e.ProcessedAt != nil
		}
	}
	return false
}

func (f *fakeRepository) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeRepository) sessionStatus(sessionID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.SessionID == sessionID {
			return s.Status
		}
	}
	return ""
}

// fakeGateway is an in-memory Gateway that can be flipped into failure mode.
type fakeGateway struct {
	mu    sync.Mutex
	calls int
	fail  bool
	last  CreateSessionRequest
}

func (g *fakeGateway) CreateSession(ctx context.Context, req CreateSessionRequest) (*GatewaySession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.last = req
	if g.fail {
		return nil, errors.New("gateway unavailable")
	}
	id := fmt.Sprintf("cs_test_%d", g.calls)
	return &GatewaySession{ID: id, ClientSecret: id + "_secret"}, nil
}
