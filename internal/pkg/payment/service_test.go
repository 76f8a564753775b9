package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfox/shopfox/app/models"
)

const webhookTestSecret = "whsec_unit_test"

func newTestService() (*Service, *fakeRepository, *fakeGateway) {
	repo := newFakeRepository()
	gw := &fakeGateway{}
	return NewService(repo, gw, webhookTestSecret), repo, gw
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func successEvent(eventID, gatewaySessionID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":"checkout.session.completed","data":{"object":{"id":%q}}}`,
		eventID, gatewaySessionID,
	))
}

func testLines() []CartLine {
	return []CartLine{
		{ProductID: 1, Title: "sweat shorts", Price: decimal.NewFromInt(20), Quantity: 2},
		{ProductID: 2, Title: "cap", Price: decimal.NewFromInt(10), Quantity: 1},
	}
}

func TestInitiateCheckout_ComputesAmountServerSide(t *testing.T) {
	svc, repo, gw := newTestService()

	handle, err := svc.InitiateCheckout(context.Background(), 7, testLines(), "eur")
	require.NoError(t, err)
	require.NotEmpty(t, handle.SessionID)
	require.NotEmpty(t, handle.ClientSecret)

	// 20*2 + 10*1, regardless of anything the client claims.
	assert.True(t, gw.last.Amount.Equal(decimal.NewFromInt(50)), "amount sent to gateway = %s", gw.last.Amount)

	session, err := repo.GetSessionBySessionID(handle.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusPending, session.Status)
	assert.True(t, session.Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "EUR", session.Currency)
	assert.Equal(t, uint(7), session.UserID)
}

func TestInitiateCheckout_InvalidCart(t *testing.T) {
	svc, repo, _ := newTestService()

	tests := []struct {
		name  string
		lines []CartLine
	}{
		{name: "empty cart", lines: nil},
		{name: "negative price", lines: []CartLine{{ProductID: 1, Price: decimal.NewFromInt(-5), Quantity: 1}}},
		{name: "zero quantity", lines: []CartLine{{ProductID: 1, Price: decimal.NewFromInt(5), Quantity: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.InitiateCheckout(context.Background(), 7, tt.lines, "EUR")
			assert.ErrorIs(t, err, ErrInvalidCart)
		})
	}
	assert.Empty(t, repo.sessions, "no session may be created for an invalid cart")
}

func TestInitiateCheckout_GatewayFailureLeavesNoSession(t *testing.T) {
	svc, repo, gw := newTestService()
	gw.fail = true

	_, err := svc.InitiateCheckout(context.Background(), 7, testLines(), "EUR")
	assert.ErrorIs(t, err, ErrGateway)
	assert.Empty(t, repo.sessions)
}

func TestHandlePaymentEvent_InvalidSignature(t *testing.T) {
	svc, repo, _ := newTestService()

	payload := successEvent("evt_1", "cs_test_1")
	ack, err := svc.HandlePaymentEvent(context.Background(), payload, "deadbeef")
	assert.Nil(t, ack)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, repo.events, "forged webhooks must not write anything")
}

func TestHandlePaymentEvent_UnknownSession(t *testing.T) {
	svc, _, _ := newTestService()

	payload := successEvent("evt_1", "cs_never_created")
	_, err := svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestHandlePaymentEvent_ConfirmsAndMaterializesOnce(t *testing.T) {
	svc, repo, _ := newTestService()

	handle, err := svc.InitiateCheckout(context.Background(), 7, testLines(), "EUR")
	require.NoError(t, err)
	session, err := repo.GetSessionBySessionID(handle.SessionID)
	require.NoError(t, err)

	payload := successEvent("evt_1", session.GatewaySessionID)
	ack, err := svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.False(t, ack.Duplicate)
	require.NotEmpty(t, ack.OrderID)

	assert.Equal(t, models.CheckoutStatusConfirmed, repo.sessionStatus(handle.SessionID))
	require.Equal(t, 1, repo.orderCount())

	order, err := repo.GetOrderBySessionID(handle.SessionID)
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, uint(7), order.UserID)
	assert.Len(t, order.Items, 2)

	// Second delivery of the identical event: Ack, no new side effects.
	ack2, err := svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.True(t, ack2.Duplicate)
	assert.Equal(t, 1, repo.orderCount())
}

func TestHandlePaymentEvent_DuplicateWithFreshEventID(t *testing.T) {
	svc, repo, _ := newTestService()

	handle, err := svc.InitiateCheckout(context.Background(), 7, testLines(), "EUR")
	require.NoError(t, err)
	session, err := repo.GetSessionBySessionID(handle.SessionID)
	require.NoError(t, err)

	first := successEvent("evt_1", session.GatewaySessionID)
	_, err = svc.HandlePaymentEvent(context.Background(), first, sign(first))
	require.NoError(t, err)

	// Gateway resends the same real-world event under a new event id. The
	// session is terminal, so the handler acknowledges without a second
	// transition or order.
	second := successEvent("evt_2", session.GatewaySessionID)
	ack, err := svc.HandlePaymentEvent(context.Background(), second, sign(second))
	require.NoError(t, err)
	assert.NotEmpty(t, ack.OrderID)
	assert.Equal(t, 1, repo.orderCount())
}

func TestHandlePaymentEvent_FailureOutcome(t *testing.T) {
	svc, repo, _ := newTestService()

	handle, err := svc.InitiateCheckout(context.Background(), 7, testLines(), "EUR")
	require.NoError(t, err)
	session, err := repo.GetSessionBySessionID(handle.SessionID)
	require.NoError(t, err)

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_1","type":"checkout.session.failed","data":{"object":{"id":%q}}}`,
		session.GatewaySessionID,
	))
	ack, err := svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.Empty(t, ack.OrderID)

	assert.Equal(t, models.CheckoutStatusFailed, repo.sessionStatus(handle.SessionID))
	assert.Zero(t, repo.orderCount(), "failed sessions never produce orders")

	// A late success event for the failed session must not resurrect it.
	late := successEvent("evt_2", session.GatewaySessionID)
	_, err = svc.HandlePaymentEvent(context.Background(), late, sign(late))
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusFailed, repo.sessionStatus(handle.SessionID))
	assert.Zero(t, repo.orderCount())
}

func TestHandlePaymentEvent_UnknownEventTypeIgnored(t *testing.T) {
	svc, repo, _ := newTestService()

	payload := []byte(`{"id":"evt_1","type":"invoice.created","data":{"object":{"id":"cs_x"}}}`)
	ack, err := svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.True(t, ack.Ignored)
	assert.Zero(t, repo.orderCount())
}

func TestHandlePaymentEvent_ConcurrentDeliveries(t *testing.T) {
	svc, repo, _ := newTestService()

	handle, err := svc.InitiateCheckout(context.Background(), 7, testLines(), "EUR")
	require.NoError(t, err)
	session, err := repo.GetSessionBySessionID(handle.SessionID)
	require.NoError(t, err)

	const deliveries = 16
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := successEvent(fmt.Sprintf("evt_%d", i), session.GatewaySessionID)
			_, err := svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, models.CheckoutStatusConfirmed, repo.sessionStatus(handle.SessionID))
	assert.Equal(t, 1, repo.orderCount(), "concurrent deliveries must materialize exactly one order")
}

func TestHandlePaymentEvent_RedeliveryAfterTransientFailure(t *testing.T) {
	svc, repo, _ := newTestService()

	handle, err := svc.InitiateCheckout(context.Background(), 7, testLines(), "EUR")
	require.NoError(t, err)
	session, err := repo.GetSessionBySessionID(handle.SessionID)
	require.NoError(t, err)

	// The database drops out mid-processing: the event gets recorded but
	// the confirmation fails.
	repo.failSessionLookups = 1
	payload := successEvent("evt_1", session.GatewaySessionID)
	_, err = svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.Error(t, err)
	assert.Equal(t, models.CheckoutStatusPending, repo.sessionStatus(handle.SessionID))
	assert.Zero(t, repo.orderCount())
	assert.False(t, repo.eventProcessed("evt_1"), "a failed attempt must not mark the event processed")

	// The gateway retries the identical delivery. It must run the
	// confirmation, not short-circuit as a duplicate of the failed attempt.
	ack, err := svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.NotEmpty(t, ack.OrderID)
	assert.Equal(t, models.CheckoutStatusConfirmed, repo.sessionStatus(handle.SessionID))
	assert.Equal(t, 1, repo.orderCount())
	assert.True(t, repo.eventProcessed("evt_1"))
}

func TestExpiredSessionStaysExpired(t *testing.T) {
	svc, repo, _ := newTestService()

	handle, err := svc.InitiateCheckout(context.Background(), 7, testLines(), "EUR")
	require.NoError(t, err)
	session, err := repo.GetSessionBySessionID(handle.SessionID)
	require.NoError(t, err)

	repo.ageSession(handle.SessionID, time.Hour)
	n, err := svc.ExpireStaleSessions(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, models.CheckoutStatusExpired, repo.sessionStatus(handle.SessionID))

	// A success event arriving after expiry is acknowledged terminally;
	// the session is never resurrected and no order appears.
	late := successEvent("evt_1", session.GatewaySessionID)
	ack, err := svc.HandlePaymentEvent(context.Background(), late, sign(late))
	require.NoError(t, err)
	assert.Empty(t, ack.OrderID)
	assert.Equal(t, models.CheckoutStatusExpired, repo.sessionStatus(handle.SessionID))
	assert.Zero(t, repo.orderCount())
}

func TestExpireStaleSessionsLeavesFreshSessionsAlone(t *testing.T) {
	svc, repo, _ := newTestService()

	handle, err := svc.InitiateCheckout(context.Background(), 7, testLines(), "EUR")
	require.NoError(t, err)

	n, err := svc.ExpireStaleSessions(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, models.CheckoutStatusPending, repo.sessionStatus(handle.SessionID))
}

func TestSessionWithoutEventNeverProducesOrder(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.InitiateCheckout(context.Background(), 7, testLines(), "EUR")
	require.NoError(t, err)
	assert.Zero(t, repo.orderCount())
}
