package payment

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopfox/shopfox/app/models"
)

// Repository provides DB operations used by the checkout service. All status
// transitions are single-row conditional updates; no read-modify-write with a
// separate lock, and no lock is ever held across a gateway call.
type Repository interface {
	CreateSession(session *models.CheckoutSession) error
	GetSessionByGatewayID(gatewaySessionID string) (*models.CheckoutSession, error)
	GetSessionBySessionID(sessionID string) (*models.CheckoutSession, error)
	TransitionSessionStatus(id uint, from, to string) (bool, error)
	ExpireStaleSessions(olderThan time.Time) (int64, error)
	CreateOrderIfAbsent(order *models.Order) (bool, error)
	GetOrderBySessionID(sessionID string) (*models.Order, error)
	CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	RecordWebhookError(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a checkout repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateSession(session *models.CheckoutSession) error {
	return r.db.Create(session).Error
}

func (r *gormRepository) GetSessionByGatewayID(gatewaySessionID string) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	err := r.db.Where("gateway_session_id = ?", gatewaySessionID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) GetSessionBySessionID(sessionID string) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	err := r.db.Where("session_id = ?", sessionID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TransitionSessionStatus performs a compare-and-set on the session status.
// Exactly one of any number of concurrent callers observes RowsAffected == 1;
// the rest report false and must take the idempotent path.
func (r *gormRepository) TransitionSessionStatus(id uint, from, to string) (bool, error) {
	tx := r.db.Model(&models.CheckoutSession{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ExpireStaleSessions moves pending sessions older than the cutoff into the
// expired terminal state. The status guard keeps it from touching sessions a
// concurrent webhook already confirmed or failed.
func (r *gormRepository) ExpireStaleSessions(olderThan time.Time) (int64, error) {
	tx := r.db.Model(&models.CheckoutSession{}).
		Where("status = ? AND created_at < ?", models.CheckoutStatusPending, olderThan).
		Update("status", models.CheckoutStatusExpired)
	return tx.RowsAffected, tx.Error
}

// CreateOrderIfAbsent inserts an order unless one already exists for the same
// checkout session. The unique index on session_id makes this safe under
// concurrent materialization; a conflicting insert reports created=false.
func (r *gormRepository) CreateOrderIfAbsent(order *models.Order) (bool, error) {
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		items := order.Items
		order.Items = nil
		res := tx.Omit("Items").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).Create(order)
		if res.Error != nil {
			order.Items = items
			return res.Error
		}
		order.Items = items
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		for i := range items {
			items[i].OrderID = order.ID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
	return created, err
}

func (r *gormRepository) GetOrderBySessionID(sessionID string) (*models.Order, error) {
	var o models.Order
	err := r.db.Preload("Items").Where("session_id = ?", sessionID).First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// RecordWebhookError stores the failure reason while leaving processed_at
// NULL, so a redelivery of the same event id runs the processing again.
func (r *gormRepository) RecordWebhookError(id uint, processingError string) error {
	return r.db.Model(&models.PaymentWebhookEvent{}).
		Where("id = ?", id).
		Update("processing_error", processingError).Error
}
