package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/models"
)

// orderRepository implements the OrderRepository interface
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByOrderID(orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByUserID(userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) List(offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").Offset(offset).Limit(limit).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *orderRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, id).Error
	})
}

// MonthlyIncome aggregates order totals per month for admin revenue stats.
func (r *orderRepository) MonthlyIncome(since time.Time) ([]MonthlyAmount, error) {
	var rows []MonthlyAmount
	err := r.db.Model(&models.Order{}).
		Select("DATE_FORMAT(created_at, '%Y-%m') AS month, SUM(total) AS total").
		Where("created_at >= ?", since).
		Group("month").
		Order("month ASC").
		Scan(&rows).Error
	return rows, err
}
