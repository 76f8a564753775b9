package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/models"
)

// cartRepository implements the CartRepository interface
type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository creates a new cart repository instance
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// GetOrCreateByUserID loads the user's cart, creating an empty one when none
// exists yet. The unique index on user_id keeps this race-safe: a losing
// concurrent create falls back to loading the winner's row.
func (r *cartRepository) GetOrCreateByUserID(userID uint) (*models.Cart, error) {
	cart, err := r.GetByUserID(userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.Cart{UserID: userID}
	if err := r.db.Create(fresh).Error; err != nil {
		return r.GetByUserID(userID)
	}
	return fresh, nil
}

func (r *cartRepository) GetByUserID(userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// ReplaceItems swaps the full item set of a cart in one transaction.
func (r *cartRepository) ReplaceItems(cartID uint, items []models.CartItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].ID = 0
			items[i].CartID = cartID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (r *cartRepository) Clear(cartID uint) error {
	return r.db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

func (r *cartRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Cart{}, id).Error
	})
}

func (r *cartRepository) List(offset, limit int) ([]models.Cart, error) {
	var carts []models.Cart
	err := r.db.Preload("Items").Offset(offset).Limit(limit).Order("updated_at DESC").Find(&carts).Error
	return carts, err
}
