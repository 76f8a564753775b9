package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	RegistrationsPerMonth(since time.Time) ([]MonthlyCount, error)
}

// ProductRepository defines the interface for catalog operations
type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	List(offset, limit int) ([]models.Product, error)
	ListByCategory(category string, offset, limit int) ([]models.Product, error)
	ListNewest(limit int) ([]models.Product, error)
	Update(product *models.Product) error
	Delete(id uint) error
	Count() (int64, error)
}

// CartRepository defines the interface for cart operations
type CartRepository interface {
	GetOrCreateByUserID(userID uint) (*models.Cart, error)
	GetByUserID(userID uint) (*models.Cart, error)
	ReplaceItems(cartID uint, items []models.CartItem) error
	Clear(cartID uint) error
	Delete(id uint) error
	List(offset, limit int) ([]models.Cart, error)
}

// OrderRepository defines the interface for order read/admin operations.
// Order creation goes through the payment service, which enforces the
// session uniqueness invariant at insert time.
type OrderRepository interface {
	GetByID(id uint) (*models.Order, error)
	GetByOrderID(orderID string) (*models.Order, error)
	ListByUserID(userID uint) ([]models.Order, error)
	List(offset, limit int) ([]models.Order, error)
	UpdateStatus(id uint, status string) error
	Delete(id uint) error
	MonthlyIncome(since time.Time) ([]MonthlyAmount, error)
}

// MonthlyCount is a per-month aggregate used by admin stats.
type MonthlyCount struct {
	Month string
	Count int64
}

// MonthlyAmount is a per-month revenue aggregate used by admin stats.
type MonthlyAmount struct {
	Month string
	Total decimal.Decimal
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Product ProductRepository
	Cart    CartRepository
	Order   OrderRepository
}

// NewRepositories creates all repositories from one DB handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Product: NewProductRepository(db),
		Cart:    NewCartRepository(db),
		Order:   NewOrderRepository(db),
	}
}
