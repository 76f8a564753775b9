package repository

import (
	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/models"
)

// productRepository implements the ProductRepository interface
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(offset, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&products).Error
	return products, err
}

// ListByCategory matches products whose category list contains the given
// category. Categories are stored as a comma-separated list.
func (r *productRepository) ListByCategory(category string, offset, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Where("FIND_IN_SET(?, categories) > 0", category).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&products).Error
	return products, err
}

func (r *productRepository) ListNewest(limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Order("created_at DESC").Limit(limit).Find(&products).Error
	return products, err
}

func (r *productRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}

func (r *productRepository) Delete(id uint) error {
	return r.db.Delete(&models.Product{}, id).Error
}

func (r *productRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Product{}).Count(&count).Error
	return count, err
}
