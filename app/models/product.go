package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"uniqueIndex;type:varchar(200)" json:"title" validate:"required,min=2,max=200"`
	Description string          `gorm:"type:text" json:"description" validate:"required"`
	ImageURL    string          `gorm:"type:varchar(255)" json:"image_url" validate:"max=255"`
	Categories  string          `gorm:"type:varchar(255);index" json:"categories"`
	Size        string          `gorm:"type:varchar(50)" json:"size"`
	Color       string          `gorm:"type:varchar(50)" json:"color"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	InStock     bool            `gorm:"default:true" json:"in_stock"`
	ViewCount   int64           `gorm:"default:0" json:"view_count"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Product) Validate() error {
	if p.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	v := validator.New()

	return v.Struct(p)
}
