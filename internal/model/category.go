package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:120;not null;uniqueIndex:uk_categories_name"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Category) TableName() string {
	return "categories"
}

// Subcategory is the unit of stock fungibility: every unsold item in the
// same (category, subcategory) pool is interchangeable at checkout.
type Subcategory struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement"`
	CategoryID uint64          `gorm:"column:category_id;not null;uniqueIndex:uk_subcategories_cat_name"`
	Name       string          `gorm:"size:120;not null;uniqueIndex:uk_subcategories_cat_name"`
	BasePrice  decimal.Decimal `gorm:"column:base_price;type:decimal(18,8);not null"`
	Currency   string          `gorm:"size:8;not null"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
}

func (Subcategory) TableName() string {
	return "subcategories"
}
