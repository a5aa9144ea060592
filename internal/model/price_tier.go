package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTier is one row of a quantity discount schedule for a stock pool.
// A schedule is the set of tiers for one pool ordered by MinQuantity; the
// first tier must start at 1 and MinQuantity values must be distinct.
type PriceTier struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement"`
	CategoryID    uint64          `gorm:"column:category_id;not null;uniqueIndex:uk_price_tiers_pool_min"`
	SubcategoryID uint64          `gorm:"column:subcategory_id;not null;uniqueIndex:uk_price_tiers_pool_min"`
	MinQuantity   int             `gorm:"column:min_quantity;not null;uniqueIndex:uk_price_tiers_pool_min"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:decimal(18,8);not null"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
}

func (PriceTier) TableName() string {
	return "price_tiers"
}
