package model

import "time"

// Item is a single sellable unit. Stock for a pool is the count of items
// with no owning order; items are bound to an order only when the sale is
// finalized, reservations are tracked separately until then.
type Item struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"`
	CategoryID    uint64     `gorm:"column:category_id;index:idx_items_pool;not null"`
	SubcategoryID uint64     `gorm:"column:subcategory_id;index:idx_items_pool;not null"`
	Payload       string     `gorm:"type:text"`
	OrderID       *uint64    `gorm:"column:order_id;index"`
	SoldAt        *time.Time `gorm:"column:sold_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}

func (Item) TableName() string {
	return "items"
}
