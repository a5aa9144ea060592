package model

import "time"

// Reservation is a time-bounded hold on N units of a stock pool, owned by
// exactly one order. It is deleted when the order is finalized (paid →
// sale) or released (expired / cancelled).
type Reservation struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	OrderID       uint64    `gorm:"column:order_id;not null;uniqueIndex:uk_reservations_order_pool"`
	CategoryID    uint64    `gorm:"column:category_id;not null;uniqueIndex:uk_reservations_order_pool;index:idx_reservations_pool"`
	SubcategoryID uint64    `gorm:"column:subcategory_id;not null;uniqueIndex:uk_reservations_order_pool;index:idx_reservations_pool"`
	Quantity      int       `gorm:"not null"`
	ReservedAt    time.Time `gorm:"column:reserved_at;autoCreateTime"`
	ExpiresAt     time.Time `gorm:"column:expires_at;index;not null"`
}

func (Reservation) TableName() string {
	return "reservations"
}
