package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement"`
	UserUID         string          `gorm:"column:user_uid;size:128;index;not null"`
	Status          OrderStatus     `gorm:"column:status;size:32;index;not null"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:decimal(18,8);not null"`
	Currency        string          `gorm:"size:8;not null"`
	PaymentAddress  string          `gorm:"column:payment_address;size:128;not null;uniqueIndex:uk_orders_payment_address"`
	ShippingAddress string          `gorm:"column:shipping_address;type:text"`
	ExpiresAt       time.Time       `gorm:"column:expires_at;index;not null"`
	PaidAt          *time.Time      `gorm:"column:paid_at"`
	ShippedAt       *time.Time      `gorm:"column:shipped_at"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement"`
	OrderID       uint64          `gorm:"column:order_id;index;not null"`
	CategoryID    uint64          `gorm:"column:category_id;not null"`
	SubcategoryID uint64          `gorm:"column:subcategory_id;not null"`
	Quantity      int             `gorm:"not null"`
	LineTotal     decimal.Decimal `gorm:"column:line_total;type:decimal(18,8);not null"`
	// PriceBreakdown is the rendered tier breakdown captured at checkout,
	// kept as an immutable audit snapshot of how LineTotal was computed.
	PriceBreakdown string    `gorm:"column:price_breakdown;type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
