package model

import "time"

// OrderEvent is the audit trail row written for every applied status
// transition, before the order itself is updated in the same transaction.
type OrderEvent struct {
	ID         uint64      `gorm:"primaryKey;autoIncrement"`
	OrderID    uint64      `gorm:"column:order_id;index;not null"`
	FromStatus OrderStatus `gorm:"column:from_status;size:32;not null"`
	ToStatus   OrderStatus `gorm:"column:to_status;size:32;not null"`
	ActorUID   string      `gorm:"column:actor_uid;size:128"`
	Reason     string      `gorm:"size:255"`
	CreatedAt  time.Time   `gorm:"autoCreateTime"`
}

func (OrderEvent) TableName() string {
	return "order_events"
}
