package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentTransaction records one accepted gateway notification. Created
// exactly once per unique tx hash and never updated afterwards.
type PaymentTransaction struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	OrderID        uint64          `gorm:"column:order_id;index;not null"`
	InvoiceID      string          `gorm:"column:invoice_id;size:128"`
	TxHash         string          `gorm:"column:tx_hash;size:128;not null;uniqueIndex:uk_payment_transactions_tx_hash"`
	ReceivedAmount decimal.Decimal `gorm:"column:received_amount;type:decimal(18,8);not null"`
	Currency       string          `gorm:"size:8;not null"`
	Confirmations  int             `gorm:"not null"`
	IsUnderpayment bool            `gorm:"column:is_underpayment;not null"`
	IsOverpayment  bool            `gorm:"column:is_overpayment;not null"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
