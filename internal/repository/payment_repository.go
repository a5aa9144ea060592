package repository

import (
	"context"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.PaymentTransaction) error
	ExistsTxHash(ctx context.Context, txHash string) (bool, error)
	ListByOrder(ctx context.Context, orderID uint64) ([]model.PaymentTransaction, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *model.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepository) ExistsTxHash(ctx context.Context, txHash string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("tx_hash = ?", txHash).
		Count(&n).Error
	return n > 0, err
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uint64) ([]model.PaymentTransaction, error) {
	var list []model.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
