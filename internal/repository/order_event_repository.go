package repository

import (
	"context"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"gorm.io/gorm"
)

type OrderEventRepository interface {
	Create(ctx context.Context, e *model.OrderEvent) error
	ListByOrder(ctx context.Context, orderID uint64) ([]model.OrderEvent, error)
}

type orderEventRepository struct {
	db *gorm.DB
}

func NewOrderEventRepository(db *gorm.DB) OrderEventRepository {
	return &orderEventRepository{db: db}
}

func (r *orderEventRepository) Create(ctx context.Context, e *model.OrderEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *orderEventRepository) ListByOrder(ctx context.Context, orderID uint64) ([]model.OrderEvent, error) {
	var list []model.OrderEvent
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
