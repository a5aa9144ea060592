package repository

import (
	"context"
	"time"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id uint64) (*model.Order, error)
	FindByPaymentAddress(ctx context.Context, address string) (*model.Order, error)
	ListByUser(ctx context.Context, userUID string) ([]model.Order, error)
	// ListExpiredCreated returns orders still in the created state whose
	// expiry has passed, for the background sweep.
	ListExpiredCreated(ctx context.Context, now time.Time, limit int) ([]model.Order, error)
	UpdateFields(ctx context.Context, id uint64, fields map[string]interface{}) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, o *model.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) FindByPaymentAddress(ctx context.Context, address string) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("payment_address = ?", address).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userUID string) ([]model.Order, error) {
	var list []model.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_uid = ?", userUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepository) ListExpiredCreated(ctx context.Context, now time.Time, limit int) ([]model.Order, error) {
	var list []model.Order
	q := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", model.OrderStatusCreated, now).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepository) UpdateFields(ctx context.Context, id uint64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}
