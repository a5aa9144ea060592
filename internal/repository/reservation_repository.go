package repository

import (
	"context"
	"time"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"gorm.io/gorm"
)

type ReservationRepository interface {
	Create(ctx context.Context, res *model.Reservation) error
	// SumActiveForPool totals the quantities of reservations on the pool
	// that have not yet expired at the given instant.
	SumActiveForPool(ctx context.Context, categoryID, subcategoryID uint64, now time.Time) (int64, error)
	ListByOrder(ctx context.Context, orderID uint64) ([]model.Reservation, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.Reservation, error)
	DeleteByOrder(ctx context.Context, orderID uint64) error
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *reservationRepository) SumActiveForPool(ctx context.Context, categoryID, subcategoryID uint64, now time.Time) (int64, error) {
	var sum *int64
	err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Select("SUM(quantity)").
		Where("category_id = ? AND subcategory_id = ? AND expires_at > ?", categoryID, subcategoryID, now).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (r *reservationRepository) ListByOrder(ctx context.Context, orderID uint64) ([]model.Reservation, error) {
	var list []model.Reservation
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reservationRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	var list []model.Reservation
	if err := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reservationRepository) DeleteByOrder(ctx context.Context, orderID uint64) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&model.Reservation{}).Error
}
