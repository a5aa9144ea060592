package repository

import (
	"context"
	"time"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"gorm.io/gorm"
)

type ItemRepository interface {
	CreateBatch(ctx context.Context, items []model.Item) error
	FindByID(ctx context.Context, id uint64) (*model.Item, error)
	CountUnsold(ctx context.Context, categoryID, subcategoryID uint64) (int64, error)
	// MarkSold binds up to qty unsold items of the pool to the order and
	// stamps them sold. Returns the number of rows actually updated.
	MarkSold(ctx context.Context, categoryID, subcategoryID uint64, qty int, orderID uint64, now time.Time) (int64, error)
	ListByOrder(ctx context.Context, orderID uint64) ([]model.Item, error)
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) CreateBatch(ctx context.Context, items []model.Item) error {
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *itemRepository) FindByID(ctx context.Context, id uint64) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) CountUnsold(ctx context.Context, categoryID, subcategoryID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("category_id = ? AND subcategory_id = ? AND order_id IS NULL", categoryID, subcategoryID).
		Count(&n).Error
	return n, err
}

func (r *itemRepository) MarkSold(ctx context.Context, categoryID, subcategoryID uint64, qty int, orderID uint64, now time.Time) (int64, error) {
	var ids []uint64
	if err := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("category_id = ? AND subcategory_id = ? AND order_id IS NULL", categoryID, subcategoryID).
		Order("id").
		Limit(qty).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("id IN ? AND order_id IS NULL", ids).
		Updates(map[string]interface{}{
			"order_id": orderID,
			"sold_at":  now,
		})
	return res.RowsAffected, res.Error
}

func (r *itemRepository) ListByOrder(ctx context.Context, orderID uint64) ([]model.Item, error) {
	var list []model.Item
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
