package repository

import (
	"context"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"gorm.io/gorm"
)

type PriceTierRepository interface {
	CreateBatch(ctx context.Context, tiers []model.PriceTier) error
	// ListForPool returns the pool's schedule ordered by min quantity
	// ascending; an empty result means the base price applies flat.
	ListForPool(ctx context.Context, categoryID, subcategoryID uint64) ([]model.PriceTier, error)
}

type priceTierRepository struct {
	db *gorm.DB
}

func NewPriceTierRepository(db *gorm.DB) PriceTierRepository {
	return &priceTierRepository{db: db}
}

func (r *priceTierRepository) CreateBatch(ctx context.Context, tiers []model.PriceTier) error {
	return r.db.WithContext(ctx).Create(&tiers).Error
}

func (r *priceTierRepository) ListForPool(ctx context.Context, categoryID, subcategoryID uint64) ([]model.PriceTier, error) {
	var list []model.PriceTier
	if err := r.db.WithContext(ctx).
		Where("category_id = ? AND subcategory_id = ?", categoryID, subcategoryID).
		Order("min_quantity").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
