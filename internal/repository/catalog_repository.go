package repository

import (
	"context"

	"github.com/shinyyama/chatshop-backend/internal/model"
	"gorm.io/gorm"
)

type CatalogRepository interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	CreateSubcategory(ctx context.Context, s *model.Subcategory) error
	FindSubcategory(ctx context.Context, categoryID, subcategoryID uint64) (*model.Subcategory, error)
	ListSubcategories(ctx context.Context, limit, offset int) ([]model.Subcategory, int64, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *catalogRepository) CreateSubcategory(ctx context.Context, s *model.Subcategory) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *catalogRepository) FindSubcategory(ctx context.Context, categoryID, subcategoryID uint64) (*model.Subcategory, error) {
	var s model.Subcategory
	if err := r.db.WithContext(ctx).
		Where("id = ? AND category_id = ?", subcategoryID, categoryID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *catalogRepository) ListSubcategories(ctx context.Context, limit, offset int) ([]model.Subcategory, int64, error) {
	var (
		list  []model.Subcategory
		total int64
	)
	if err := r.db.WithContext(ctx).Model(&model.Subcategory{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if err := r.db.WithContext(ctx).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
