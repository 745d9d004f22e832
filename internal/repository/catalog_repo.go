package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"factoryms/internal/model"
)

// CatalogRepository serves read-only reference data for requisition forms.
type CatalogRepository interface {
	ListInventoryItems(ctx context.Context, search string, page, limit int) ([]model.InventoryItem, int64, error)
	FindInventoryItem(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	ListUnits(ctx context.Context) ([]model.Unit, error)
	FindUnit(ctx context.Context, id uuid.UUID) (*model.Unit, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListInventoryItems(ctx context.Context, search string, page, limit int) ([]model.InventoryItem, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.InventoryItem{})
	if search != "" {
		pattern := "%" + search + "%"
		db = db.Where("name ILIKE ? OR sku ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.InventoryItem
	offset := (page - 1) * limit
	if err := db.Preload("Unit").Order("name").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *catalogRepository) FindInventoryItem(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).Preload("Unit").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *catalogRepository) ListUnits(ctx context.Context) ([]model.Unit, error) {
	var units []model.Unit
	if err := GetDB(ctx, r.db).Order("name").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

func (r *catalogRepository) FindUnit(ctx context.Context, id uuid.UUID) (*model.Unit, error) {
	var unit model.Unit
	if err := GetDB(ctx, r.db).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}
