package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"factoryms/internal/model"
	"factoryms/internal/repository"
	"factoryms/pkg/apperror"
)

// CatalogService exposes the read-only inventory catalog that requisition
// line items may reference.
type CatalogService interface {
	ListInventoryItems(ctx context.Context, search string, page, limit int) ([]model.InventoryItem, int64, error)
	GetInventoryItem(ctx context.Context, id string) (*model.InventoryItem, error)
	ListUnits(ctx context.Context) ([]model.Unit, error)
}

type catalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) ListInventoryItems(ctx context.Context, search string, page, limit int) ([]model.InventoryItem, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	items, total, err := s.repo.ListInventoryItems(ctx, search, page, limit)
	if err != nil {
		return nil, 0, apperror.Persistence("failed to list inventory items", err)
	}
	return items, total, nil
}

func (s *catalogService) GetInventoryItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NotFound("inventory item not found")
	}
	item, err := s.repo.FindInventoryItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("inventory item not found")
		}
		return nil, apperror.Persistence("failed to load inventory item", err)
	}
	return item, nil
}

func (s *catalogService) ListUnits(ctx context.Context) ([]model.Unit, error) {
	units, err := s.repo.ListUnits(ctx)
	if err != nil {
		return nil, apperror.Persistence("failed to list units", err)
	}
	return units, nil
}
