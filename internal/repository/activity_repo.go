package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"factoryms/internal/model"
)

// ActivityFilter narrows activity queries. Zero Days means no date cutoff.
type ActivityFilter struct {
	Days   int
	UserID *uuid.UUID
	Action string
	Limit  int
}

type ActivityRepository interface {
	Log(ctx context.Context, entry *model.ActivityLog) error
	List(ctx context.Context, filter ActivityFilter) ([]model.ActivityLog, error)
	ListPaged(ctx context.Context, page, limit int) ([]model.ActivityLog, int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Log(ctx context.Context, entry *model.ActivityLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *activityRepository) List(ctx context.Context, filter ActivityFilter) ([]model.ActivityLog, error) {
	db := GetDB(ctx, r.db).Model(&model.ActivityLog{}).Preload("User")

	if filter.Days > 0 {
		cutoff := time.Now().AddDate(0, 0, -filter.Days)
		db = db.Where("created_at >= ?", cutoff)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}

	var logs []model.ActivityLog
	if err := db.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *activityRepository) ListPaged(ctx context.Context, page, limit int) ([]model.ActivityLog, int64, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := db.Model(&model.ActivityLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.ActivityLog
	offset := (page - 1) * limit
	if err := db.Preload("User").Order("created_at desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
