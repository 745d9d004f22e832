package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"factoryms/internal/model"
)

// RoleCount and DepartmentCount are grouped user tallies for the reports screen.
type RoleCount struct {
	Role  string `json:"role"`
	Count int64  `json:"count"`
}

type DepartmentCount struct {
	Department string `json:"department"`
	Count      int64  `json:"count"`
}

// UserStats aggregates the user-statistics report.
type UserStats struct {
	TotalUsers        int64             `json:"total_users"`
	ActiveUsers       int64             `json:"active_users"`
	UsersByRole       []RoleCount       `json:"users_by_role"`
	UsersByDepartment []DepartmentCount `json:"users_by_department"`
	RecentLogins      int64             `json:"recent_logins"`
}

type ReportRepository interface {
	UserStats(ctx context.Context, days int) (UserStats, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) UserStats(ctx context.Context, days int) (UserStats, error) {
	db := GetDB(ctx, r.db)
	var stats UserStats

	if err := db.Model(&model.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return UserStats{}, err
	}
	if err := db.Model(&model.User{}).Where("is_active").Count(&stats.ActiveUsers).Error; err != nil {
		return UserStats{}, err
	}

	if err := db.Model(&model.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&stats.UsersByRole).Error; err != nil {
		return UserStats{}, err
	}

	if err := db.Model(&model.User{}).
		Select("COALESCE(NULLIF(department, ''), 'Unassigned') AS department, COUNT(*) AS count").
		Group("COALESCE(NULLIF(department, ''), 'Unassigned')").
		Scan(&stats.UsersByDepartment).Error; err != nil {
		return UserStats{}, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	if err := db.Model(&model.ActivityLog{}).
		Where("action = ? AND created_at >= ?", model.ActivityLogin, cutoff).
		Distinct("user_id").
		Count(&stats.RecentLogins).Error; err != nil {
		return UserStats{}, err
	}

	return stats, nil
}
