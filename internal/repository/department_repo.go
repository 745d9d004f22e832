package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"factoryms/internal/model"
)

// DepartmentWithUsage is a department row with the number of users assigned to it.
type DepartmentWithUsage struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Manager     string    `json:"manager"`
	Location    string    `json:"location"`
	UserCount   int64     `json:"user_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type DepartmentRepository interface {
	Create(ctx context.Context, dept *model.Department) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Department, error)
	List(ctx context.Context) ([]DepartmentWithUsage, error)
	Update(ctx context.Context, dept *model.Department) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type departmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) Create(ctx context.Context, dept *model.Department) error {
	return GetDB(ctx, r.db).Create(dept).Error
}

func (r *departmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	var dept model.Department
	if err := GetDB(ctx, r.db).First(&dept, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dept, nil
}

// List returns all departments with user counts, ordered by name.
// Users reference departments by name, mirroring the requisition rows.
func (r *departmentRepository) List(ctx context.Context) ([]DepartmentWithUsage, error) {
	var rows []DepartmentWithUsage
	err := GetDB(ctx, r.db).
		Table("departments AS d").
		Select(`d.id, d.name, d.description, d.manager, d.location, d.created_at, d.updated_at,
			COUNT(u.id) AS user_count`).
		Joins("LEFT JOIN users u ON u.department = d.name AND u.deleted_at IS NULL").
		Where("d.deleted_at IS NULL").
		Group("d.id").
		Order("d.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *departmentRepository) Update(ctx context.Context, dept *model.Department) error {
	return GetDB(ctx, r.db).Save(dept).Error
}

func (r *departmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Department{}).Error
}
