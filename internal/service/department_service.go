package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"factoryms/internal/model"
	"factoryms/internal/repository"
	"factoryms/pkg/apperror"
)

type CreateDepartmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Manager     string `json:"manager"`
	Location    string `json:"location"`
}

type UpdateDepartmentRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Manager     *string `json:"manager"`
	Location    *string `json:"location"`
}

type DepartmentService interface {
	Create(ctx context.Context, actor Actor, req CreateDepartmentRequest) (*model.Department, error)
	Get(ctx context.Context, id string) (*model.Department, error)
	List(ctx context.Context) ([]repository.DepartmentWithUsage, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateDepartmentRequest) (*model.Department, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type departmentService struct {
	repo     repository.DepartmentRepository
	activity ActivityRecorder
}

func NewDepartmentService(repo repository.DepartmentRepository, activity ActivityRecorder) DepartmentService {
	return &departmentService{repo: repo, activity: activity}
}

func (s *departmentService) Create(ctx context.Context, actor Actor, req CreateDepartmentRequest) (*model.Department, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("department name is required")
	}

	dept := &model.Department{
		Name:        name,
		Description: req.Description,
		Manager:     req.Manager,
		Location:    req.Location,
	}
	if err := s.repo.Create(ctx, dept); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("department already exists")
		}
		return nil, apperror.Persistence("failed to create department", err)
	}

	s.activity.Record(ctx, model.ActivityLog{
		UserID:  &actor.ID,
		Action:  model.ActivityCreate,
		Summary: "Created department: " + name,
	})
	return dept, nil
}

func (s *departmentService) Get(ctx context.Context, id string) (*model.Department, error) {
	deptID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NotFound("department not found")
	}
	dept, err := s.repo.FindByID(ctx, deptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("department not found")
		}
		return nil, apperror.Persistence("failed to load department", err)
	}
	return dept, nil
}

func (s *departmentService) List(ctx context.Context) ([]repository.DepartmentWithUsage, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.Persistence("failed to list departments", err)
	}
	return rows, nil
}

func (s *departmentService) Update(ctx context.Context, actor Actor, id string, req UpdateDepartmentRequest) (*model.Department, error) {
	dept, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("department name cannot be empty")
		}
		dept.Name = name
	}
	if req.Description != nil {
		dept.Description = *req.Description
	}
	if req.Manager != nil {
		dept.Manager = *req.Manager
	}
	if req.Location != nil {
		dept.Location = *req.Location
	}

	if err := s.repo.Update(ctx, dept); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("department already exists")
		}
		return nil, apperror.Persistence("failed to update department", err)
	}

	s.activity.Record(ctx, model.ActivityLog{
		UserID:  &actor.ID,
		Action:  model.ActivityUpdate,
		Summary: "Updated department: " + dept.Name,
	})
	return dept, nil
}

func (s *departmentService) Delete(ctx context.Context, actor Actor, id string) error {
	dept, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, dept.ID); err != nil {
		return apperror.Persistence("failed to delete department", err)
	}

	s.activity.Record(ctx, model.ActivityLog{
		UserID:  &actor.ID,
		Action:  model.ActivityDelete,
		Summary: "Deleted department: " + dept.Name,
	})
	return nil
}
