package service

import (
	"context"

	"factoryms/internal/model"
	"factoryms/internal/repository"
	"factoryms/pkg/apperror"
)

// RoleService exposes the seeded role and permission catalog.
type RoleService interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
}

type roleService struct {
	repo repository.RoleRepository
}

func NewRoleService(repo repository.RoleRepository) RoleService {
	return &roleService{repo: repo}
}

func (s *roleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.Persistence("failed to list roles", err)
	}
	return roles, nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, apperror.Persistence("failed to list permissions", err)
	}
	return perms, nil
}
