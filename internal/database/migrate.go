package database

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"factoryms/internal/model"
)

// Migrate applies versioned schema migrations and seed data.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250812_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&model.User{},
					&model.RefreshToken{},
					&model.Department{},
					&model.Unit{},
					&model.InventoryItem{},
					&model.Requisition{},
					&model.RequisitionItem{},
					&model.RequisitionApproval{},
					&model.ActivityLog{},
				)
			},
		},
		{
			ID: "20250812_add_rbac_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.Role{}, &model.Permission{})
			},
		},
		{
			ID: "20250813_seed_roles_permissions",
			Migrate: func(tx *gorm.DB) error {
				return seedRolesAndPermissions(tx)
			},
		},
		{
			ID: "20250813_seed_units",
			Migrate: func(tx *gorm.DB) error {
				return seedUnits(tx)
			},
		},
	})

	return m.Migrate()
}

// Permission codes referenced by route middleware. Kept in one place so the
// seed and the handlers cannot drift apart.
const (
	PermRequisitionsRead    = "requisitions.read"
	PermRequisitionsWrite   = "requisitions.write"
	PermRequisitionsApprove = "requisitions.approve"
	PermUsersRead           = "users.read"
	PermUsersWrite          = "users.write"
	PermUsersDelete         = "users.delete"
	PermDepartmentsRead     = "departments.read"
	PermDepartmentsWrite    = "departments.write"
	PermCatalogRead         = "catalog.read"
	PermActivityRead        = "activity.read"
	PermReportsRead         = "reports.read"
)

func seedRolesAndPermissions(tx *gorm.DB) error {
	perms := []model.Permission{
		{Code: PermRequisitionsRead, Name: "View requisitions", Group: "requisitions"},
		{Code: PermRequisitionsWrite, Name: "Create and edit requisitions", Group: "requisitions"},
		{Code: PermRequisitionsApprove, Name: "Approve or reject requisitions", Group: "requisitions"},
		{Code: PermUsersRead, Name: "View users", Group: "users"},
		{Code: PermUsersWrite, Name: "Create and edit users", Group: "users"},
		{Code: PermUsersDelete, Name: "Delete users", Group: "users"},
		{Code: PermDepartmentsRead, Name: "View departments", Group: "departments"},
		{Code: PermDepartmentsWrite, Name: "Manage departments", Group: "departments"},
		{Code: PermCatalogRead, Name: "View catalog", Group: "catalog"},
		{Code: PermActivityRead, Name: "View activity logs", Group: "activity"},
		{Code: PermReportsRead, Name: "View reports", Group: "reports"},
	}

	for i := range perms {
		if err := tx.Where(model.Permission{Code: perms[i].Code}).
			FirstOrCreate(&perms[i]).Error; err != nil {
			return err
		}
	}

	byCode := make(map[string]model.Permission, len(perms))
	for _, p := range perms {
		byCode[p.Code] = p
	}

	rolePerms := map[string][]string{
		model.RoleAdmin: {
			PermRequisitionsRead, PermRequisitionsWrite, PermRequisitionsApprove,
			PermUsersRead, PermUsersWrite, PermUsersDelete,
			PermDepartmentsRead, PermDepartmentsWrite,
			PermCatalogRead, PermActivityRead, PermReportsRead,
		},
		model.RoleManager: {
			PermRequisitionsRead, PermRequisitionsWrite, PermRequisitionsApprove,
			PermUsersRead,
			PermDepartmentsRead, PermDepartmentsWrite,
			PermCatalogRead, PermActivityRead, PermReportsRead,
		},
		model.RoleUser: {
			PermRequisitionsRead, PermRequisitionsWrite,
			PermDepartmentsRead, PermCatalogRead,
		},
	}

	for name, codes := range rolePerms {
		role := model.Role{Name: name, IsSystem: true}
		if err := tx.Where(model.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return err
		}

		assigned := make([]model.Permission, 0, len(codes))
		for _, code := range codes {
			assigned = append(assigned, byCode[code])
		}
		if err := tx.Model(&role).Association("Permissions").Replace(assigned); err != nil {
			return err
		}
	}

	return nil
}

func seedUnits(tx *gorm.DB) error {
	units := []model.Unit{
		{Name: "piece", Abbreviation: "pc"},
		{Name: "box", Abbreviation: "box"},
		{Name: "kilogram", Abbreviation: "kg"},
		{Name: "liter", Abbreviation: "l"},
		{Name: "meter", Abbreviation: "m"},
		{Name: "pack", Abbreviation: "pk"},
	}

	for i := range units {
		if err := tx.Where(model.Unit{Name: units[i].Name}).
			FirstOrCreate(&units[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
