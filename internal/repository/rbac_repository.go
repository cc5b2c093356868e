package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workforce-service/internal/models"
)

// RBACRepository handles role, department and role group persistence
type RBACRepository interface {
	ListActiveRoles(ctx context.Context) ([]models.Role, error)
	CountActiveRoles(ctx context.Context) (int64, error)
	GetRoleByCode(ctx context.Context, code string) (*models.Role, error)
	CreateRole(ctx context.Context, role *models.Role) error
	UpdateRole(ctx context.Context, code string, updates map[string]interface{}) error

	ListActiveDepartments(ctx context.Context) ([]models.Department, error)
	GetDepartmentByCode(ctx context.Context, code string) (*models.Department, error)
	CreateDepartment(ctx context.Context, dept *models.Department) error
	UpdateDepartment(ctx context.Context, code string, updates map[string]interface{}) error

	ListRoleGroups(ctx context.Context) ([]models.RoleGroup, error)
	UpsertRoleGroup(ctx context.Context, group *models.RoleGroup) error

	SeedDefaults(ctx context.Context, roles []models.Role, departments []models.Department, groups []models.RoleGroup) error
}

type rbacRepository struct {
	db *gorm.DB
}

func NewRBACRepository(db *gorm.DB) RBACRepository {
	return &rbacRepository{db: db}
}

func (r *rbacRepository) ListActiveRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("level DESC, code ASC").
		Find(&roles).Error
	return roles, err
}

func (r *rbacRepository) CountActiveRoles(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Role{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

func (r *rbacRepository) GetRoleByCode(ctx context.Context, code string) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *rbacRepository) CreateRole(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *rbacRepository) UpdateRole(ctx context.Context, code string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Role{}).
		Where("code = ?", code).
		Updates(updates).Error
}

func (r *rbacRepository) ListActiveDepartments(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("code ASC").
		Find(&departments).Error
	return departments, err
}

func (r *rbacRepository) GetDepartmentByCode(ctx context.Context, code string) (*models.Department, error) {
	var dept models.Department
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&dept).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *rbacRepository) CreateDepartment(ctx context.Context, dept *models.Department) error {
	return r.db.WithContext(ctx).Create(dept).Error
}

func (r *rbacRepository) UpdateDepartment(ctx context.Context, code string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Department{}).
		Where("code = ?", code).
		Updates(updates).Error
}

func (r *rbacRepository) ListRoleGroups(ctx context.Context) ([]models.RoleGroup, error) {
	var groups []models.RoleGroup
	err := r.db.WithContext(ctx).Order("code ASC").Find(&groups).Error
	return groups, err
}

func (r *rbacRepository) UpsertRoleGroup(ctx context.Context, group *models.RoleGroup) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "roles", "description", "updated_at", "updated_by"}),
		}).
		Create(group).Error
}

// SeedDefaults inserts compiled-in defaults, skipping any code that already
// exists. Existing records are never overwritten, so operator customizations
// survive restarts and redeploys.
func (r *rbacRepository) SeedDefaults(ctx context.Context, roles []models.Role, departments []models.Department, groups []models.RoleGroup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doNothing := clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}
		if len(roles) > 0 {
			if err := tx.Clauses(doNothing).Create(&roles).Error; err != nil {
				return err
			}
		}
		if len(departments) > 0 {
			if err := tx.Clauses(doNothing).Create(&departments).Error; err != nil {
				return err
			}
		}
		if len(groups) > 0 {
			if err := tx.Clauses(doNothing).Create(&groups).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
