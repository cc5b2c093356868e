package repository

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workforce-service/internal/models"
)

// EmployeeFilters narrows employee listings
type EmployeeFilters struct {
	Role       string
	Department string
	IsActive   *bool
	Search     string
	Page       int
	Limit      int
}

// EmployeeRepository handles employee persistence
type EmployeeRepository interface {
	Create(ctx context.Context, tenantID string, employee *models.Employee) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Employee, error)
	List(ctx context.Context, tenantID string, filters EmployeeFilters) ([]models.Employee, *models.PaginationInfo, error)
	ListAll(ctx context.Context, tenantID string) ([]models.Employee, error)
	Update(ctx context.Context, tenantID string, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	CountByRoleCode(ctx context.Context, roleCode string) (int64, error)
	DistinctRoleCodes(ctx context.Context) ([]string, error)
}

type employeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) Create(ctx context.Context, tenantID string, employee *models.Employee) error {
	employee.TenantID = tenantID
	return r.db.WithContext(ctx).Create(employee).Error
}

func (r *employeeRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&employee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) List(ctx context.Context, tenantID string, filters EmployeeFilters) ([]models.Employee, *models.PaginationInfo, error) {
	query := r.db.WithContext(ctx).Model(&models.Employee{}).Where("tenant_id = ?", tenantID)

	if filters.Role != "" {
		query = query.Where("role = ?", filters.Role)
	}
	if filters.Department != "" {
		query = query.Where("department = ?", filters.Department)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var employees []models.Employee
	offset := (filters.Page - 1) * filters.Limit
	err := query.Order("created_at DESC").Offset(offset).Limit(filters.Limit).Find(&employees).Error
	if err != nil {
		return nil, nil, err
	}

	return employees, buildPagination(filters.Page, filters.Limit, total), nil
}

func (r *employeeRepository) ListAll(ctx context.Context, tenantID string) ([]models.Employee, error) {
	var employees []models.Employee
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("last_name ASC, first_name ASC").
		Find(&employees).Error
	return employees, err
}

func (r *employeeRepository) Update(ctx context.Context, tenantID string, id uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

func (r *employeeRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.Employee{}).Error
}

// CountByRoleCode counts active employees across tenants still assigned a
// role code. Used to block deleting roles that are in use.
func (r *employeeRepository) CountByRoleCode(ctx context.Context, roleCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("role = ? AND is_active = ?", roleCode, true).
		Count(&count).Error
	return count, err
}

// DistinctRoleCodes returns every role code referenced by an active employee,
// for cross-checking against the role store.
func (r *employeeRepository) DistinctRoleCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("is_active = ?", true).
		Distinct("role").
		Pluck("role", &codes).Error
	return codes, err
}

func buildPagination(page, limit int, total int64) *models.PaginationInfo {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return &models.PaginationInfo{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}
