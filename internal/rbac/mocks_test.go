package rbac

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"workforce-service/internal/models"
	"workforce-service/internal/repository"
)

// MockRBACRepository is a mock implementation of repository.RBACRepository
type MockRBACRepository struct {
	mock.Mock
}

var _ repository.RBACRepository = (*MockRBACRepository)(nil)

func (m *MockRBACRepository) ListActiveRoles(ctx context.Context) ([]models.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Role), args.Error(1)
}

func (m *MockRBACRepository) CountActiveRoles(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRBACRepository) GetRoleByCode(ctx context.Context, code string) (*models.Role, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockRBACRepository) CreateRole(ctx context.Context, role *models.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRBACRepository) UpdateRole(ctx context.Context, code string, updates map[string]interface{}) error {
	args := m.Called(ctx, code, updates)
	return args.Error(0)
}

func (m *MockRBACRepository) ListActiveDepartments(ctx context.Context) ([]models.Department, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Department), args.Error(1)
}

func (m *MockRBACRepository) GetDepartmentByCode(ctx context.Context, code string) (*models.Department, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Department), args.Error(1)
}

func (m *MockRBACRepository) CreateDepartment(ctx context.Context, dept *models.Department) error {
	args := m.Called(ctx, dept)
	return args.Error(0)
}

func (m *MockRBACRepository) UpdateDepartment(ctx context.Context, code string, updates map[string]interface{}) error {
	args := m.Called(ctx, code, updates)
	return args.Error(0)
}

func (m *MockRBACRepository) ListRoleGroups(ctx context.Context) ([]models.RoleGroup, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RoleGroup), args.Error(1)
}

func (m *MockRBACRepository) UpsertRoleGroup(ctx context.Context, group *models.RoleGroup) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockRBACRepository) SeedDefaults(ctx context.Context, roles []models.Role, departments []models.Department, groups []models.RoleGroup) error {
	args := m.Called(ctx, roles, departments, groups)
	return args.Error(0)
}

// MockEmployeeRepository is a mock implementation of repository.EmployeeRepository
type MockEmployeeRepository struct {
	mock.Mock
}

var _ repository.EmployeeRepository = (*MockEmployeeRepository)(nil)

func (m *MockEmployeeRepository) Create(ctx context.Context, tenantID string, employee *models.Employee) error {
	args := m.Called(ctx, tenantID, employee)
	return args.Error(0)
}

func (m *MockEmployeeRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Employee, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *MockEmployeeRepository) List(ctx context.Context, tenantID string, filters repository.EmployeeFilters) ([]models.Employee, *models.PaginationInfo, error) {
	args := m.Called(ctx, tenantID, filters)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]models.Employee), args.Get(1).(*models.PaginationInfo), args.Error(2)
}

func (m *MockEmployeeRepository) ListAll(ctx context.Context, tenantID string) ([]models.Employee, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Employee), args.Error(1)
}

func (m *MockEmployeeRepository) Update(ctx context.Context, tenantID string, id uuid.UUID, updates map[string]interface{}) error {
	args := m.Called(ctx, tenantID, id, updates)
	return args.Error(0)
}

func (m *MockEmployeeRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockEmployeeRepository) CountByRoleCode(ctx context.Context, roleCode string) (int64, error) {
	args := m.Called(ctx, roleCode)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEmployeeRepository) DistinctRoleCodes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockLockRepository is a mock implementation of repository.LockRepository
type MockLockRepository struct {
	mock.Mock
}

var _ repository.LockRepository = (*MockLockRepository)(nil)

func (m *MockLockRepository) Claim(ctx context.Context, name, lockID string, now, expiresAt time.Time) error {
	args := m.Called(ctx, name, lockID, now, expiresAt)
	return args.Error(0)
}

func (m *MockLockRepository) Get(ctx context.Context, name string) (*models.LockDocument, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LockDocument), args.Error(1)
}

func (m *MockLockRepository) Release(ctx context.Context, name, lockID string) error {
	args := m.Called(ctx, name, lockID)
	return args.Error(0)
}

func (m *MockLockRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
