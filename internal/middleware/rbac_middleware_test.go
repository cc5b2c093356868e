package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce-service/internal/cache"
	"workforce-service/internal/models"
	"workforce-service/internal/rbac"
	"workforce-service/internal/repository"
)

// guardRBACRepo serves the compiled defaults, or fails every read when err
// is set
type guardRBACRepo struct {
	err error
}

func (s *guardRBACRepo) ListActiveRoles(ctx context.Context) ([]models.Role, error) {
	if s.err != nil {
		return nil, s.err
	}
	return rbac.DefaultRoles, nil
}

func (s *guardRBACRepo) CountActiveRoles(ctx context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(rbac.DefaultRoles)), nil
}

func (s *guardRBACRepo) GetRoleByCode(ctx context.Context, code string) (*models.Role, error) {
	return nil, nil
}

func (s *guardRBACRepo) CreateRole(ctx context.Context, role *models.Role) error { return nil }

func (s *guardRBACRepo) UpdateRole(ctx context.Context, code string, updates map[string]interface{}) error {
	return nil
}

func (s *guardRBACRepo) ListActiveDepartments(ctx context.Context) ([]models.Department, error) {
	if s.err != nil {
		return nil, s.err
	}
	return rbac.DefaultDepartments, nil
}

func (s *guardRBACRepo) GetDepartmentByCode(ctx context.Context, code string) (*models.Department, error) {
	return nil, nil
}

func (s *guardRBACRepo) CreateDepartment(ctx context.Context, dept *models.Department) error {
	return nil
}

func (s *guardRBACRepo) UpdateDepartment(ctx context.Context, code string, updates map[string]interface{}) error {
	return nil
}

func (s *guardRBACRepo) ListRoleGroups(ctx context.Context) ([]models.RoleGroup, error) {
	if s.err != nil {
		return nil, s.err
	}
	return nil, nil
}

func (s *guardRBACRepo) UpsertRoleGroup(ctx context.Context, group *models.RoleGroup) error {
	return nil
}

func (s *guardRBACRepo) SeedDefaults(ctx context.Context, roles []models.Role, departments []models.Department, groups []models.RoleGroup) error {
	return nil
}

type guardEmployeeRepo struct{}

func (guardEmployeeRepo) Create(ctx context.Context, tenantID string, employee *models.Employee) error {
	return nil
}

func (guardEmployeeRepo) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Employee, error) {
	return nil, nil
}

func (guardEmployeeRepo) List(ctx context.Context, tenantID string, filters repository.EmployeeFilters) ([]models.Employee, *models.PaginationInfo, error) {
	return nil, nil, nil
}

func (guardEmployeeRepo) ListAll(ctx context.Context, tenantID string) ([]models.Employee, error) {
	return nil, nil
}

func (guardEmployeeRepo) Update(ctx context.Context, tenantID string, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (guardEmployeeRepo) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	return nil
}

func (guardEmployeeRepo) CountByRoleCode(ctx context.Context, roleCode string) (int64, error) {
	return 0, nil
}

func (guardEmployeeRepo) DistinctRoleCodes(ctx context.Context) ([]string, error) {
	return nil, nil
}

type guardLockRepo struct {
	lockID string
}

func (s *guardLockRepo) Claim(ctx context.Context, name, lockID string, now, expiresAt time.Time) error {
	s.lockID = lockID
	return nil
}

func (s *guardLockRepo) Get(ctx context.Context, name string) (*models.LockDocument, error) {
	return &models.LockDocument{Name: name, LockID: s.lockID}, nil
}

func (s *guardLockRepo) Release(ctx context.Context, name, lockID string) error { return nil }

func (s *guardLockRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func newGuardService(t *testing.T, repo *guardRBACRepo, strict bool) *rbac.Service {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	tracker := rbac.NewFallbackTracker(rbac.PhaseComplete, strict, log)
	snapshot := rbac.NewCache(repo, tracker, 300*time.Second, log)
	engine := rbac.NewEngine(snapshot, tracker, log)
	locks := rbac.NewLockManager(&guardLockRepo{}, 30*time.Second, log)
	checker := rbac.NewConsistencyChecker(repo, guardEmployeeRepo{}, log)
	perms := cache.NewPermissionCache(nil, time.Minute, log)

	return rbac.NewService(rbac.ServiceDeps{
		Repo:      repo,
		Employees: guardEmployeeRepo{},
		Cache:     snapshot,
		Engine:    engine,
		Tracker:   tracker,
		Locks:     locks,
		Checker:   checker,
		Perms:     perms,
		Strict:    strict,
		Log:       log,
	})
}

func newGuardedRouter(t *testing.T, service *rbac.Service, callerRole string, guardFn gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextTenantID, "default")
		c.Set(ContextUserID, uuid.New().String())
		c.Set(ContextUserRole, callerRole)
		c.Next()
	})
	router.GET("/guarded", guardFn, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestRequirePermission_Allows(t *testing.T) {
	service := newGuardService(t, &guardRBACRepo{}, false)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	guard := NewRBACMiddleware(service, log)

	router := newGuardedRouter(t, service, "sales_executive", guard.RequirePermission("leads.view"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission_DeniesWithForbiddenBody(t *testing.T) {
	service := newGuardService(t, &guardRBACRepo{}, false)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	guard := NewRBACMiddleware(service, log)

	router := newGuardedRouter(t, service, "employee", guard.RequirePermission("leads.view"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

	require.Equal(t, http.StatusForbidden, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeForbidden, resp.Error.Code)
}

func TestRequirePermission_StrictStoreFailureIsUnavailable(t *testing.T) {
	repo := &guardRBACRepo{err: errors.New("connection refused")}
	service := newGuardService(t, repo, true)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	guard := NewRBACMiddleware(service, log)

	router := newGuardedRouter(t, service, "admin", guard.RequirePermission("leads.view"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequirePermission_NonStrictFallsBackToDefaults(t *testing.T) {
	repo := &guardRBACRepo{err: errors.New("connection refused")}
	service := newGuardService(t, repo, false)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	guard := NewRBACMiddleware(service, log)

	// compiled defaults still answer the check, loudly
	router := newGuardedRouter(t, service, "sales_executive", guard.RequirePermission("leads.view"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotZero(t, service.Tracker().MigrationStatus().FallbackCount)
}

func TestRequirePermission_PortalRoleCannotListLeave(t *testing.T) {
	service := newGuardService(t, &guardRBACRepo{}, false)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	guard := NewRBACMiddleware(service, log)

	// client carries only portal permissions, so the leave list gate denies
	router := newGuardedRouter(t, service, "client", guard.RequirePermission("leave.view"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	router = newGuardedRouter(t, service, "employee", guard.RequirePermission("leave.view"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireGroup(t *testing.T) {
	service := newGuardService(t, &guardRBACRepo{}, false)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	guard := NewRBACMiddleware(service, log)

	cases := []struct {
		role string
		want int
	}{
		{"hr_executive", http.StatusOK},
		{"admin", http.StatusOK},
		{"sales_executive", http.StatusForbidden},
	}
	for _, tc := range cases {
		router := newGuardedRouter(t, service, tc.role, guard.RequireGroup(rbac.GroupHRRoles))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
		assert.Equal(t, tc.want, w.Code, "role %s", tc.role)
	}
}

func TestRequireRoles_AdminOverride(t *testing.T) {
	service := newGuardService(t, &guardRBACRepo{}, false)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	guard := NewRBACMiddleware(service, log)

	router := newGuardedRouter(t, service, "admin", guard.RequireRoles("hr_manager"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	router = newGuardedRouter(t, service, "consultant", guard.RequireRoles("hr_manager"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
