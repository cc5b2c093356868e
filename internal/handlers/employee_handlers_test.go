package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"workforce-service/internal/cache"
	"workforce-service/internal/middleware"
	"workforce-service/internal/models"
	"workforce-service/internal/rbac"
)

// directoryEmployeeRepo serves a fixed directory for export tests
type directoryEmployeeRepo struct {
	stubEmployeeRepo
	employees []models.Employee
}

func (r directoryEmployeeRepo) ListAll(ctx context.Context, tenantID string) ([]models.Employee, error) {
	return r.employees, nil
}

func newEmployeeRouter(t *testing.T, employees []models.Employee) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	repo := &stubRBACRepo{roles: rbac.DefaultRoles}
	tracker := rbac.NewFallbackTracker(rbac.PhaseComplete, false, log)
	snapshot := rbac.NewCache(repo, tracker, 300*time.Second, log)
	engine := rbac.NewEngine(snapshot, tracker, log)
	locks := rbac.NewLockManager(&stubLockRepo{}, 30*time.Second, log)
	checker := rbac.NewConsistencyChecker(repo, stubEmployeeRepo{}, log)
	perms := cache.NewPermissionCache(nil, time.Minute, log)

	service := rbac.NewService(rbac.ServiceDeps{
		Repo:      repo,
		Employees: stubEmployeeRepo{},
		Cache:     snapshot,
		Engine:    engine,
		Tracker:   tracker,
		Locks:     locks,
		Checker:   checker,
		Perms:     perms,
		Log:       log,
	})
	require.NoError(t, service.Cache().Refresh(context.Background()))

	handler := NewEmployeeHandler(directoryEmployeeRepo{employees: employees}, service, log)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextTenantID, "default")
		c.Set(middleware.ContextUserID, uuid.New().String())
		c.Set(middleware.ContextUserRole, "hr_manager")
		c.Next()
	})
	router.GET("/api/v1/employees/export", handler.ExportEmployees)
	router.POST("/api/v1/employees", handler.CreateEmployee)
	return router
}

func TestExportEmployees_WorkbookLayout(t *testing.T) {
	dept := "sales"
	router := newEmployeeRouter(t, []models.Employee{
		{
			ID:         uuid.New(),
			Email:      "ana@example.com",
			FirstName:  "Ana",
			LastName:   "Silva",
			Role:       "sales_executive",
			Department: &dept,
			IsActive:   true,
		},
		{
			ID:        uuid.New(),
			Email:     "raj@example.com",
			FirstName: "Raj",
			LastName:  "Patel",
			Role:      "employee",
			IsActive:  true,
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/employees/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Employees")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Email", rows[0][0])
	assert.Equal(t, "Role", rows[0][3])
	assert.Equal(t, "ana@example.com", rows[1][0])
	assert.Equal(t, "sales", rows[1][4])
	assert.Equal(t, "raj@example.com", rows[2][0])
}

func TestCreateEmployee_RejectsUnknownRole(t *testing.T) {
	router := newEmployeeRouter(t, nil)

	body := `{"email":"x@example.com","firstName":"X","lastName":"Y","role":"ghost_role"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/employees", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
