package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"workforce-service/internal/middleware"
	"workforce-service/internal/models"
	"workforce-service/internal/rbac"
	"workforce-service/internal/repository"
)

// EmployeeHandler serves the employee directory API
type EmployeeHandler struct {
	employees repository.EmployeeRepository
	service   *rbac.Service
	log       *logrus.Entry
}

func NewEmployeeHandler(employees repository.EmployeeRepository, service *rbac.Service, log *logrus.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		employees: employees,
		service:   service,
		log:       log.WithField("component", "employee_handlers"),
	}
}

// ListEmployees godoc
// @Summary List employees
// @Tags employees
// @Produce json
// @Param role query string false "Filter by role code"
// @Param department query string false "Filter by department"
// @Param search query string false "Name or email search"
// @Success 200 {object} models.EmployeeListResponse
// @Router /api/v1/employees [get]
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	tenantID := c.GetString(middleware.ContextTenantID)
	page, limit := getPagination(c, 20, 100)

	filters := repository.EmployeeFilters{
		Role:       c.Query("role"),
		Department: c.Query("department"),
		Search:     c.Query("search"),
		Page:       page,
		Limit:      limit,
	}
	if isActive := c.Query("is_active"); isActive != "" {
		active := isActive == "true"
		filters.IsActive = &active
	}

	employees, pagination, err := h.employees.List(c.Request.Context(), tenantID, filters)
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, models.EmployeeListResponse{
		Success:    true,
		Data:       employees,
		Pagination: pagination,
	})
}

// GetEmployee godoc
// @Summary Get one employee
// @Tags employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} models.EmployeeResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/employees/{id} [get]
func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	tenantID := c.GetString(middleware.ContextTenantID)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid employee ID")
		return
	}

	employee, err := h.employees.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		respondInternal(c, err)
		return
	}
	if employee == nil {
		respondNotFound(c, middleware.ErrCodeEmployeeNotFound, "Employee not found")
		return
	}
	c.JSON(http.StatusOK, models.EmployeeResponse{Success: true, Data: employee})
}

// CreateEmployee godoc
// @Summary Create an employee
// @Tags employees
// @Accept json
// @Produce json
// @Param employee body models.CreateEmployeeRequest true "Employee"
// @Success 201 {object} models.EmployeeResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/employees [post]
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	tenantID := c.GetString(middleware.ContextTenantID)

	var req models.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	// Assigning an unknown role would create exactly the dangling reference
	// the consistency checker exists to find. Reject it up front.
	if _, ok := h.service.Engine().GetRole(req.Role); !ok {
		respondBadRequest(c, fmt.Sprintf("Unknown role %q", req.Role))
		return
	}

	employee := models.Employee{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		Department: req.Department,
		JobTitle:   req.JobTitle,
		JoinDate:   req.JoinDate,
		IsActive:   true,
		Metadata:   req.Metadata,
	}
	if err := h.employees.Create(c.Request.Context(), tenantID, &employee); err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.EmployeeResponse{Success: true, Data: &employee})
}

// UpdateEmployee godoc
// @Summary Update an employee
// @Tags employees
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param employee body models.UpdateEmployeeRequest true "Fields to update"
// @Success 200 {object} models.EmployeeResponse
// @Router /api/v1/employees/{id} [put]
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	tenantID := c.GetString(middleware.ContextTenantID)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid employee ID")
		return
	}

	var req models.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Role != nil {
		if _, ok := h.service.Engine().GetRole(*req.Role); !ok {
			respondBadRequest(c, fmt.Sprintf("Unknown role %q", *req.Role))
			return
		}
		updates["role"] = *req.Role
	}
	if req.Department != nil {
		updates["department"] = *req.Department
	}
	if req.JobTitle != nil {
		updates["job_title"] = *req.JobTitle
	}
	if req.JoinDate != nil {
		updates["join_date"] = *req.JoinDate
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Metadata != nil {
		updates["metadata"] = req.Metadata
	}

	if len(updates) > 0 {
		if err := h.employees.Update(c.Request.Context(), tenantID, id, updates); err != nil {
			respondInternal(c, err)
			return
		}
	}

	employee, err := h.employees.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		respondInternal(c, err)
		return
	}
	if employee == nil {
		respondNotFound(c, middleware.ErrCodeEmployeeNotFound, "Employee not found")
		return
	}
	c.JSON(http.StatusOK, models.EmployeeResponse{Success: true, Data: employee})
}

// DeleteEmployee godoc
// @Summary Soft-delete an employee
// @Tags employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/employees/{id} [delete]
func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	tenantID := c.GetString(middleware.ContextTenantID)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid employee ID")
		return
	}
	if err := h.employees.Delete(c.Request.Context(), tenantID, id); err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Employee deleted"})
}

// ExportEmployees godoc
// @Summary Export the employee directory as an XLSX workbook
// @Tags employees
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /api/v1/employees/export [get]
func (h *EmployeeHandler) ExportEmployees(c *gin.Context) {
	tenantID := c.GetString(middleware.ContextTenantID)

	employees, err := h.employees.ListAll(c.Request.Context(), tenantID)
	if err != nil {
		respondInternal(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Employees"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Email", "First Name", "Last Name", "Role", "Department", "Job Title", "Join Date", "Active"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, employee := range employees {
		values := []interface{}{
			employee.Email,
			employee.FirstName,
			employee.LastName,
			employee.Role,
			deref(employee.Department),
			deref(employee.JobTitle),
			formatDate(employee.JoinDate),
			employee.IsActive,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	filename := fmt.Sprintf("employees_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		h.log.WithError(err).Error("Failed to stream employee export")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
