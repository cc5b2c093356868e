package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"workforce-service/internal/cache"
	"workforce-service/internal/middleware"
	"workforce-service/internal/models"
	"workforce-service/internal/rbac"
)

// RBACHandler serves the RBAC administration API
type RBACHandler struct {
	service *rbac.Service
	perms   *cache.PermissionCache
	log     *logrus.Entry
}

func NewRBACHandler(service *rbac.Service, perms *cache.PermissionCache, log *logrus.Logger) *RBACHandler {
	return &RBACHandler{
		service: service,
		perms:   perms,
		log:     log.WithField("component", "rbac_handlers"),
	}
}

func caller(c *gin.Context) (tenantID, userID, role string) {
	return c.GetString(middleware.ContextTenantID),
		c.GetString(middleware.ContextUserID),
		c.GetString(middleware.ContextUserRole)
}

// canAdministerRBAC gates mutations to role administrators
func (h *RBACHandler) canAdministerRBAC(c *gin.Context) bool {
	_, _, role := caller(c)
	if role == rbac.RoleAdmin || h.service.Engine().HasPermission(role, "rbac.manage") {
		return true
	}
	h.forbidden(c)
	return false
}

// canViewRBAC gates reads to administrators and user managers
func (h *RBACHandler) canViewRBAC(c *gin.Context) bool {
	_, _, role := caller(c)
	if role == rbac.RoleAdmin || h.service.Engine().CanManageUsers(role) ||
		h.service.Engine().HasPermission(role, "rbac.view") {
		return true
	}
	h.forbidden(c)
	return false
}

func (h *RBACHandler) forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    middleware.ErrCodeForbidden,
			Message: "Insufficient permissions",
		},
		RequestID: c.GetString("request_id"),
	})
}

func (h *RBACHandler) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    middleware.ErrCodeBadRequest,
			Message: message,
		},
		RequestID: c.GetString("request_id"),
	})
}

func (h *RBACHandler) serviceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := middleware.ErrCodeInternalServer

	switch {
	case errors.Is(err, rbac.ErrRoleNotFound), errors.Is(err, rbac.ErrDeptNotFound), errors.Is(err, rbac.ErrGroupNotFound):
		status, code = http.StatusNotFound, middleware.ErrCodeNotFound
	case errors.Is(err, rbac.ErrDuplicateCode):
		status, code = http.StatusConflict, middleware.ErrCodeConflict
	case errors.Is(err, rbac.ErrInvalidCode), errors.Is(err, rbac.ErrUnknownRoles), errors.Is(err, rbac.ErrUnknownDepartment):
		status, code = http.StatusBadRequest, middleware.ErrCodeValidationFailed
	case errors.Is(err, rbac.ErrSystemRole):
		status, code = http.StatusForbidden, middleware.ErrCodeSystemRole
	case errors.Is(err, rbac.ErrRoleInUse):
		status, code = http.StatusConflict, middleware.ErrCodeRoleInUse
	}

	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: err.Error(),
		},
		RequestID: c.GetString("request_id"),
	})
}

// GetRoles godoc
// @Summary List all active roles
// @Tags rbac
// @Produce json
// @Success 200 {object} models.RoleListResponse
// @Router /api/v1/rbac/roles [get]
func (h *RBACHandler) GetRoles(c *gin.Context) {
	if !h.canViewRBAC(c) {
		return
	}
	c.JSON(http.StatusOK, models.RoleListResponse{
		Success: true,
		Data:    h.service.Engine().GetAllRoles(),
	})
}

// GetRole godoc
// @Summary Get one role by code
// @Tags rbac
// @Produce json
// @Param code path string true "Role code"
// @Success 200 {object} models.RoleResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/rbac/roles/{code} [get]
func (h *RBACHandler) GetRole(c *gin.Context) {
	if !h.canViewRBAC(c) {
		return
	}
	role, ok := h.service.Engine().GetRole(c.Param("code"))
	if !ok {
		h.serviceError(c, rbac.ErrRoleNotFound)
		return
	}
	c.JSON(http.StatusOK, models.RoleResponse{Success: true, Data: &role})
}

// CreateRole godoc
// @Summary Create a role
// @Tags rbac
// @Accept json
// @Produce json
// @Param role body models.CreateRoleRequest true "Role"
// @Success 201 {object} models.RoleResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/rbac/roles [post]
func (h *RBACHandler) CreateRole(c *gin.Context) {
	if !h.canAdministerRBAC(c) {
		return
	}
	var req models.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	tenantID, userID, _ := caller(c)
	role, err := h.service.CreateRole(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.RoleResponse{Success: true, Data: role})
}

// UpdateRole godoc
// @Summary Update a role
// @Tags rbac
// @Accept json
// @Produce json
// @Param code path string true "Role code"
// @Param role body models.UpdateRoleRequest true "Fields to update"
// @Success 200 {object} models.RoleResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/rbac/roles/{code} [put]
func (h *RBACHandler) UpdateRole(c *gin.Context) {
	if !h.canAdministerRBAC(c) {
		return
	}
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	tenantID, userID, _ := caller(c)
	role, err := h.service.UpdateRole(c.Request.Context(), tenantID, userID, c.Param("code"), &req)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RoleResponse{Success: true, Data: role})
}

// DeleteRole godoc
// @Summary Deactivate a role
// @Tags rbac
// @Produce json
// @Param code path string true "Role code"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/v1/rbac/roles/{code} [delete]
func (h *RBACHandler) DeleteRole(c *gin.Context) {
	if !h.canAdministerRBAC(c) {
		return
	}
	tenantID, userID, _ := caller(c)
	if err := h.service.DeleteRole(c.Request.Context(), tenantID, userID, c.Param("code")); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Role deactivated"})
}

// GetDepartments godoc
// @Summary List all active departments
// @Tags rbac
// @Produce json
// @Success 200 {object} models.DepartmentListResponse
// @Router /api/v1/rbac/departments [get]
func (h *RBACHandler) GetDepartments(c *gin.Context) {
	if !h.canViewRBAC(c) {
		return
	}
	c.JSON(http.StatusOK, models.DepartmentListResponse{
		Success: true,
		Data:    h.service.Engine().GetAllDepartments(),
	})
}

// CreateDepartment godoc
// @Summary Create a department
// @Tags rbac
// @Accept json
// @Produce json
// @Param department body models.CreateDepartmentRequest true "Department"
// @Success 201 {object} models.DepartmentResponse
// @Router /api/v1/rbac/departments [post]
func (h *RBACHandler) CreateDepartment(c *gin.Context) {
	if !h.canAdministerRBAC(c) {
		return
	}
	var req models.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	tenantID, userID, _ := caller(c)
	dept, err := h.service.CreateDepartment(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.DepartmentResponse{Success: true, Data: dept})
}

// UpdateDepartment godoc
// @Summary Update a department
// @Tags rbac
// @Accept json
// @Produce json
// @Param code path string true "Department code"
// @Param department body models.UpdateDepartmentRequest true "Fields to update"
// @Success 200 {object} models.DepartmentResponse
// @Router /api/v1/rbac/departments/{code} [put]
func (h *RBACHandler) UpdateDepartment(c *gin.Context) {
	if !h.canAdministerRBAC(c) {
		return
	}
	var req models.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	tenantID, userID, _ := caller(c)
	dept, err := h.service.UpdateDepartment(c.Request.Context(), tenantID, userID, c.Param("code"), &req)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DepartmentResponse{Success: true, Data: dept})
}

// GetRoleGroups godoc
// @Summary List role groups with their members
// @Tags rbac
// @Produce json
// @Success 200 {object} models.RoleGroupListResponse
// @Router /api/v1/rbac/role-groups [get]
func (h *RBACHandler) GetRoleGroups(c *gin.Context) {
	if !h.canViewRBAC(c) {
		return
	}
	c.JSON(http.StatusOK, models.RoleGroupListResponse{
		Success: true,
		Data:    h.service.Cache().Groups(),
	})
}

// UpdateRoleGroup godoc
// @Summary Replace a role group's membership
// @Tags rbac
// @Accept json
// @Produce json
// @Param code path string true "Group code"
// @Param group body models.UpdateRoleGroupRequest true "Membership"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/rbac/role-groups/{code} [put]
func (h *RBACHandler) UpdateRoleGroup(c *gin.Context) {
	if !h.canAdministerRBAC(c) {
		return
	}
	var req models.UpdateRoleGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	tenantID, userID, _ := caller(c)
	if err := h.service.UpdateRoleGroup(c.Request.Context(), tenantID, userID, c.Param("code"), req.Roles); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Role group updated"})
}

// RefreshCache godoc
// @Summary Force an immediate snapshot refresh
// @Tags rbac
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rbac/refresh-cache [post]
func (h *RBACHandler) RefreshCache(c *gin.Context) {
	if !h.canAdministerRBAC(c) {
		return
	}
	tenantID, userID, _ := caller(c)
	if err := h.service.RefreshCache(c.Request.Context(), tenantID, userID); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"version": h.service.Cache().Version(),
	})
}

// CheckPermission godoc
// @Summary Evaluate whether a role grants a permission
// @Tags rbac
// @Produce json
// @Param role query string true "Role code"
// @Param permission query string true "Permission string"
// @Success 200 {object} models.PermissionCheckResponse
// @Router /api/v1/rbac/check-permission [get]
func (h *RBACHandler) CheckPermission(c *gin.Context) {
	if !h.canViewRBAC(c) {
		return
	}
	role := c.Query("role")
	permission := c.Query("permission")
	if role == "" || permission == "" {
		h.badRequest(c, "role and permission query parameters are required")
		return
	}

	h.service.Tracker().RegisterCheck("handlers.check_permission")
	c.JSON(http.StatusOK, models.PermissionCheckResponse{
		Success:    true,
		Role:       role,
		Permission: permission,
		Allowed:    h.service.Engine().HasPermission(role, permission),
	})
}

// GetRoleHierarchy godoc
// @Summary View every role with its inheritance links
// @Tags rbac
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rbac/role-hierarchy [get]
func (h *RBACHandler) GetRoleHierarchy(c *gin.Context) {
	if !h.canViewRBAC(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.service.Engine().RoleHierarchy(),
	})
}

// GetMyPermissions godoc
// @Summary Flattened permissions for the calling user's role
// @Tags rbac
// @Produce json
// @Success 200 {object} models.MyPermissionsResponse
// @Router /api/v1/rbac/my-permissions [get]
func (h *RBACHandler) GetMyPermissions(c *gin.Context) {
	tenantID, _, role := caller(c)
	engine := h.service.Engine()

	// Presentation view only; the cached list never feeds an authorization
	// decision.
	permissions := h.perms.GetPermissions(c.Request.Context(), tenantID, role)
	if permissions == nil {
		permissions = engine.EffectivePermissions(role)
		h.perms.SetPermissions(c.Request.Context(), tenantID, role, permissions)
	}

	c.JSON(http.StatusOK, models.MyPermissionsResponse{
		Success:     true,
		Role:        role,
		Level:       engine.GetRoleLevel(role),
		Permissions: permissions,
		StageAccess: engine.GetStageAccess(role),
	})
}

// GetMigrationStatus godoc
// @Summary RBAC migration phase and counters
// @Tags rbac
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rbac/migration-status [get]
func (h *RBACHandler) GetMigrationStatus(c *gin.Context) {
	if !h.canViewRBAC(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"data":             h.service.Tracker().MigrationStatus(),
		"snapshot_version": h.service.Cache().Version(),
		"snapshot_age_sec": int(time.Since(h.service.Cache().Timestamp()).Seconds()),
	})
}

// GetAuditReport godoc
// @Summary Per-call-site audit of instrumented RBAC checks
// @Tags rbac
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rbac/audit-report [get]
func (h *RBACHandler) GetAuditReport(c *gin.Context) {
	if !h.canViewRBAC(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.service.Tracker().AuditReport(),
	})
}

// GetConsistencyReport godoc
// @Summary Run the cross-collection consistency sweep
// @Tags rbac
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/rbac/consistency [get]
func (h *RBACHandler) GetConsistencyReport(c *gin.Context) {
	if !h.canViewRBAC(c) {
		return
	}
	report, err := h.service.Checker().Run(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}
