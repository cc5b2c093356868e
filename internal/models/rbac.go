package models

import (
	"fmt"
	"regexp"
	"time"
)

// ============================================================================
// ROLES
// ============================================================================

// roleCodePattern constrains role/department/group codes to lowercase snake case
var roleCodePattern = regexp.MustCompile(`^[a-z_]+$`)

// Role represents one named access level with inherited permissions
type Role struct {
	ID             uint       `json:"-" gorm:"primaryKey"`
	Code           string     `json:"code" gorm:"uniqueIndex;not null"`
	Name           string     `json:"name" gorm:"not null"`
	Description    string     `json:"description"`
	Level          int        `json:"level" gorm:"not null;default:1"`
	Department     string     `json:"department"`
	IsActive       bool       `json:"isActive" gorm:"default:true;index"`
	CanApprove     bool       `json:"canApprove" gorm:"default:false"`
	CanManageUsers bool       `json:"canManageUsers" gorm:"default:false"`
	IsSystem       bool       `json:"isSystem" gorm:"default:false"`
	InheritsFrom   StringList `json:"inheritsFrom" gorm:"type:jsonb;default:'[]'"`
	Permissions    StringList `json:"permissions" gorm:"type:jsonb;default:'[]'"`
	StageAccess    *JSON      `json:"stageAccess,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CreatedBy      *string    `json:"createdBy,omitempty"`
	UpdatedBy      *string    `json:"updatedBy,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// Validate rejects malformed role records at the store-read boundary so
// missing-field surprises never reach the resolution engine.
func (r *Role) Validate() error {
	if !roleCodePattern.MatchString(r.Code) {
		return fmt.Errorf("role code %q must match ^[a-z_]+$", r.Code)
	}
	if r.Name == "" {
		return fmt.Errorf("role %q has no name", r.Code)
	}
	if r.Level < 1 || r.Level > 100 {
		return fmt.Errorf("role %q level %d out of range 1-100", r.Code, r.Level)
	}
	return nil
}

// CreateRoleRequest represents a request to create a role
type CreateRoleRequest struct {
	Code           string   `json:"code" binding:"required"`
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description"`
	Level          int      `json:"level" binding:"required,min=1,max=100"`
	Department     string   `json:"department"`
	CanApprove     *bool    `json:"canApprove,omitempty"`
	CanManageUsers *bool    `json:"canManageUsers,omitempty"`
	InheritsFrom   []string `json:"inheritsFrom,omitempty"`
	Permissions    []string `json:"permissions,omitempty"`
	StageAccess    *JSON    `json:"stageAccess,omitempty"`
}

// UpdateRoleRequest represents a partial update; only provided fields are merged
type UpdateRoleRequest struct {
	Name           *string   `json:"name,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Level          *int      `json:"level,omitempty"`
	Department     *string   `json:"department,omitempty"`
	IsActive       *bool     `json:"isActive,omitempty"`
	CanApprove     *bool     `json:"canApprove,omitempty"`
	CanManageUsers *bool     `json:"canManageUsers,omitempty"`
	InheritsFrom   *[]string `json:"inheritsFrom,omitempty"`
	Permissions    *[]string `json:"permissions,omitempty"`
	StageAccess    *JSON     `json:"stageAccess,omitempty"`
}

// ============================================================================
// DEPARTMENTS
// ============================================================================

// Department groups roles for display and filtering
type Department struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Color     string    `json:"color" gorm:"default:'#6B7280'"`
	IsActive  bool      `json:"isActive" gorm:"default:true;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Department) TableName() string {
	return "departments"
}

func (d *Department) Validate() error {
	if !roleCodePattern.MatchString(d.Code) {
		return fmt.Errorf("department code %q must match ^[a-z_]+$", d.Code)
	}
	if d.Name == "" {
		return fmt.Errorf("department %q has no name", d.Code)
	}
	return nil
}

// CreateDepartmentRequest represents a request to create a department
type CreateDepartmentRequest struct {
	Code  string `json:"code" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

// UpdateDepartmentRequest represents a partial department update
type UpdateDepartmentRequest struct {
	Name     *string `json:"name,omitempty"`
	Color    *string `json:"color,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// ============================================================================
// ROLE GROUPS
// ============================================================================

// RoleGroup is a named, reusable set of role codes used as an authorization
// predicate (e.g. MANAGER_ROLES).
type RoleGroup struct {
	ID          uint       `json:"-" gorm:"primaryKey"`
	Code        string     `json:"code" gorm:"uniqueIndex;not null"`
	Name        string     `json:"name" gorm:"not null"`
	Roles       StringList `json:"roles" gorm:"type:jsonb;default:'[]'"`
	Description string     `json:"description"`
	IsSystem    bool       `json:"isSystem" gorm:"default:false"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	UpdatedBy   *string    `json:"updatedBy,omitempty"`
}

func (RoleGroup) TableName() string {
	return "role_groups"
}

// UpdateRoleGroupRequest replaces a group's role membership
type UpdateRoleGroupRequest struct {
	Roles []string `json:"roles" binding:"required"`
}

// ============================================================================
// DISTRIBUTED LOCK
// ============================================================================

// LockDocument is one row per named advisory lock. Ownership is proven by
// the lock_id token; expiry is the only recovery path for crashed holders.
type LockDocument struct {
	Name       string    `json:"name" gorm:"primaryKey"`
	LockID     string    `json:"lockId" gorm:"not null"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt" gorm:"index"`
}

func (LockDocument) TableName() string {
	return "distributed_locks"
}

// ============================================================================
// RESPONSES
// ============================================================================

// RoleResponse represents a role API response
type RoleResponse struct {
	Success bool    `json:"success"`
	Data    *Role   `json:"data,omitempty"`
	Message *string `json:"message,omitempty"`
}

// RoleListResponse represents a list of roles API response
type RoleListResponse struct {
	Success bool   `json:"success"`
	Data    []Role `json:"data"`
}

// DepartmentResponse represents a department API response
type DepartmentResponse struct {
	Success bool        `json:"success"`
	Data    *Department `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// DepartmentListResponse represents a list of departments API response
type DepartmentListResponse struct {
	Success bool         `json:"success"`
	Data    []Department `json:"data"`
}

// RoleGroupListResponse represents role groups keyed by code
type RoleGroupListResponse struct {
	Success bool                `json:"success"`
	Data    map[string][]string `json:"data"`
}

// PermissionCheckResponse answers GET /rbac/check-permission
type PermissionCheckResponse struct {
	Success    bool   `json:"success"`
	Role       string `json:"role"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// RoleHierarchyNode is one role plus its resolved parents, for the
// role-hierarchy view
type RoleHierarchyNode struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Level        int      `json:"level"`
	Department   string   `json:"department,omitempty"`
	InheritsFrom []string `json:"inheritsFrom"`
	Permissions  []string `json:"permissions"`
}

// MyPermissionsResponse answers GET /rbac/my-permissions
type MyPermissionsResponse struct {
	Success     bool     `json:"success"`
	Role        string   `json:"role"`
	Level       int      `json:"level"`
	Permissions []string `json:"permissions"`
	StageAccess JSON     `json:"stageAccess"`
}
