package rbac

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"workforce-service/internal/models"
)

// Engine answers role and permission questions against the cached snapshot.
// Every method is a pure in-memory lookup; callers that need fresh data run
// Cache.EnsureFresh first.
type Engine struct {
	cache   *Cache
	tracker *FallbackTracker
	log     *logrus.Entry
}

func NewEngine(cache *Cache, tracker *FallbackTracker, log *logrus.Logger) *Engine {
	return &Engine{
		cache:   cache,
		tracker: tracker,
		log:     log.WithField("component", "rbac_engine"),
	}
}

// GetRole returns the cached role for a code
func (e *Engine) GetRole(code string) (models.Role, bool) {
	role, ok := e.cache.Role(code)
	if !ok && code != "" {
		e.log.WithField("role", code).Warn("Unknown role code requested")
	}
	return role, ok
}

// GetAllRoles returns all cached roles sorted by level, highest first
func (e *Engine) GetAllRoles() []models.Role {
	roles := e.cache.Roles()
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Level != roles[j].Level {
			return roles[i].Level > roles[j].Level
		}
		return roles[i].Code < roles[j].Code
	})
	return roles
}

// GetRoleLevel returns the role's level, or zero for unknown roles
func (e *Engine) GetRoleLevel(code string) int {
	role, ok := e.cache.Role(code)
	if !ok {
		return 0
	}
	return role.Level
}

// ResolveRoleGroup resolves a group to its member role codes. A group
// missing from the snapshot falls back to the compiled-in default and
// records a fallback event on every call, so a store gap stays visible in
// the logs. In strict mode the fallback is an error and the default is
// never served.
func (e *Engine) ResolveRoleGroup(code string) ([]string, error) {
	if members, ok := e.cache.Group(code); ok {
		return members, nil
	}
	if members, ok := defaultRoleGroup(code); ok {
		if err := e.tracker.LogFallbackEvent("engine.get_role_group",
			"group missing from snapshot", code); err != nil {
			return nil, err
		}
		return members, nil
	}
	e.log.WithField("group", code).Error("Unknown role group requested")
	return []string{}, nil
}

// GetRoleGroup is ResolveRoleGroup for callers with no error path. A
// strict-mode fallback resolves to the empty list, so membership is denied
// rather than decided on the compiled default.
func (e *Engine) GetRoleGroup(code string) []string {
	members, err := e.ResolveRoleGroup(code)
	if err != nil {
		return []string{}
	}
	return members
}

// GetRolesByDepartment returns cached roles belonging to a department
func (e *Engine) GetRolesByDepartment(department string) []models.Role {
	var out []models.Role
	for _, role := range e.GetAllRoles() {
		if role.Department == department {
			out = append(out, role)
		}
	}
	return out
}

// HasRole reports whether userRole satisfies the required role. Admin
// satisfies every requirement.
func (e *Engine) HasRole(userRole, required string) bool {
	if userRole == RoleAdmin {
		return true
	}
	return userRole == required
}

// HasAnyRole reports whether userRole is one of the required roles
func (e *Engine) HasAnyRole(userRole string, required ...string) bool {
	if userRole == RoleAdmin {
		return true
	}
	for _, code := range required {
		if userRole == code {
			return true
		}
	}
	return false
}

// InGroup reports whether a role is a member of a role group
func (e *Engine) InGroup(roleCode, groupCode string) bool {
	for _, member := range e.GetRoleGroup(groupCode) {
		if member == roleCode {
			return true
		}
	}
	return false
}

// HasPermission reports whether a role grants a permission, directly or
// through inheritance. Unknown roles always deny.
func (e *Engine) HasPermission(roleCode, permission string) bool {
	return e.hasPermission(roleCode, permission, make(map[string]bool))
}

func (e *Engine) hasPermission(roleCode, permission string, visited map[string]bool) bool {
	if visited[roleCode] {
		return false
	}
	visited[roleCode] = true

	role, ok := e.cache.Role(roleCode)
	if !ok {
		return false
	}

	for _, granted := range role.Permissions {
		if granted == "*" {
			return true
		}
		if granted == permission {
			return true
		}
		// "leads.*" covers "leads.view" and any deeper segment, but never
		// "leadsx.view".
		if strings.HasSuffix(granted, ".*") {
			prefix := strings.TrimSuffix(granted, "*")
			if strings.HasPrefix(permission, prefix) {
				return true
			}
		}
	}

	for _, parent := range role.InheritsFrom {
		if e.hasPermission(parent, permission, visited) {
			return true
		}
	}
	return false
}

// CanApprove reports whether a role carries approval authority
func (e *Engine) CanApprove(roleCode string) bool {
	role, ok := e.cache.Role(roleCode)
	return ok && role.CanApprove
}

// CanManageUsers reports whether a role may manage user accounts
func (e *Engine) CanManageUsers(roleCode string) bool {
	role, ok := e.cache.Role(roleCode)
	return ok && role.CanManageUsers
}

// IsManagerRole reports membership in the manager role group
func (e *Engine) IsManagerRole(roleCode string) bool {
	return e.InGroup(roleCode, GroupManagerRoles)
}

// IsHRRole reports membership in the HR role group
func (e *Engine) IsHRRole(roleCode string) bool {
	return e.InGroup(roleCode, GroupHRRoles)
}

// IsConsultingRole reports membership in the consulting role group
func (e *Engine) IsConsultingRole(roleCode string) bool {
	return e.InGroup(roleCode, GroupConsultingRoles)
}

// IsSalesRole reports membership in the sales role group
func (e *Engine) IsSalesRole(roleCode string) bool {
	return e.InGroup(roleCode, GroupSalesRoles)
}

// GetStageAccess returns the role's pipeline stage configuration. Roles with
// an explicit configuration get it verbatim; everything else is synthesized
// from the role's level.
func (e *Engine) GetStageAccess(roleCode string) models.JSON {
	role, ok := e.cache.Role(roleCode)
	if !ok {
		return models.JSON{
			"mode":            "guided",
			"visible_stages":  append([]string(nil), GuidedStages...),
			"can_skip_stages": false,
		}
	}

	if role.StageAccess != nil && len(*role.StageAccess) > 0 {
		out := make(models.JSON, len(*role.StageAccess))
		for k, v := range *role.StageAccess {
			out[k] = v
		}
		return out
	}

	if role.Level >= MonitoringLevel {
		return models.JSON{
			"mode":               "monitoring",
			"all_stages_visible": true,
			"can_skip_stages":    role.Code == RoleAdmin,
		}
	}
	return models.JSON{
		"mode":            "guided",
		"visible_stages":  append([]string(nil), GuidedStages...),
		"can_skip_stages": false,
	}
}

// EffectivePermissions flattens a role's own and inherited permission
// entries into a sorted, deduplicated list. Wildcard entries stay as-is;
// this is a presentation view, not a grant expansion.
func (e *Engine) EffectivePermissions(roleCode string) []string {
	seen := make(map[string]bool)
	e.collectPermissions(roleCode, seen, make(map[string]bool))

	out := make([]string, 0, len(seen))
	for perm := range seen {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) collectPermissions(roleCode string, seen, visited map[string]bool) {
	if visited[roleCode] {
		return
	}
	visited[roleCode] = true

	role, ok := e.cache.Role(roleCode)
	if !ok {
		return
	}
	for _, perm := range role.Permissions {
		seen[perm] = true
	}
	for _, parent := range role.InheritsFrom {
		e.collectPermissions(parent, seen, visited)
	}
}

// RoleHierarchy returns every role with its inheritance links, for the
// admin hierarchy view
func (e *Engine) RoleHierarchy() []models.RoleHierarchyNode {
	roles := e.GetAllRoles()
	out := make([]models.RoleHierarchyNode, 0, len(roles))
	for _, role := range roles {
		out = append(out, models.RoleHierarchyNode{
			Code:         role.Code,
			Name:         role.Name,
			Level:        role.Level,
			Department:   role.Department,
			InheritsFrom: append([]string(nil), role.InheritsFrom...),
			Permissions:  append([]string(nil), role.Permissions...),
		})
	}
	return out
}

// GetDepartment returns the cached department for a code
func (e *Engine) GetDepartment(code string) (models.Department, bool) {
	return e.cache.Department(code)
}

// GetAllDepartments returns all cached departments sorted by code
func (e *Engine) GetAllDepartments() []models.Department {
	departments := e.cache.Departments()
	sort.Slice(departments, func(i, j int) bool {
		return departments[i].Code < departments[j].Code
	})
	return departments
}

// SeesAllRecords reports whether a role's level clears the hierarchical
// filter threshold for a resource, falling back to own-records-only for
// resources without a configured threshold.
func (e *Engine) SeesAllRecords(roleCode, resource string) bool {
	if roleCode == RoleAdmin {
		return true
	}
	threshold, ok := DefaultHierarchicalFilters[resource]
	if !ok {
		return false
	}
	return e.GetRoleLevel(roleCode) >= threshold
}
