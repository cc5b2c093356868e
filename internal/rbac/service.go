package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"workforce-service/internal/cache"
	"workforce-service/internal/events"
	"workforce-service/internal/models"
	"workforce-service/internal/repository"
)

// Service errors mapped to API responses by the handlers
var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrDuplicateCode     = errors.New("code already exists")
	ErrInvalidCode       = errors.New("code must be lowercase snake case")
	ErrSystemRole        = errors.New("cannot delete system role")
	ErrRoleInUse         = errors.New("role is assigned to active employees")
	ErrUnknownRoles      = errors.New("unknown role codes")
	ErrUnknownDepartment = errors.New("unknown department")
	ErrGroupNotFound     = errors.New("role group not found")
	ErrDeptNotFound      = errors.New("department not found")
	ErrUnhealthyStartup  = errors.New("consistency check failed in strict mode")
)

const seedLockName = "rbac_seed"

// Service owns RBAC lifecycle and mutations. Reads go through the Engine;
// every mutation persists, refreshes the snapshot and invalidates the
// presentation cache.
type Service struct {
	repo      repository.RBACRepository
	employees repository.EmployeeRepository
	cache     *Cache
	engine    *Engine
	tracker   *FallbackTracker
	locks     *LockManager
	checker   *ConsistencyChecker
	perms     *cache.PermissionCache
	publisher events.Publisher
	strict    bool
	log       *logrus.Entry
}

type ServiceDeps struct {
	Repo      repository.RBACRepository
	Employees repository.EmployeeRepository
	Cache     *Cache
	Engine    *Engine
	Tracker   *FallbackTracker
	Locks     *LockManager
	Checker   *ConsistencyChecker
	Perms     *cache.PermissionCache
	Publisher events.Publisher
	Strict    bool
	Log       *logrus.Logger
}

func NewService(deps ServiceDeps) *Service {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		repo:      deps.Repo,
		employees: deps.Employees,
		cache:     deps.Cache,
		engine:    deps.Engine,
		tracker:   deps.Tracker,
		locks:     deps.Locks,
		checker:   deps.Checker,
		perms:     deps.Perms,
		publisher: publisher,
		strict:    deps.Strict,
		log:       deps.Log.WithField("component", "rbac_service"),
	}
}

func (s *Service) Engine() *Engine              { return s.engine }
func (s *Service) Cache() *Cache                { return s.cache }
func (s *Service) Tracker() *FallbackTracker    { return s.tracker }
func (s *Service) Checker() *ConsistencyChecker { return s.checker }

// Initialize seeds defaults, loads the first snapshot and runs the startup
// consistency sweep. Seeding runs under the distributed lock so concurrent
// replicas cannot race; losing the lock is fine because the winner seeds
// the same defaults.
func (s *Service) Initialize(ctx context.Context) error {
	err := s.locks.WithLock(ctx, seedLockName, func(ctx context.Context) error {
		count, err := s.repo.CountActiveRoles(ctx)
		if err != nil {
			return fmt.Errorf("could not count roles: %w", err)
		}
		if count > 0 {
			return nil
		}
		s.log.Info("Seeding default roles, departments and role groups")
		return s.repo.SeedDefaults(ctx, DefaultRoles, DefaultDepartments, defaultGroupRecords())
	})
	if errors.Is(err, ErrLockNotAcquired) {
		s.log.Warn("Seed lock held elsewhere, continuing without seeding")
	} else if err != nil {
		return err
	}

	if err := s.cache.Refresh(ctx); err != nil {
		return err
	}

	report, err := s.checker.Run(ctx)
	if err != nil {
		s.log.WithError(err).Error("Startup consistency check failed to run")
		if s.strict {
			return err
		}
		return nil
	}
	if report.Status == StatusIssuesFound {
		for _, issue := range report.Issues {
			s.log.WithFields(logrus.Fields{
				"type":     issue.Type,
				"severity": issue.Severity,
			}).Error(issue.Detail)
		}
		if s.strict {
			return fmt.Errorf("%w: %d issues", ErrUnhealthyStartup, report.IssuesFound)
		}
	}
	return nil
}

// EnsureFresh exposes snapshot freshness to the middleware and handlers
func (s *Service) EnsureFresh(ctx context.Context) error {
	return s.cache.EnsureFresh(ctx)
}

// RefreshCache reloads the snapshot immediately and clears cached
// presentation views
func (s *Service) RefreshCache(ctx context.Context, tenantID, actor string) error {
	if err := s.cache.Refresh(ctx); err != nil {
		return err
	}
	s.perms.InvalidateAll(ctx)
	s.publisher.Publish(events.SubjectCacheRefreshed, tenantID, actor, map[string]interface{}{
		"version": s.cache.Version(),
	})
	return nil
}

// CreateRole validates and persists a new role, then refreshes the snapshot
func (s *Service) CreateRole(ctx context.Context, tenantID, actor string, req *models.CreateRoleRequest) (*models.Role, error) {
	role := models.Role{
		Code:         req.Code,
		Name:         req.Name,
		Description:  req.Description,
		Level:        req.Level,
		Department:   req.Department,
		IsActive:     true,
		InheritsFrom: models.StringList(req.InheritsFrom),
		Permissions:  models.StringList(req.Permissions),
		StageAccess:  req.StageAccess,
		CreatedBy:    &actor,
	}
	if req.CanApprove != nil {
		role.CanApprove = *req.CanApprove
	}
	if req.CanManageUsers != nil {
		role.CanManageUsers = *req.CanManageUsers
	}

	if err := role.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if err := s.validateRoleRefs(req.Department, req.InheritsFrom, req.Code); err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetRoleByCode(ctx, req.Code); err == nil && existing != nil {
		return nil, ErrDuplicateCode
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.repo.CreateRole(ctx, &role); err != nil {
		return nil, err
	}
	s.afterMutation(ctx, tenantID, actor, events.SubjectRoleCreated, role.Code)
	return &role, nil
}

// UpdateRole merges provided fields into an existing role. System role
// protections: the admin level may not be lowered and admin cannot be
// deactivated.
func (s *Service) UpdateRole(ctx context.Context, tenantID, actor string, code string, req *models.UpdateRoleRequest) (*models.Role, error) {
	existing, err := s.repo.GetRoleByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{"updated_by": actor}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Level != nil {
		level := *req.Level
		if code == RoleAdmin && level < 100 {
			return nil, fmt.Errorf("%w: admin level cannot be lowered below 100", ErrSystemRole)
		}
		if level < 1 || level > 100 {
			return nil, fmt.Errorf("%w: level %d out of range 1-100", ErrInvalidCode, level)
		}
		updates["level"] = level
	}
	if req.Department != nil {
		if err := s.validateRoleRefs(*req.Department, nil, code); err != nil {
			return nil, err
		}
		updates["department"] = *req.Department
	}
	if req.IsActive != nil {
		if code == RoleAdmin && !*req.IsActive {
			return nil, fmt.Errorf("%w: admin cannot be deactivated", ErrSystemRole)
		}
		updates["is_active"] = *req.IsActive
	}
	if req.CanApprove != nil {
		updates["can_approve"] = *req.CanApprove
	}
	if req.CanManageUsers != nil {
		updates["can_manage_users"] = *req.CanManageUsers
	}
	if req.InheritsFrom != nil {
		if err := s.validateRoleRefs("", *req.InheritsFrom, code); err != nil {
			return nil, err
		}
		updates["inherits_from"] = models.StringList(*req.InheritsFrom)
	}
	if req.Permissions != nil {
		updates["permissions"] = models.StringList(*req.Permissions)
	}
	if req.StageAccess != nil {
		updates["stage_access"] = req.StageAccess
	}

	if err := s.repo.UpdateRole(ctx, code, updates); err != nil {
		return nil, err
	}
	s.afterMutation(ctx, tenantID, actor, events.SubjectRoleUpdated, code)

	updated, err := s.repo.GetRoleByCode(ctx, code)
	if err != nil {
		return existing, nil
	}
	return updated, nil
}

// DeleteRole soft-deletes by deactivation. The role row stays so historical
// references keep resolving in reports.
func (s *Service) DeleteRole(ctx context.Context, tenantID, actor string, code string) error {
	role, err := s.repo.GetRoleByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		return err
	}
	if role.IsSystem || code == RoleAdmin || code == RoleClient {
		return ErrSystemRole
	}

	assigned, err := s.employees.CountByRoleCode(ctx, code)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return fmt.Errorf("%w: %d employees", ErrRoleInUse, assigned)
	}

	if err := s.repo.UpdateRole(ctx, code, map[string]interface{}{
		"is_active":  false,
		"updated_by": actor,
	}); err != nil {
		return err
	}
	s.afterMutation(ctx, tenantID, actor, events.SubjectRoleDeleted, code)
	return nil
}

// CreateDepartment persists a new department
func (s *Service) CreateDepartment(ctx context.Context, tenantID, actor string, req *models.CreateDepartmentRequest) (*models.Department, error) {
	dept := models.Department{
		Code:     req.Code,
		Name:     req.Name,
		Color:    req.Color,
		IsActive: true,
	}
	if dept.Color == "" {
		dept.Color = "#6B7280"
	}
	if err := dept.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if existing, err := s.repo.GetDepartmentByCode(ctx, req.Code); err == nil && existing != nil {
		return nil, ErrDuplicateCode
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.repo.CreateDepartment(ctx, &dept); err != nil {
		return nil, err
	}
	s.afterMutation(ctx, tenantID, actor, events.SubjectRoleUpdated, "department:"+dept.Code)
	return &dept, nil
}

// UpdateDepartment merges provided fields into an existing department
func (s *Service) UpdateDepartment(ctx context.Context, tenantID, actor string, code string, req *models.UpdateDepartmentRequest) (*models.Department, error) {
	if _, err := s.repo.GetDepartmentByCode(ctx, code); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeptNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateDepartment(ctx, code, updates); err != nil {
			return nil, err
		}
		s.afterMutation(ctx, tenantID, actor, events.SubjectRoleUpdated, "department:"+code)
	}
	return s.repo.GetDepartmentByCode(ctx, code)
}

// UpdateRoleGroup replaces a group's membership. Every member must be a
// known role code; the full snapshot refresh afterwards means subsequent
// group resolutions see the live record with no fallback.
func (s *Service) UpdateRoleGroup(ctx context.Context, tenantID, actor string, code string, roles []string) error {
	active, err := s.repo.ListActiveRoles(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(active))
	for _, role := range active {
		known[role.Code] = true
	}
	for _, member := range roles {
		if !known[member] {
			return fmt.Errorf("%w: %q", ErrUnknownRoles, member)
		}
	}

	group := models.RoleGroup{
		Code:      code,
		Name:      code,
		Roles:     models.StringList(roles),
		UpdatedBy: &actor,
	}
	if err := s.repo.UpsertRoleGroup(ctx, &group); err != nil {
		return err
	}
	s.afterMutation(ctx, tenantID, actor, events.SubjectRoleGroupUpdated, code)
	return nil
}

// validateRoleRefs checks department and inheritance references against the
// snapshot, skipping empty values
func (s *Service) validateRoleRefs(department string, inherits []string, selfCode string) error {
	if department != "" {
		if _, ok := s.cache.Department(department); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDepartment, department)
		}
	}
	for _, parent := range inherits {
		if parent == selfCode {
			return fmt.Errorf("%w: role cannot inherit from itself", ErrUnknownRoles)
		}
		if _, ok := s.cache.Role(parent); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRoles, parent)
		}
	}
	return nil
}

// afterMutation refreshes the snapshot, clears cached views and publishes
// the change event. Refresh failures are logged, not returned; the write
// already landed and the TTL bounds how long readers can lag.
func (s *Service) afterMutation(ctx context.Context, tenantID, actor, subject, code string) {
	if err := s.cache.Refresh(ctx); err != nil {
		s.log.WithError(err).Error("Snapshot refresh after mutation failed")
	}
	s.perms.InvalidateAll(ctx)
	s.publisher.Publish(subject, tenantID, actor, map[string]interface{}{
		"code":    code,
		"version": s.cache.Version(),
		"at":      time.Now().UTC(),
	})
}
