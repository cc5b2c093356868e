package rbac

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"workforce-service/internal/models"
	"workforce-service/internal/repository"
)

// Cache holds the in-process RBAC snapshot. Reads are lock-protected map
// lookups with no I/O; refresh replaces the whole snapshot atomically.
// Staleness is bounded by the TTL plus the time a refresh takes.
type Cache struct {
	mu          sync.RWMutex
	roles       map[string]models.Role
	departments map[string]models.Department
	groups      map[string][]string
	timestamp   time.Time
	version     uint64

	refreshMu sync.Mutex
	repo      repository.RBACRepository
	tracker   *FallbackTracker
	ttl       time.Duration
	log       *logrus.Entry
}

func NewCache(repo repository.RBACRepository, tracker *FallbackTracker, ttl time.Duration, log *logrus.Logger) *Cache {
	return &Cache{
		roles:       make(map[string]models.Role),
		departments: make(map[string]models.Department),
		groups:      make(map[string][]string),
		repo:        repo,
		tracker:     tracker,
		ttl:         ttl,
		log:         log.WithField("component", "rbac_cache"),
	}
}

// IsValid reports whether the snapshot is within its TTL
func (c *Cache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.timestamp.IsZero() && time.Since(c.timestamp) < c.ttl
}

// EnsureFresh refreshes the snapshot when it has expired. Concurrent callers
// collapse onto one refresh; latecomers re-check validity after taking the
// refresh mutex and return without hitting the store.
func (c *Cache) EnsureFresh(ctx context.Context) error {
	if c.IsValid() {
		return nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.IsValid() {
		return nil
	}
	return c.refreshLocked(ctx)
}

// Refresh reloads the snapshot unconditionally, bypassing the TTL
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Cache) refreshLocked(ctx context.Context) error {
	roles, err := c.repo.ListActiveRoles(ctx)
	if err != nil {
		return c.loadDefaults(fmt.Sprintf("role store unreachable: %v", err))
	}

	// Zero active roles means an unseeded or wiped store, not an operator
	// decision to disable everyone. Re-seed and reload once.
	if len(roles) == 0 {
		c.log.Warn("No active roles in store, re-seeding defaults")
		if err := c.repo.SeedDefaults(ctx, DefaultRoles, DefaultDepartments, defaultGroupRecords()); err != nil {
			return c.loadDefaults(fmt.Sprintf("re-seed failed: %v", err))
		}
		roles, err = c.repo.ListActiveRoles(ctx)
		if err != nil || len(roles) == 0 {
			return c.loadDefaults(fmt.Sprintf("store still empty after re-seed (err=%v)", err))
		}
	}

	departments, err := c.repo.ListActiveDepartments(ctx)
	if err != nil {
		return c.loadDefaults(fmt.Sprintf("department load failed: %v", err))
	}

	groupRecords, err := c.repo.ListRoleGroups(ctx)
	if err != nil {
		return c.loadDefaults(fmt.Sprintf("role group load failed: %v", err))
	}

	roleMap := make(map[string]models.Role, len(roles))
	for _, role := range roles {
		if err := role.Validate(); err != nil {
			c.log.WithError(err).WithField("code", role.Code).Error("Skipping malformed role record")
			continue
		}
		roleMap[role.Code] = role
	}

	deptMap := make(map[string]models.Department, len(departments))
	for _, dept := range departments {
		if err := dept.Validate(); err != nil {
			c.log.WithError(err).WithField("code", dept.Code).Error("Skipping malformed department record")
			continue
		}
		deptMap[dept.Code] = dept
	}

	groupMap := make(map[string][]string, len(groupRecords))
	for _, group := range groupRecords {
		groupMap[group.Code] = append([]string(nil), group.Roles...)
	}

	// Groups the store is missing are served from compiled-in defaults for
	// this snapshot only. They are not written back; seeding owns persistence.
	for code := range DefaultRoleGroups {
		if _, ok := groupMap[code]; !ok {
			members, _ := defaultRoleGroup(code)
			groupMap[code] = members
			c.log.WithField("group", code).Warn("Role group missing from store, serving compiled-in default")
		}
	}

	c.mu.Lock()
	c.roles = roleMap
	c.departments = deptMap
	c.groups = groupMap
	c.timestamp = time.Now()
	c.version++
	version := c.version
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"roles":       len(roleMap),
		"departments": len(deptMap),
		"groups":      len(groupMap),
		"version":     version,
	}).Info("RBAC snapshot refreshed")

	return nil
}

// loadDefaults installs the compiled-in snapshot after a store failure so
// permission checks keep a deterministic basis. The fallback event makes the
// degradation loud; strict mode escalates it into the returned error.
func (c *Cache) loadDefaults(reason string) error {
	roleMap := make(map[string]models.Role, len(DefaultRoles))
	for _, role := range DefaultRoles {
		roleMap[role.Code] = role
	}
	deptMap := make(map[string]models.Department, len(DefaultDepartments))
	for _, dept := range DefaultDepartments {
		deptMap[dept.Code] = dept
	}
	groupMap := make(map[string][]string, len(DefaultRoleGroups))
	for code := range DefaultRoleGroups {
		members, _ := defaultRoleGroup(code)
		groupMap[code] = members
	}

	c.mu.Lock()
	c.roles = roleMap
	c.departments = deptMap
	c.groups = groupMap
	c.timestamp = time.Now()
	c.version++
	c.mu.Unlock()

	return c.tracker.LogFallbackEvent("cache.refresh", reason, "compiled-in default snapshot")
}

// Role returns the cached role for a code
func (c *Cache) Role(code string) (models.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	role, ok := c.roles[code]
	return role, ok
}

// Roles returns all cached roles
func (c *Cache) Roles() []models.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Role, 0, len(c.roles))
	for _, role := range c.roles {
		out = append(out, role)
	}
	return out
}

// Department returns the cached department for a code
func (c *Cache) Department(code string) (models.Department, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dept, ok := c.departments[code]
	return dept, ok
}

// Departments returns all cached departments
func (c *Cache) Departments() []models.Department {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Department, 0, len(c.departments))
	for _, dept := range c.departments {
		out = append(out, dept)
	}
	return out
}

// Group returns a copy of the cached membership for a group code
func (c *Cache) Group(code string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	members, ok := c.groups[code]
	if !ok {
		return nil, false
	}
	return append([]string(nil), members...), true
}

// Groups returns a copy of every cached group
func (c *Cache) Groups() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string, len(c.groups))
	for code, members := range c.groups {
		out[code] = append([]string(nil), members...)
	}
	return out
}

// Version returns the monotonic snapshot version, starting at zero before
// the first load
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Timestamp returns when the current snapshot was installed
func (c *Cache) Timestamp() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timestamp
}

// defaultGroupRecords converts the compiled-in group map into seedable rows
func defaultGroupRecords() []models.RoleGroup {
	out := make([]models.RoleGroup, 0, len(DefaultRoleGroups))
	for code, members := range DefaultRoleGroups {
		out = append(out, models.RoleGroup{
			Code:     code,
			Name:     code,
			Roles:    models.StringList(append([]string(nil), members...)),
			IsSystem: true,
		})
	}
	return out
}
