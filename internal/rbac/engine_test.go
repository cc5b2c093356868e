package rbac

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce-service/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// newTestEngine builds an engine over a pre-populated snapshot
func newTestEngine(roles []models.Role, groups map[string][]string) (*Engine, *FallbackTracker) {
	log := testLogger()
	tracker := NewFallbackTracker(PhaseComplete, false, log)
	cache := NewCache(nil, tracker, 0, log)

	cache.roles = make(map[string]models.Role, len(roles))
	for _, role := range roles {
		cache.roles[role.Code] = role
	}
	cache.groups = make(map[string][]string, len(groups))
	for code, members := range groups {
		cache.groups[code] = members
	}
	return NewEngine(cache, tracker, log), tracker
}

func TestHasPermission_Wildcard(t *testing.T) {
	engine, _ := newTestEngine([]models.Role{
		{Code: "admin", Name: "Admin", Level: 100, Permissions: models.StringList{"*"}},
	}, nil)

	assert.True(t, engine.HasPermission("admin", "leads.view"))
	assert.True(t, engine.HasPermission("admin", "anything.at.all"))
}

func TestHasPermission_ExactAndPrefix(t *testing.T) {
	engine, _ := newTestEngine([]models.Role{
		{Code: "hr_manager", Name: "HR Manager", Level: 80, Permissions: models.StringList{"hr.*", "leave.approve"}},
	}, nil)

	assert.True(t, engine.HasPermission("hr_manager", "leave.approve"))
	assert.True(t, engine.HasPermission("hr_manager", "hr.view"))
	assert.True(t, engine.HasPermission("hr_manager", "hr.records.export"))
	assert.False(t, engine.HasPermission("hr_manager", "hrx.view"))
	assert.False(t, engine.HasPermission("hr_manager", "leads.view"))
}

func TestHasPermission_Inheritance(t *testing.T) {
	engine, _ := newTestEngine([]models.Role{
		{Code: "employee", Name: "Employee", Level: 10, Permissions: models.StringList{"profile.view"}},
		{Code: "sales_executive", Name: "Sales Exec", Level: 40,
			Permissions:  models.StringList{"leads.own"},
			InheritsFrom: models.StringList{"employee"}},
		{Code: "sales_manager", Name: "Sales Mgr", Level: 80,
			Permissions:  models.StringList{"leads.*"},
			InheritsFrom: models.StringList{"sales_executive"}},
	}, nil)

	// transitively through two hops
	assert.True(t, engine.HasPermission("sales_manager", "profile.view"))
	assert.True(t, engine.HasPermission("sales_executive", "profile.view"))
	assert.False(t, engine.HasPermission("employee", "leads.own"))
}

func TestHasPermission_CycleTerminates(t *testing.T) {
	engine, _ := newTestEngine([]models.Role{
		{Code: "role_a", Name: "A", Level: 10,
			Permissions:  models.StringList{"a.only"},
			InheritsFrom: models.StringList{"role_b"}},
		{Code: "role_b", Name: "B", Level: 10,
			Permissions:  models.StringList{"b.only"},
			InheritsFrom: models.StringList{"role_a"}},
	}, nil)

	assert.True(t, engine.HasPermission("role_a", "b.only"))
	assert.True(t, engine.HasPermission("role_b", "a.only"))
	assert.False(t, engine.HasPermission("role_a", "c.missing"))
}

func TestHasPermission_UnknownRoleDenies(t *testing.T) {
	engine, _ := newTestEngine(nil, nil)
	assert.False(t, engine.HasPermission("ghost", "anything"))
	assert.False(t, engine.HasPermission("", "anything"))
}

func TestGetRoleGroup_LiveThenFallback(t *testing.T) {
	engine, tracker := newTestEngine(nil, map[string][]string{
		GroupHRRoles: {"admin", "hr_manager", "custom_role"},
	})

	// live group wins, no fallback recorded
	members := engine.GetRoleGroup(GroupHRRoles)
	assert.Contains(t, members, "custom_role")
	assert.Equal(t, 0, tracker.MigrationStatus().FallbackCount)

	// missing group serves the compiled-in default and records an event
	members = engine.GetRoleGroup(GroupSalesRoles)
	assert.Contains(t, members, "sales_manager")
	assert.Equal(t, 1, tracker.MigrationStatus().FallbackCount)

	// every call records again, the gap must stay loud
	engine.GetRoleGroup(GroupSalesRoles)
	assert.Equal(t, 2, tracker.MigrationStatus().FallbackCount)
}

func TestGetRoleGroup_StrictModeAborts(t *testing.T) {
	log := testLogger()
	tracker := NewFallbackTracker(PhaseComplete, true, log)
	cache := NewCache(nil, tracker, 0, log)
	cache.groups = map[string][]string{
		GroupHRRoles: {"admin", "hr_manager"},
	}
	engine := NewEngine(cache, tracker, log)

	// live groups still resolve
	members, err := engine.ResolveRoleGroup(GroupHRRoles)
	require.NoError(t, err)
	assert.Contains(t, members, "hr_manager")

	// a missing group aborts instead of serving the compiled default
	_, err = engine.ResolveRoleGroup(GroupSalesRoles)
	assert.ErrorIs(t, err, ErrStrictFallback)
	assert.Equal(t, 1, tracker.MigrationStatus().FallbackCount)

	// callers with no error path deny membership outright
	assert.Empty(t, engine.GetRoleGroup(GroupSalesRoles))
	assert.False(t, engine.InGroup("sales_manager", GroupSalesRoles))
	assert.False(t, engine.IsSalesRole("sales_manager"))
}

func TestGetRoleGroup_UnknownGroupEmpty(t *testing.T) {
	engine, tracker := newTestEngine(nil, nil)
	assert.Empty(t, engine.GetRoleGroup("NO_SUCH_GROUP"))
	// unknown group is a caller bug, not a fallback
	assert.Equal(t, 0, tracker.MigrationStatus().MismatchCount)
}

func TestHasRole_AdminOverride(t *testing.T) {
	engine, _ := newTestEngine(nil, nil)
	assert.True(t, engine.HasRole("admin", "hr_manager"))
	assert.True(t, engine.HasAnyRole("admin", "consultant"))
	assert.False(t, engine.HasRole("consultant", "hr_manager"))
	assert.True(t, engine.HasRole("consultant", "consultant"))
}

func TestGetStageAccess(t *testing.T) {
	explicit := models.JSON{"mode": "custom", "visible_stages": []string{"new"}}
	engine, _ := newTestEngine([]models.Role{
		{Code: "admin", Name: "Admin", Level: 100},
		{Code: "sales_manager", Name: "Sales Mgr", Level: 80},
		{Code: "sales_executive", Name: "Sales Exec", Level: 40},
		{Code: "custom", Name: "Custom", Level: 50, StageAccess: &explicit},
	}, nil)

	// explicit config passes through untouched
	access := engine.GetStageAccess("custom")
	assert.Equal(t, "custom", access["mode"])

	// high level synthesizes monitoring, only admin may skip stages
	access = engine.GetStageAccess("sales_manager")
	assert.Equal(t, "monitoring", access["mode"])
	assert.Equal(t, false, access["can_skip_stages"])

	access = engine.GetStageAccess("admin")
	assert.Equal(t, true, access["can_skip_stages"])

	// low level gets the guided subset
	access = engine.GetStageAccess("sales_executive")
	assert.Equal(t, "guided", access["mode"])
	assert.Equal(t, GuidedStages, access["visible_stages"])
}

func TestEffectivePermissions(t *testing.T) {
	engine, _ := newTestEngine([]models.Role{
		{Code: "employee", Name: "Employee", Level: 10, Permissions: models.StringList{"profile.view"}},
		{Code: "hr_executive", Name: "HR Exec", Level: 50,
			Permissions:  models.StringList{"hr.view", "profile.view"},
			InheritsFrom: models.StringList{"employee"}},
	}, nil)

	perms := engine.EffectivePermissions("hr_executive")
	assert.Equal(t, []string{"hr.view", "profile.view"}, perms)
}

func TestSeesAllRecords(t *testing.T) {
	engine, _ := newTestEngine([]models.Role{
		{Code: "sales_manager", Name: "Sales Mgr", Level: 80},
		{Code: "sales_executive", Name: "Sales Exec", Level: 40},
	}, nil)

	assert.True(t, engine.SeesAllRecords("admin", "leads"))
	assert.True(t, engine.SeesAllRecords("sales_manager", "leads"))
	assert.False(t, engine.SeesAllRecords("sales_executive", "leads"))
	// unconfigured resources default to own records only
	assert.False(t, engine.SeesAllRecords("sales_manager", "invoices"))
}
