package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce-service/internal/cache"
	"workforce-service/internal/models"
	"workforce-service/internal/rbac"
)

func newShadowService(t *testing.T, phase rbac.Phase) *rbac.Service {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	// team_lead sits in the manager group but below the hierarchy
	// threshold, which is exactly the disagreement shadow mode exists to
	// surface
	roles := append(append([]models.Role{}, rbac.DefaultRoles...), models.Role{
		Code:        "team_lead",
		Name:        "Team Lead",
		Level:       50,
		IsActive:    true,
		Permissions: models.StringList{"leads.view"},
	})
	repo := &stubRBACRepo{
		roles: roles,
		groups: []models.RoleGroup{
			{Code: rbac.GroupManagerRoles, Name: rbac.GroupManagerRoles,
				Roles: models.StringList{"admin", "sales_manager", "team_lead"}},
		},
	}

	tracker := rbac.NewFallbackTracker(phase, false, log)
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
	return service
}

func TestSeesAllLeads_ShadowRecordsMismatch(t *testing.T) {
	service := newShadowService(t, rbac.PhaseShadow)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	handler := NewLeadHandler(nil, service, log)

	// legacy group check grants, new level check denies; legacy stays
	// authoritative in shadow and the mismatch is recorded
	assert.True(t, handler.seesAllLeads("team_lead"))
	assert.Equal(t, 1, service.Tracker().MigrationStatus().MismatchCount)

	// agreeing roles add no mismatch
	assert.True(t, handler.seesAllLeads("sales_manager"))
	assert.False(t, handler.seesAllLeads("sales_executive"))
	assert.Equal(t, 1, service.Tracker().MigrationStatus().MismatchCount)
}

func TestSeesAllLeads_CutoverTrustsNewCheck(t *testing.T) {
	service := newShadowService(t, rbac.PhaseCutover)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	handler := NewLeadHandler(nil, service, log)

	// after cutover the level check decides: team_lead loses the broad
	// visibility the legacy group check used to give it
	assert.False(t, handler.seesAllLeads("team_lead"))
	assert.True(t, handler.seesAllLeads("sales_manager"))
	assert.True(t, handler.seesAllLeads("admin"))
	assert.Zero(t, service.Tracker().MigrationStatus().MismatchCount)
}

func TestSeesAllLeads_AuditTrustsLegacy(t *testing.T) {
	service := newShadowService(t, rbac.PhaseAudit)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	handler := NewLeadHandler(nil, service, log)

	assert.True(t, handler.seesAllLeads("team_lead"))
	assert.Zero(t, service.Tracker().MigrationStatus().MismatchCount)
	// every call is still counted for the audit report
	assert.NotZero(t, service.Tracker().MigrationStatus().TotalChecks)
}
