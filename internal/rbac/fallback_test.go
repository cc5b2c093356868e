package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFallbackEvent_NonStrict(t *testing.T) {
	tracker := NewFallbackTracker(PhaseAudit, false, testLogger())

	err := tracker.LogFallbackEvent("engine.get_role_group", "group missing", "SALES_ROLES")
	assert.NoError(t, err)

	status := tracker.MigrationStatus()
	assert.Equal(t, 1, status.FallbackCount)
	require.Len(t, status.RecentFallbacks, 1)
	assert.Equal(t, "engine.get_role_group", status.RecentFallbacks[0].Location)
	assert.NotEmpty(t, status.RecentFallbacks[0].Stack)
}

func TestLogFallbackEvent_StrictReturnsError(t *testing.T) {
	tracker := NewFallbackTracker(PhaseAudit, true, testLogger())

	err := tracker.LogFallbackEvent("cache.refresh", "store unreachable", "defaults")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStrictFallback)

	// the event is recorded even though the caller will abort
	assert.Equal(t, 1, tracker.MigrationStatus().FallbackCount)
}

func TestComparePermissionResults(t *testing.T) {
	tracker := NewFallbackTracker(PhaseShadow, false, testLogger())

	// agreement records nothing
	assert.True(t, tracker.ComparePermissionResults("leads.list_scope", "sales_executive", true, true, ""))
	assert.Equal(t, 0, tracker.MigrationStatus().MismatchCount)

	// disagreement records one mismatch per call
	assert.False(t, tracker.ComparePermissionResults("leads.list_scope", "sales_executive", true, false, "level=40"))
	assert.False(t, tracker.ComparePermissionResults("leads.list_scope", "hr_executive", false, true, "level=50"))

	status := tracker.MigrationStatus()
	assert.Equal(t, 2, status.MismatchCount)
	require.Len(t, status.RecentMismatches, 2)
	assert.Equal(t, "sales_executive", status.RecentMismatches[0].Role)
	assert.True(t, status.RecentMismatches[0].OldResult)
	assert.False(t, status.RecentMismatches[0].NewResult)
}

func TestRegisterCheck_CountsPerCallSite(t *testing.T) {
	tracker := NewFallbackTracker(PhaseAudit, false, testLogger())

	tracker.RegisterCheck("leave.decide")
	tracker.RegisterCheck("leave.decide")
	tracker.RegisterCheck("leads.list_scope")

	status := tracker.MigrationStatus()
	assert.Equal(t, 2, status.RegisteredCallSites)
	assert.Equal(t, int64(3), status.TotalChecks)

	report := tracker.AuditReport()
	assert.Len(t, report.CallSites, 2)
	for _, site := range report.CallSites {
		if site.Location == "leave.decide" {
			assert.Equal(t, int64(2), site.Calls)
		}
	}
}

func TestSampleListsAreCapped(t *testing.T) {
	tracker := NewFallbackTracker(PhaseAudit, false, testLogger())

	for i := 0; i < maxSampleRecords+20; i++ {
		_ = tracker.LogFallbackEvent("loc", "reason", "value")
	}
	assert.Equal(t, maxSampleRecords, tracker.MigrationStatus().FallbackCount)
	assert.Len(t, tracker.AuditReport().Fallbacks, maxSampleRecords)
}

func TestMigrationStatus_CountsDefaults(t *testing.T) {
	tracker := NewFallbackTracker(PhaseShadow, false, testLogger())

	status := tracker.MigrationStatus()
	assert.Equal(t, PhaseShadow, status.Phase)
	assert.Equal(t, len(DefaultApprovalFlows), status.ApprovalFlows)
	assert.Equal(t, len(DefaultHierarchicalFilters), status.HierarchicalFilters)
}

func TestParsePhase(t *testing.T) {
	phase, err := ParsePhase("shadow")
	assert.NoError(t, err)
	assert.Equal(t, PhaseShadow, phase)

	phase, err = ParsePhase("")
	assert.NoError(t, err)
	assert.Equal(t, PhaseAudit, phase)

	phase, err = ParsePhase("bogus")
	assert.Error(t, err)
	assert.Equal(t, PhaseAudit, phase)

	assert.True(t, PhaseShadow.ShadowComparisonActive())
	assert.False(t, PhaseAudit.ShadowComparisonActive())
	assert.True(t, PhaseCutover.NewCheckAuthoritative())
	assert.True(t, PhaseComplete.NewCheckAuthoritative())
	assert.False(t, PhaseShadow.NewCheckAuthoritative())
}
