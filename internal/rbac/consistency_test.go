package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"workforce-service/internal/models"
)

func issueTypes(report *ConsistencyReport) []string {
	types := make([]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		types = append(types, issue.Type)
	}
	return types
}

func TestConsistency_Healthy(t *testing.T) {
	repo := new(MockRBACRepository)
	employees := new(MockEmployeeRepository)

	repo.On("ListActiveRoles", mock.Anything).Return(storeRoles(), nil)
	repo.On("ListRoleGroups", mock.Anything).Return([]models.RoleGroup{
		{Code: GroupHRRoles, Roles: models.StringList{"admin"}},
	}, nil)
	employees.On("DistinctRoleCodes", mock.Anything).Return([]string{"admin", "employee"}, nil)

	checker := NewConsistencyChecker(repo, employees, testLogger())
	report, err := checker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Zero(t, report.IssuesFound)
	assert.Contains(t, report.SkippedChecks, "orphaned_permissions")
}

func TestConsistency_GhostEmployeeRole(t *testing.T) {
	repo := new(MockRBACRepository)
	employees := new(MockEmployeeRepository)

	repo.On("ListActiveRoles", mock.Anything).Return(storeRoles(), nil)
	repo.On("ListRoleGroups", mock.Anything).Return([]models.RoleGroup{}, nil)
	employees.On("DistinctRoleCodes", mock.Anything).Return([]string{"admin", "ghost_role"}, nil)

	checker := NewConsistencyChecker(repo, employees, testLogger())
	report, err := checker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusIssuesFound, report.Status)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "invalid_user_roles", report.Issues[0].Type)
	assert.Equal(t, SeverityHigh, report.Issues[0].Severity)
	assert.Contains(t, report.Issues[0].Detail, "ghost_role")
}

func TestConsistency_InvalidGroupMember(t *testing.T) {
	repo := new(MockRBACRepository)
	employees := new(MockEmployeeRepository)

	repo.On("ListActiveRoles", mock.Anything).Return(storeRoles(), nil)
	repo.On("ListRoleGroups", mock.Anything).Return([]models.RoleGroup{
		{Code: GroupSalesRoles, Roles: models.StringList{"admin", "retired_role"}},
	}, nil)
	employees.On("DistinctRoleCodes", mock.Anything).Return([]string{"admin"}, nil)

	checker := NewConsistencyChecker(repo, employees, testLogger())
	report, err := checker.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, "invalid_group_roles", report.Issues[0].Type)
	assert.Equal(t, SeverityMedium, report.Issues[0].Severity)
}

func TestConsistency_CircularInheritance(t *testing.T) {
	repo := new(MockRBACRepository)
	employees := new(MockEmployeeRepository)

	cyclic := []models.Role{
		{Code: "role_a", Name: "A", Level: 10, IsActive: true, InheritsFrom: models.StringList{"role_b"}},
		{Code: "role_b", Name: "B", Level: 10, IsActive: true, InheritsFrom: models.StringList{"role_a"}},
		{Code: "loner", Name: "Loner", Level: 10, IsActive: true},
	}
	repo.On("ListActiveRoles", mock.Anything).Return(cyclic, nil)
	repo.On("ListRoleGroups", mock.Anything).Return([]models.RoleGroup{}, nil)
	employees.On("DistinctRoleCodes", mock.Anything).Return([]string{}, nil)

	checker := NewConsistencyChecker(repo, employees, testLogger())
	report, err := checker.Run(context.Background())
	require.NoError(t, err)

	// only the first cycle is reported
	types := issueTypes(report)
	count := 0
	for _, typ := range types {
		if typ == "circular_inheritance" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, StatusIssuesFound, report.Status)
}

func TestConsistency_SelfInheritanceIsACycle(t *testing.T) {
	repo := new(MockRBACRepository)
	employees := new(MockEmployeeRepository)

	repo.On("ListActiveRoles", mock.Anything).Return([]models.Role{
		{Code: "narcissist", Name: "Self", Level: 10, IsActive: true, InheritsFrom: models.StringList{"narcissist"}},
	}, nil)
	repo.On("ListRoleGroups", mock.Anything).Return([]models.RoleGroup{}, nil)
	employees.On("DistinctRoleCodes", mock.Anything).Return([]string{}, nil)

	checker := NewConsistencyChecker(repo, employees, testLogger())
	report, err := checker.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, issueTypes(report), "circular_inheritance")
}
