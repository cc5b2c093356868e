package rbac

import "workforce-service/internal/models"

// Role group codes used as reusable authorization predicates
const (
	GroupManagerRoles    = "MANAGER_ROLES"
	GroupHRRoles         = "HR_ROLES"
	GroupConsultingRoles = "CONSULTING_ROLES"
	GroupSalesRoles      = "SALES_ROLES"
	GroupApproverRoles   = "APPROVER_ROLES"
)

// System role codes that may never be hard-deleted
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// DefaultRoles are the compiled-in roles seeded on first boot and used as the
// fail-loud fallback when the live store is unavailable.
var DefaultRoles = []models.Role{
	{
		Code:           RoleAdmin,
		Name:           "Administrator",
		Description:    "Full system access",
		Level:          100,
		Department:     "management",
		IsActive:       true,
		IsSystem:       true,
		CanApprove:     true,
		CanManageUsers: true,
		Permissions:    models.StringList{"*"},
	},
	{
		Code:           "hr_manager",
		Name:           "HR Manager",
		Description:    "Manages employees, attendance, leave and payroll",
		Level:          80,
		Department:     "hr",
		IsActive:       true,
		IsSystem:       true,
		CanApprove:     true,
		CanManageUsers: true,
		Permissions:    models.StringList{"hr.*", "attendance.*", "leave.*", "payroll.*"},
	},
	{
		Code:         "hr_executive",
		Name:         "HR Executive",
		Description:  "Day-to-day HR operations",
		Level:        50,
		Department:   "hr",
		IsActive:     true,
		Permissions:  models.StringList{"hr.view", "attendance.view", "leave.view"},
		InheritsFrom: models.StringList{"employee"},
	},
	{
		Code:         "sales_manager",
		Name:         "Sales Manager",
		Description:  "Oversees the sales pipeline",
		Level:        80,
		Department:   "sales",
		IsActive:     true,
		CanApprove:   true,
		Permissions:  models.StringList{"leads.*", "agreements.*"},
		InheritsFrom: models.StringList{"sales_executive"},
	},
	{
		Code:         "sales_executive",
		Name:         "Sales Executive",
		Description:  "Works own leads through the pipeline",
		Level:        40,
		Department:   "sales",
		IsActive:     true,
		Permissions:  models.StringList{"leads.own", "leads.create", "leads.view", "leads.edit"},
		InheritsFrom: models.StringList{"employee"},
	},
	{
		Code:         "consulting_manager",
		Name:         "Consulting Manager",
		Description:  "Manages SOW tracking and project kickoff",
		Level:        80,
		Department:   "consulting",
		IsActive:     true,
		CanApprove:   true,
		Permissions:  models.StringList{"sow.*", "projects.*"},
		InheritsFrom: models.StringList{"consultant"},
	},
	{
		Code:         "consultant",
		Name:         "Consultant",
		Description:  "Delivers against assigned SOW items",
		Level:        40,
		Department:   "consulting",
		IsActive:     true,
		Permissions:  models.StringList{"sow.view", "projects.view"},
		InheritsFrom: models.StringList{"employee"},
	},
	{
		Code:        "finance_manager",
		Name:        "Finance Manager",
		Description: "Approves expenses and payroll runs",
		Level:       80,
		Department:  "finance",
		IsActive:    true,
		CanApprove:  true,
		Permissions: models.StringList{"payroll.*", "expenses.*"},
	},
	{
		Code:        "employee",
		Name:        "Employee",
		Description: "Baseline self-service access",
		Level:       10,
		Department:  "general",
		IsActive:    true,
		Permissions: models.StringList{"attendance.mark", "attendance.view", "leave.request", "leave.view", "profile.view"},
	},
	{
		Code:        RoleClient,
		Name:        "Client",
		Description: "External client portal access",
		Level:       5,
		Department:  "general",
		IsActive:    true,
		IsSystem:    true,
		Permissions: models.StringList{"portal.view"},
	},
}

// DefaultDepartments seeded on first boot
var DefaultDepartments = []models.Department{
	{Code: "management", Name: "Management", Color: "#7C3AED", IsActive: true},
	{Code: "hr", Name: "Human Resources", Color: "#059669", IsActive: true},
	{Code: "sales", Name: "Sales", Color: "#2563EB", IsActive: true},
	{Code: "consulting", Name: "Consulting", Color: "#D97706", IsActive: true},
	{Code: "finance", Name: "Finance", Color: "#DC2626", IsActive: true},
	{Code: "general", Name: "General", Color: "#6B7280", IsActive: true},
}

// DefaultRoleGroups is the compiled-in fallback map. A group missing from the
// live store resolves here and records a fallback event.
var DefaultRoleGroups = map[string][]string{
	GroupManagerRoles:    {RoleAdmin, "hr_manager", "sales_manager", "consulting_manager", "finance_manager"},
	GroupHRRoles:         {RoleAdmin, "hr_manager", "hr_executive"},
	GroupConsultingRoles: {RoleAdmin, "consulting_manager", "consultant"},
	GroupSalesRoles:      {RoleAdmin, "sales_manager", "sales_executive"},
	GroupApproverRoles:   {RoleAdmin, "hr_manager", "sales_manager", "consulting_manager", "finance_manager"},
}

// DefaultApprovalFlows maps workflow names to the role groups allowed to
// decide them. Counted in the audit report; call sites own the decision.
var DefaultApprovalFlows = map[string]string{
	"leave_approval":     GroupHRRoles,
	"expense_approval":   GroupApproverRoles,
	"agreement_signoff":  GroupSalesRoles,
	"sow_change_request": GroupConsultingRoles,
}

// DefaultHierarchicalFilters maps list endpoints to the minimum level that
// sees all records instead of only their own.
var DefaultHierarchicalFilters = map[string]int{
	"leads":      70,
	"attendance": 70,
	"leave":      70,
}

// GuidedStages is the fixed stage subset shown to roles below the
// monitoring level threshold.
var GuidedStages = []string{
	models.LeadStageNew,
	models.LeadStageQualification,
	models.LeadStageProposal,
	models.LeadStageAgreement,
}

// MonitoringLevel is the role level at or above which the synthesized
// stage-access configuration switches from guided to monitoring.
const MonitoringLevel = 70

// defaultRoleGroup returns a copy of the compiled-in membership for a group,
// so callers can never mutate the default map through the returned slice.
func defaultRoleGroup(code string) ([]string, bool) {
	roles, ok := DefaultRoleGroups[code]
	if !ok {
		return nil, false
	}
	out := make([]string, len(roles))
	copy(out, roles)
	return out, true
}
