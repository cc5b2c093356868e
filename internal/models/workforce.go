package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ============================================================================
// EMPLOYEES
// ============================================================================

// Employee represents a workforce member. The `role` column holds a role
// code resolved by the RBAC engine; it is intentionally a plain string so
// stale references surface in the consistency report instead of breaking
// reads.
type Employee struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   string          `json:"tenantId" gorm:"not null;index"`
	Email      string          `json:"email" gorm:"not null;index"`
	FirstName  string          `json:"firstName" gorm:"not null"`
	LastName   string          `json:"lastName" gorm:"not null"`
	Role       string          `json:"role" gorm:"not null;index"`
	Department *string         `json:"department,omitempty"`
	JobTitle   *string         `json:"jobTitle,omitempty"`
	JoinDate   *time.Time      `json:"joinDate,omitempty"`
	IsActive   bool            `json:"isActive" gorm:"default:true"`
	Metadata   *JSON           `json:"metadata,omitempty" gorm:"type:jsonb;default:'{}'"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	DeletedAt  *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

func (Employee) TableName() string {
	return "employees"
}

// CreateEmployeeRequest represents a request to create an employee
type CreateEmployeeRequest struct {
	Email      string     `json:"email" binding:"required,email"`
	FirstName  string     `json:"firstName" binding:"required"`
	LastName   string     `json:"lastName" binding:"required"`
	Role       string     `json:"role" binding:"required"`
	Department *string    `json:"department,omitempty"`
	JobTitle   *string    `json:"jobTitle,omitempty"`
	JoinDate   *time.Time `json:"joinDate,omitempty"`
	Metadata   *JSON      `json:"metadata,omitempty"`
}

// UpdateEmployeeRequest represents a partial employee update
type UpdateEmployeeRequest struct {
	Email      *string    `json:"email,omitempty"`
	FirstName  *string    `json:"firstName,omitempty"`
	LastName   *string    `json:"lastName,omitempty"`
	Role       *string    `json:"role,omitempty"`
	Department *string    `json:"department,omitempty"`
	JobTitle   *string    `json:"jobTitle,omitempty"`
	JoinDate   *time.Time `json:"joinDate,omitempty"`
	IsActive   *bool      `json:"isActive,omitempty"`
	Metadata   *JSON      `json:"metadata,omitempty"`
}

// EmployeeResponse represents an employee API response
type EmployeeResponse struct {
	Success bool      `json:"success"`
	Data    *Employee `json:"data,omitempty"`
	Message *string   `json:"message,omitempty"`
}

// EmployeeListResponse represents a list of employees API response
type EmployeeListResponse struct {
	Success    bool            `json:"success"`
	Data       []Employee      `json:"data"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// ============================================================================
// LEADS
// ============================================================================

// LeadStage values for the sales pipeline
const (
	LeadStageNew           = "new"
	LeadStageQualification = "qualification"
	LeadStageProposal      = "proposal"
	LeadStageAgreement     = "agreement"
	LeadStageWon           = "won"
	LeadStageLost          = "lost"
)

// Lead represents one sales-pipeline opportunity
type Lead struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    string          `json:"tenantId" gorm:"not null;index"`
	CompanyName string          `json:"companyName" gorm:"not null"`
	ContactName string          `json:"contactName"`
	Email       string          `json:"email"`
	Phone       *string         `json:"phone,omitempty"`
	Stage       string          `json:"stage" gorm:"default:'new';index"`
	Value       *float64        `json:"value,omitempty" gorm:"type:decimal(15,2)"`
	OwnerID     *uuid.UUID      `json:"ownerId,omitempty" gorm:"type:uuid;index"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
	CreatedBy   *string         `json:"createdBy,omitempty"`
}

func (Lead) TableName() string {
	return "leads"
}

// CreateLeadRequest represents a request to create a lead
type CreateLeadRequest struct {
	CompanyName string   `json:"companyName" binding:"required"`
	ContactName string   `json:"contactName"`
	Email       string   `json:"email"`
	Phone       *string  `json:"phone,omitempty"`
	Stage       string   `json:"stage"`
	Value       *float64 `json:"value,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// UpdateLeadRequest represents a partial lead update
type UpdateLeadRequest struct {
	CompanyName *string    `json:"companyName,omitempty"`
	ContactName *string    `json:"contactName,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Stage       *string    `json:"stage,omitempty"`
	Value       *float64   `json:"value,omitempty"`
	OwnerID     *uuid.UUID `json:"ownerId,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// LeadResponse represents a lead API response
type LeadResponse struct {
	Success bool    `json:"success"`
	Data    *Lead   `json:"data,omitempty"`
	Message *string `json:"message,omitempty"`
}

// LeadListResponse represents a list of leads API response
type LeadListResponse struct {
	Success    bool            `json:"success"`
	Data       []Lead          `json:"data"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// ============================================================================
// ATTENDANCE & LEAVE
// ============================================================================

// AttendanceRecord is one check-in/check-out pair per employee per day
type AttendanceRecord struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   string         `json:"tenantId" gorm:"not null;index"`
	EmployeeID uuid.UUID      `json:"employeeId" gorm:"type:uuid;not null;index"`
	Date       datatypes.Date `json:"date" gorm:"not null;index"`
	CheckIn    time.Time      `json:"checkIn"`
	CheckOut   *time.Time     `json:"checkOut,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// Leave request statuses
const (
	LeaveStatusPending  = "pending"
	LeaveStatusApproved = "approved"
	LeaveStatusRejected = "rejected"
)

// LeaveRequest represents a leave application awaiting approval
type LeaveRequest struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   string     `json:"tenantId" gorm:"not null;index"`
	EmployeeID uuid.UUID  `json:"employeeId" gorm:"type:uuid;not null;index"`
	LeaveType  string     `json:"leaveType" gorm:"not null"`
	StartDate  time.Time  `json:"startDate" gorm:"type:date;not null"`
	EndDate    time.Time  `json:"endDate" gorm:"type:date;not null"`
	Reason     *string    `json:"reason,omitempty"`
	Status     string     `json:"status" gorm:"default:'pending';index"`
	DecidedBy  *string    `json:"decidedBy,omitempty"`
	DecidedAt  *time.Time `json:"decidedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

// CreateLeaveRequest represents a leave application payload
type CreateLeaveRequest struct {
	LeaveType string    `json:"leaveType" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
	Reason    *string   `json:"reason,omitempty"`
}

// LeaveResponse represents a leave request API response
type LeaveResponse struct {
	Success bool          `json:"success"`
	Data    *LeaveRequest `json:"data,omitempty"`
	Message *string       `json:"message,omitempty"`
}

// LeaveListResponse represents a list of leave requests
type LeaveListResponse struct {
	Success bool           `json:"success"`
	Data    []LeaveRequest `json:"data"`
}
