package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"workforce-service/internal/models"
)

// AttendanceRepository handles attendance and leave persistence
type AttendanceRepository interface {
	GetForDate(ctx context.Context, tenantID string, employeeID uuid.UUID, date time.Time) (*models.AttendanceRecord, error)
	CreateRecord(ctx context.Context, tenantID string, record *models.AttendanceRecord) error
	SetCheckOut(ctx context.Context, tenantID string, id uuid.UUID, checkOut time.Time) error
	ListByEmployee(ctx context.Context, tenantID string, employeeID uuid.UUID, from, to time.Time) ([]models.AttendanceRecord, error)
	ListAll(ctx context.Context, tenantID string, from, to time.Time) ([]models.AttendanceRecord, error)

	CreateLeave(ctx context.Context, tenantID string, leave *models.LeaveRequest) error
	GetLeaveByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.LeaveRequest, error)
	ListLeaveByEmployee(ctx context.Context, tenantID string, employeeID uuid.UUID) ([]models.LeaveRequest, error)
	ListLeaveByStatus(ctx context.Context, tenantID string, status string) ([]models.LeaveRequest, error)
	DecideLeave(ctx context.Context, tenantID string, id uuid.UUID, status, decidedBy string, decidedAt time.Time) error
}

type attendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) GetForDate(ctx context.Context, tenantID string, employeeID uuid.UUID, date time.Time) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND employee_id = ? AND date = ?", tenantID, employeeID, datatypes.Date(date)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepository) CreateRecord(ctx context.Context, tenantID string, record *models.AttendanceRecord) error {
	record.TenantID = tenantID
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepository) SetCheckOut(ctx context.Context, tenantID string, id uuid.UUID, checkOut time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("check_out", checkOut).Error
}

func (r *attendanceRepository) ListByEmployee(ctx context.Context, tenantID string, employeeID uuid.UUID, from, to time.Time) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND employee_id = ? AND date BETWEEN ? AND ?",
			tenantID, employeeID, datatypes.Date(from), datatypes.Date(to)).
		Order("date DESC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepository) ListAll(ctx context.Context, tenantID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND date BETWEEN ? AND ?",
			tenantID, datatypes.Date(from), datatypes.Date(to)).
		Order("date DESC, employee_id ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepository) CreateLeave(ctx context.Context, tenantID string, leave *models.LeaveRequest) error {
	leave.TenantID = tenantID
	if leave.Status == "" {
		leave.Status = models.LeaveStatusPending
	}
	return r.db.WithContext(ctx).Create(leave).Error
}

func (r *attendanceRepository) GetLeaveByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.LeaveRequest, error) {
	var leave models.LeaveRequest
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&leave).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &leave, nil
}

func (r *attendanceRepository) ListLeaveByEmployee(ctx context.Context, tenantID string, employeeID uuid.UUID) ([]models.LeaveRequest, error) {
	var leaves []models.LeaveRequest
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND employee_id = ?", tenantID, employeeID).
		Order("created_at DESC").
		Find(&leaves).Error
	return leaves, err
}

func (r *attendanceRepository) ListLeaveByStatus(ctx context.Context, tenantID string, status string) ([]models.LeaveRequest, error) {
	var leaves []models.LeaveRequest
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC").Find(&leaves).Error
	return leaves, err
}

func (r *attendanceRepository) DecideLeave(ctx context.Context, tenantID string, id uuid.UUID, status, decidedBy string, decidedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.LeaveRequest{}).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantID, id, models.LeaveStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"decided_by": decidedBy,
			"decided_at": decidedAt,
		}).Error
}
