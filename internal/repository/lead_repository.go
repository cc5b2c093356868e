package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workforce-service/internal/models"
)

// LeadFilters narrows lead listings. OwnerID restricts results to one
// owner's leads; zero value means no owner restriction.
type LeadFilters struct {
	Stage   string
	OwnerID *uuid.UUID
	Search  string
	Page    int
	Limit   int
}

// LeadRepository handles lead persistence
type LeadRepository interface {
	Create(ctx context.Context, tenantID string, lead *models.Lead) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Lead, error)
	List(ctx context.Context, tenantID string, filters LeadFilters) ([]models.Lead, *models.PaginationInfo, error)
	Update(ctx context.Context, tenantID string, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
}

type leadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(ctx context.Context, tenantID string, lead *models.Lead) error {
	lead.TenantID = tenantID
	if lead.Stage == "" {
		lead.Stage = models.LeadStageNew
	}
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *leadRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) List(ctx context.Context, tenantID string, filters LeadFilters) ([]models.Lead, *models.PaginationInfo, error) {
	query := r.db.WithContext(ctx).Model(&models.Lead{}).Where("tenant_id = ?", tenantID)

	if filters.Stage != "" {
		query = query.Where("stage = ?", filters.Stage)
	}
	if filters.OwnerID != nil {
		query = query.Where("owner_id = ?", *filters.OwnerID)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("company_name ILIKE ? OR contact_name ILIKE ? OR email ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var leads []models.Lead
	offset := (filters.Page - 1) * filters.Limit
	err := query.Order("created_at DESC").Offset(offset).Limit(filters.Limit).Find(&leads).Error
	if err != nil {
		return nil, nil, err
	}

	return leads, buildPagination(filters.Page, filters.Limit, total), nil
}

func (r *leadRepository) Update(ctx context.Context, tenantID string, id uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

func (r *leadRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.Lead{}).Error
}
