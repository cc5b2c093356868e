package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workforce-service/internal/models"
)

// LockRepository persists named advisory locks. Claim is a conditional
// upsert: it takes the row when it is free or expired and is a no-op while a
// live holder exists. Callers confirm ownership by re-reading the row.
type LockRepository interface {
	Claim(ctx context.Context, name, lockID string, now, expiresAt time.Time) error
	Get(ctx context.Context, name string) (*models.LockDocument, error)
	Release(ctx context.Context, name, lockID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type lockRepository struct {
	db *gorm.DB
}

func NewLockRepository(db *gorm.DB) LockRepository {
	return &lockRepository{db: db}
}

func (r *lockRepository) Claim(ctx context.Context, name, lockID string, now, expiresAt time.Time) error {
	doc := models.LockDocument{
		Name:       name,
		LockID:     lockID,
		AcquiredAt: now,
		ExpiresAt:  expiresAt,
	}
	// Overwrite only when the existing row has expired. A live holder keeps
	// the row untouched and the caller's read-back sees the holder's lock_id.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"lock_id":     lockID,
				"acquired_at": now,
				"expires_at":  expiresAt,
			}),
			Where: clause.Where{
				Exprs: []clause.Expression{
					clause.Lte{Column: clause.Column{Table: "distributed_locks", Name: "expires_at"}, Value: now},
				},
			},
		}).
		Create(&doc).Error
}

func (r *lockRepository) Get(ctx context.Context, name string) (*models.LockDocument, error) {
	var doc models.LockDocument
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *lockRepository) Release(ctx context.Context, name, lockID string) error {
	// Deleting with both name and lock_id makes release a no-op when the lock
	// has already expired and been taken over by another holder.
	return r.db.WithContext(ctx).
		Where("name = ? AND lock_id = ?", name, lockID).
		Delete(&models.LockDocument{}).Error
}

func (r *lockRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.LockDocument{})
	return result.RowsAffected, result.Error
}
