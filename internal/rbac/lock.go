package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"workforce-service/internal/repository"
)

// ErrLockNotAcquired is returned when another process holds the lock or the
// lock store is unreachable. Callers treat both the same way: skip the
// guarded work or retry later.
var ErrLockNotAcquired = errors.New("lock not acquired")

// LockManager coordinates one-writer work across replicas through a named
// advisory lock row. The lock is advisory only: it serializes cooperating
// callers and does not guard against direct store writes.
type LockManager struct {
	repo repository.LockRepository
	ttl  time.Duration
	log  *logrus.Entry
}

func NewLockManager(repo repository.LockRepository, ttl time.Duration, log *logrus.Logger) *LockManager {
	return &LockManager{
		repo: repo,
		ttl:  ttl,
		log:  log.WithField("component", "rbac_lock"),
	}
}

// Acquire attempts to take the named lock and returns the holder token on
// success. The conditional upsert only wins against a free or expired row;
// the read-back confirms which writer actually won the race.
func (m *LockManager) Acquire(ctx context.Context, name string) (string, error) {
	lockID := uuid.New().String()
	now := time.Now()

	if err := m.repo.Claim(ctx, name, lockID, now, now.Add(m.ttl)); err != nil {
		m.log.WithError(err).WithField("lock", name).Error("Lock claim failed")
		return "", ErrLockNotAcquired
	}

	doc, err := m.repo.Get(ctx, name)
	if err != nil {
		m.log.WithError(err).WithField("lock", name).Error("Lock confirmation read failed")
		return "", ErrLockNotAcquired
	}
	if doc == nil || doc.LockID != lockID {
		return "", ErrLockNotAcquired
	}

	m.log.WithFields(logrus.Fields{
		"lock":    name,
		"expires": doc.ExpiresAt,
	}).Debug("Lock acquired")
	return lockID, nil
}

// Release frees the lock if this holder still owns it. Releasing a lock that
// expired and was taken over is a harmless no-op.
func (m *LockManager) Release(ctx context.Context, name, lockID string) {
	if err := m.repo.Release(ctx, name, lockID); err != nil {
		// Expiry will reclaim the row; nothing else to do here.
		m.log.WithError(err).WithField("lock", name).Warn("Lock release failed")
	}
}

// WithLock runs fn while holding the named lock, releasing it afterwards
// even when fn fails
func (m *LockManager) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	lockID, err := m.Acquire(ctx, name)
	if err != nil {
		return err
	}
	defer m.Release(ctx, name, lockID)
	return fn(ctx)
}
