package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PermissionCache stores presentation-path views (flattened permission
// lists for my-permissions style responses) in Redis. Authorization
// decisions never read from here; they always go through the in-process
// snapshot. A nil Redis client degrades every operation to a miss or no-op
// so the service runs fine without Redis.
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

func NewPermissionCache(client *redis.Client, ttl time.Duration, log *logrus.Logger) *PermissionCache {
	return &PermissionCache{
		client: client,
		ttl:    ttl,
		log:    log.WithField("component", "permission_cache"),
	}
}

func permissionsKey(tenantID, role string) string {
	return fmt.Sprintf("rbacperms:%s:%s", tenantID, role)
}

// GetPermissions returns the cached flattened permission list for a role,
// or nil on miss or error
func (c *PermissionCache) GetPermissions(ctx context.Context, tenantID, role string) []string {
	if c.client == nil {
		return nil
	}
	data, err := c.client.Get(ctx, permissionsKey(tenantID, role)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.log.WithError(err).Debug("Permission cache read failed")
		return nil
	}
	var permissions []string
	if err := json.Unmarshal([]byte(data), &permissions); err != nil {
		return nil
	}
	return permissions
}

// SetPermissions caches the flattened permission list for a role
func (c *PermissionCache) SetPermissions(ctx context.Context, tenantID, role string, permissions []string) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(permissions)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, permissionsKey(tenantID, role), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("Permission cache write failed")
	}
}

// InvalidateRole drops cached views for one role across a tenant
func (c *PermissionCache) InvalidateRole(ctx context.Context, tenantID, role string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, permissionsKey(tenantID, role)).Err(); err != nil {
		c.log.WithError(err).Debug("Permission cache invalidation failed")
	}
}

// InvalidateAll drops every cached permission view. Called after role or
// group mutations, where working out the blast radius costs more than a
// cold cache.
func (c *PermissionCache) InvalidateAll(ctx context.Context) {
	if c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, "rbacperms:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.WithError(err).Debug("Permission cache scan failed")
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.log.WithError(err).Debug("Permission cache invalidation failed")
		}
	}
}
