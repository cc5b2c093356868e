package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"workforce-service/internal/models"
	"workforce-service/internal/rbac"
)

// RBACMiddleware guards routes with permission and role checks against the
// RBAC engine. Each check runs EnsureFresh first so decisions never use an
// expired snapshot; the check itself is then a pure in-memory lookup.
type RBACMiddleware struct {
	service *rbac.Service
	log     *logrus.Entry
}

func NewRBACMiddleware(service *rbac.Service, log *logrus.Logger) *RBACMiddleware {
	return &RBACMiddleware{
		service: service,
		log:     log.WithField("component", "rbac_middleware"),
	}
}

// RequirePermission allows the request only when the caller's role grants
// the permission
func (m *RBACMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)

		if err := m.service.EnsureFresh(c.Request.Context()); err != nil {
			m.log.WithError(err).Error("Snapshot refresh failed during permission check")
			m.abort(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Authorization data unavailable")
			return
		}

		m.service.Tracker().RegisterCheck("middleware.require_permission:" + permission)
		if !m.service.Engine().HasPermission(role, permission) {
			m.forbidden(c, role, permission)
			return
		}
		c.Next()
	}
}

// RequireRoles allows the request only when the caller's role is one of the
// listed codes. Admin always passes.
func (m *RBACMiddleware) RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)

		if err := m.service.EnsureFresh(c.Request.Context()); err != nil {
			m.log.WithError(err).Error("Snapshot refresh failed during role check")
			m.abort(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Authorization data unavailable")
			return
		}

		m.service.Tracker().RegisterCheck("middleware.require_roles")
		if !m.service.Engine().HasAnyRole(role, roles...) {
			m.forbidden(c, role, "")
			return
		}
		c.Next()
	}
}

// RequireGroup allows the request only when the caller's role belongs to
// the named role group
func (m *RBACMiddleware) RequireGroup(group string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)

		if err := m.service.EnsureFresh(c.Request.Context()); err != nil {
			m.log.WithError(err).Error("Snapshot refresh failed during group check")
			m.abort(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Authorization data unavailable")
			return
		}

		m.service.Tracker().RegisterCheck("middleware.require_group:" + group)
		if role == rbac.RoleAdmin {
			c.Next()
			return
		}

		members, err := m.service.Engine().ResolveRoleGroup(group)
		if err != nil {
			m.log.WithError(err).WithField("group", group).Error("Group resolution aborted")
			m.abort(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Authorization data unavailable")
			return
		}
		for _, member := range members {
			if member == role {
				c.Next()
				return
			}
		}
		m.forbidden(c, role, "")
	}
}

func (m *RBACMiddleware) forbidden(c *gin.Context, role, permission string) {
	m.log.WithFields(logrus.Fields{
		"role":       role,
		"permission": permission,
		"path":       c.Request.URL.Path,
	}).Warn("Access denied")
	m.abort(c, http.StatusForbidden, ErrCodeForbidden, "Insufficient permissions")
}

func (m *RBACMiddleware) abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
		RequestID: c.GetString("request_id"),
	})
}
