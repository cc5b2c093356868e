package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"workforce-service/internal/rbac"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db      *gorm.DB
	service *rbac.Service
}

func NewHealthHandler(db *gorm.DB, service *rbac.Service) *HealthHandler {
	return &HealthHandler{db: db, service: service}
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "workforce-service",
		"timestamp": time.Now().UTC(),
	})
}

// Ready godoc
// @Summary Readiness probe, checks database and RBAC snapshot
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "database unreachable",
		})
		return
	}

	if h.service.Cache().Version() == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "rbac snapshot not loaded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "ready",
		"snapshot_version": h.service.Cache().Version(),
		"snapshot_age_sec": int(time.Since(h.service.Cache().Timestamp()).Seconds()),
	})
}
