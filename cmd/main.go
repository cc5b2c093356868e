package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"workforce-service/internal/cache"
	"workforce-service/internal/config"
	"workforce-service/internal/events"
	"workforce-service/internal/handlers"
	"workforce-service/internal/middleware"
	"workforce-service/internal/models"
	"workforce-service/internal/rbac"
	"workforce-service/internal/repository"
)

// @title Workforce Service API
// @version 1.0
// @description Employee directory, sales pipeline, attendance and RBAC administration
// @BasePath /api/v1
func main() {
	// Container health checks exec the binary instead of needing curl
	if len(os.Args) > 1 && os.Args[1] == "health" {
		resp, err := http.Get("http://localhost:" + getPort() + "/health")
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.SetLevel(logrus.DebugLevel)
	}

	phase, err := rbac.ParsePhase(cfg.RBACMigrationPhase)
	if err != nil {
		log.WithError(err).Fatal("Invalid RBAC migration phase")
	}
	log.WithFields(logrus.Fields{
		"phase":  phase,
		"strict": cfg.RBACStrictMode,
	}).Info("RBAC migration configuration loaded")

	db, err := config.InitDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := db.AutoMigrate(
		&models.Role{},
		&models.Department{},
		&models.RoleGroup{},
		&models.LockDocument{},
		&models.Employee{},
		&models.Lead{},
		&models.AttendanceRecord{},
		&models.LeaveRequest{},
	); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// Redis is optional; a nil client degrades the presentation cache to
	// pass-through.
	var redisClient *redis.Client
	rc := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rc.Ping(context.Background()).Err(); err != nil {
		log.WithError(err).Warn("Redis unavailable, permission views will not be cached")
	} else {
		redisClient = rc
	}

	var publisher events.Publisher = events.NoopPublisher{}
	natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, log)
	if err != nil {
		log.WithError(err).Warn("NATS unavailable, events disabled")
	} else {
		publisher = natsPublisher
		defer natsPublisher.Close()
	}

	rbacRepo := repository.NewRBACRepository(db)
	lockRepo := repository.NewLockRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	tracker := rbac.NewFallbackTracker(phase, cfg.RBACStrictMode, log)
	snapshot := rbac.NewCache(rbacRepo, tracker, time.Duration(cfg.RBACCacheTTL)*time.Second, log)
	engine := rbac.NewEngine(snapshot, tracker, log)
	locks := rbac.NewLockManager(lockRepo, time.Duration(cfg.RBACLockTTL)*time.Second, log)
	checker := rbac.NewConsistencyChecker(rbacRepo, employeeRepo, log)
	permCache := cache.NewPermissionCache(redisClient, time.Duration(cfg.RedisCacheTTL)*time.Second, log)

	service := rbac.NewService(rbac.ServiceDeps{
		Repo:      rbacRepo,
		Employees: employeeRepo,
		Cache:     snapshot,
		Engine:    engine,
		Tracker:   tracker,
		Locks:     locks,
		Checker:   checker,
		Perms:     permCache,
		Publisher: publisher,
		Strict:    cfg.RBACStrictMode,
		Log:       log,
	})

	if err := service.Initialize(context.Background()); err != nil {
		log.WithError(err).Fatal("RBAC initialization failed")
	}

	// Expired lock rows from crashed holders pile up without a reaper
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			deleted, err := lockRepo.DeleteExpired(context.Background(), time.Now())
			if err != nil {
				log.WithError(err).Warn("Expired lock cleanup failed")
			} else if deleted > 0 {
				log.WithField("deleted", deleted).Info("Cleaned up expired locks")
			}
		}
	}()

	router := buildRouter(cfg, db, log, service, permCache, publisher,
		employeeRepo, leadRepo, attendanceRepo)

	log.WithField("port", cfg.Port).Info("Starting workforce-service")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Server exited")
	}
}

func buildRouter(
	cfg *config.Config,
	db *gorm.DB,
	log *logrus.Logger,
	service *rbac.Service,
	permCache *cache.PermissionCache,
	publisher events.Publisher,
	employeeRepo repository.EmployeeRepository,
	leadRepo repository.LeadRepository,
	attendanceRepo repository.AttendanceRepository,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ErrorHandler(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Tenant-ID", "X-User-ID", "X-User-Role", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.UserContext())

	healthHandler := handlers.NewHealthHandler(db, service)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	rbacHandler := handlers.NewRBACHandler(service, permCache, log)
	leadHandler := handlers.NewLeadHandler(leadRepo, service, log)
	employeeHandler := handlers.NewEmployeeHandler(employeeRepo, service, log)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceRepo, service, publisher, log)
	guard := middleware.NewRBACMiddleware(service, log)

	api := router.Group("/api/v1")
	api.Use(middleware.RequireUser())

	rbacGroup := api.Group("/rbac")
	{
		rbacGroup.GET("/roles", rbacHandler.GetRoles)
		rbacGroup.POST("/roles", rbacHandler.CreateRole)
		rbacGroup.GET("/roles/:code", rbacHandler.GetRole)
		rbacGroup.PUT("/roles/:code", rbacHandler.UpdateRole)
		rbacGroup.DELETE("/roles/:code", rbacHandler.DeleteRole)
		rbacGroup.GET("/departments", rbacHandler.GetDepartments)
		rbacGroup.POST("/departments", rbacHandler.CreateDepartment)
		rbacGroup.PUT("/departments/:code", rbacHandler.UpdateDepartment)
		rbacGroup.GET("/role-groups", rbacHandler.GetRoleGroups)
		rbacGroup.PUT("/role-groups/:code", rbacHandler.UpdateRoleGroup)
		rbacGroup.POST("/refresh-cache", rbacHandler.RefreshCache)
		rbacGroup.GET("/check-permission", rbacHandler.CheckPermission)
		rbacGroup.GET("/role-hierarchy", rbacHandler.GetRoleHierarchy)
		rbacGroup.GET("/my-permissions", rbacHandler.GetMyPermissions)
		rbacGroup.GET("/migration-status", rbacHandler.GetMigrationStatus)
		rbacGroup.GET("/audit-report", rbacHandler.GetAuditReport)
		rbacGroup.GET("/consistency", rbacHandler.GetConsistencyReport)
	}

	leads := api.Group("/leads")
	{
		leads.GET("", guard.RequirePermission("leads.view"), leadHandler.ListLeads)
		leads.POST("", guard.RequirePermission("leads.create"), leadHandler.CreateLead)
		leads.GET("/:id", guard.RequirePermission("leads.view"), leadHandler.GetLead)
		leads.PUT("/:id", guard.RequirePermission("leads.edit"), leadHandler.UpdateLead)
		leads.DELETE("/:id", guard.RequirePermission("leads.delete"), leadHandler.DeleteLead)
	}

	employees := api.Group("/employees")
	{
		employees.GET("", guard.RequirePermission("hr.view"), employeeHandler.ListEmployees)
		employees.POST("", guard.RequirePermission("hr.manage"), employeeHandler.CreateEmployee)
		employees.GET("/export", guard.RequirePermission("hr.view"), employeeHandler.ExportEmployees)
		employees.GET("/:id", guard.RequirePermission("hr.view"), employeeHandler.GetEmployee)
		employees.PUT("/:id", guard.RequirePermission("hr.manage"), employeeHandler.UpdateEmployee)
		employees.DELETE("/:id", guard.RequirePermission("hr.manage"), employeeHandler.DeleteEmployee)
	}

	attendance := api.Group("/attendance")
	{
		attendance.POST("/check-in", guard.RequirePermission("attendance.mark"), attendanceHandler.CheckIn)
		attendance.POST("/check-out", guard.RequirePermission("attendance.mark"), attendanceHandler.CheckOut)
		attendance.GET("", guard.RequirePermission("attendance.view"), attendanceHandler.ListAttendance)
	}

	leave := api.Group("/leave")
	{
		leave.POST("", guard.RequirePermission("leave.request"), attendanceHandler.RequestLeave)
		leave.GET("", guard.RequirePermission("leave.view"), attendanceHandler.ListLeave)
		leave.POST("/:id/decide", attendanceHandler.DecideLeave)
	}

	return router
}

func getPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}
