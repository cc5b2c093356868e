package config

import (
	"fmt"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (for resolved-permission caching)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	RedisCacheTTL int // seconds

	// Server
	Port        string
	Environment string

	// NATS
	NATSURL string

	// RBAC migration controls
	RBACMigrationPhase string // audit | shadow | cutover | complete
	RBACStrictMode     bool
	RBACCacheTTL       int // seconds, snapshot cache TTL
	RBACLockTTL        int // seconds, advisory lock expiry

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisPort, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisCacheTTL, _ := strconv.Atoi(getEnv("REDIS_CACHE_TTL", "300"))
	rbacCacheTTL, _ := strconv.Atoi(getEnv("RBAC_CACHE_TTL", "300")) // 5 minutes default
	rbacLockTTL, _ := strconv.Atoi(getEnv("RBAC_LOCK_TTL", "30"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "workforce_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     redisPort,
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		RedisCacheTTL: redisCacheTTL,

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// NATS
		NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),

		// RBAC migration controls - read once at process start (not hot-reloadable)
		RBACMigrationPhase: getEnv("RBAC_MIGRATION_PHASE", "audit"),
		RBACStrictMode:     getEnv("RBAC_STRICT_MODE", "false") == "true",
		RBACCacheTTL:       rbacCacheTTL,
		RBACLockTTL:        rbacLockTTL,

		// Pagination
		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	// Use URL format for better pgx driver compatibility with SSL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
