/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、配置加载、完整性引擎与调度器的装配
 * @architecture 分层架构 - 服务层
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务；Redis 不可用时退回进程内锁
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite
 * @refs service/integrity, service/scheduler
 */

package service

import (
	"fmt"
	"log"
	"os"
	"strings"

	"integrity-service/logger"
	"integrity-service/service/config"
	"integrity-service/service/database"
	"integrity-service/service/distributed_lock"
	"integrity-service/service/integrity"
	"integrity-service/service/notification"
	"integrity-service/service/scheduler"

	"github.com/spf13/cast"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	DB                     *gorm.DB
	GlobalIntegrityConfig  *config.IntegrityConfig
	GlobalIntegrityService *integrity.Service
	GlobalSchedulerService *scheduler.SchedulerService
	GlobalPublisher        notification.Publisher
)

func init() {
	logger.InitLogger()
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	driver := strings.ToLower(getEnvWithDefault("DB_DRIVER", "postgres"))

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(getEnvWithDefault("SQLITE_PATH", "integrity.db"))
	default:
		dialector = postgres.Open(postgresDSN())
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	if driver == "sqlite" {
		// sqlite 只支持单写者
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	log.Printf("数据库连接成功: %s", driver)
}

func postgresDSN() string {
	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		return databaseURL
	}

	host := getEnvWithDefault("DB_HOST", "localhost")
	port := getEnvWithDefault("DB_PORT", "5432")
	user := getEnvWithDefault("DB_USER", "postgres")
	password := getEnvWithDefault("DB_PASSWORD", "postgres")
	dbname := getEnvWithDefault("DB_NAME", "postgres")
	sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
	schema := getEnvWithDefault("DB_SCHEMA", "public")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=UTC",
		host, port, user, password, dbname, sslmode, schema)
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	// 业务表默认由售票系统维护
	includeBusiness := cast.ToBool(getEnvWithDefault("MIGRATE_BUSINESS_TABLES", "false"))
	if err := database.AutoMigrate(DB, includeBusiness); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")

	if err := database.AutoMigrateView(DB); err != nil {
		log.Fatalf("视图迁移失败: %v", err)
	}
	log.Println("视图迁移完成")

	log.Println("所有数据库迁移任务完成")
}

// initServices 初始化服务
func initServices() {
	cfg, err := config.LoadIntegrityConfig()
	if err != nil {
		log.Printf("加载完整性配置失败，使用默认配置: %v", err)
		cfg = config.DefaultIntegrityConfig()
	}
	GlobalIntegrityConfig = cfg

	GlobalPublisher, err = notification.NewPublisher(cfg.Notifier)
	if err != nil {
		log.Printf("初始化通知发布器失败，关闭通知: %v", err)
		GlobalPublisher = notification.NoopPublisher{}
	}

	GlobalIntegrityService = integrity.NewService(DB, cfg, integrity.Dependencies{
		Lock:      newLock(cfg),
		Publisher: GlobalPublisher,
	})

	// 启动调度器
	GlobalSchedulerService = scheduler.NewSchedulerService(GlobalIntegrityService, cfg.CheckCron)
	if err := GlobalSchedulerService.Start(); err != nil {
		log.Printf("启动调度器服务失败: %v", err)
	}
	log.Println("服务初始化完成")
}

// newLock 按配置创建修正锁，配置了 Redis 却无法连接时终止启动
func newLock(cfg *config.IntegrityConfig) distributed_lock.DistributedLock {
	lock, err := distributed_lock.NewLock(cfg.LockBackend)
	if err != nil {
		log.Fatalf("初始化修正锁失败(lock_backend=%s): %v", cfg.LockBackend, err)
	}
	log.Printf("修正锁后端: %s", cfg.LockBackend)
	return lock
}

// Shutdown 停止调度器并释放外部连接
func Shutdown() {
	if GlobalSchedulerService != nil {
		GlobalSchedulerService.Stop()
	}
	if GlobalPublisher != nil {
		if err := GlobalPublisher.Close(); err != nil {
			log.Printf("关闭通知发布器失败: %v", err)
		}
	}
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
