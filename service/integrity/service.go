/*
 * @module service/integrity/service
 * @description 完整性引擎门面，组合规则目录、执行器、修正、备份与历史查询
 * @architecture 依赖注入 - 目录与适配器在启动时构造后显式传入
 * @stateFlow NewService -> RunCheck/AutoCorrect/CreateBackup/GetCheckHistory
 * @rules 服务本身不持有可变的全局状态；同一范围的自动修正通过分布式锁串行化
 * @dependencies gorm.io/gorm, integrity-service/service/distributed_lock, integrity-service/service/notification
 * @refs service/init.go, api/controllers/integrity_controller.go
 */

package integrity

import (
	"time"

	"integrity-service/service/config"
	"integrity-service/service/distributed_lock"
	"integrity-service/service/notification"

	"gorm.io/gorm"
)

// Dependencies 可替换的依赖，零值字段使用默认实现
type Dependencies struct {
	Catalog   *Catalog
	Adapter   QueryAdapter
	Lock      distributed_lock.DistributedLock
	Publisher notification.Publisher
	Backups   Backupper
}

// Service 数据完整性服务
type Service struct {
	db        *gorm.DB
	cfg       *config.IntegrityConfig
	catalog   *Catalog
	adapter   QueryAdapter
	executor  *RuleExecutor
	locks     *distributed_lock.LockExecutor
	publisher notification.Publisher
	backups   Backupper
	now       func() time.Time
}

// NewService 创建数据完整性服务
func NewService(db *gorm.DB, cfg *config.IntegrityConfig, deps Dependencies) *Service {
	if cfg == nil {
		cfg = config.DefaultIntegrityConfig()
	}
	cfg.Normalize()

	if deps.Catalog == nil {
		deps.Catalog = DefaultCatalog()
	}
	if deps.Adapter == nil {
		deps.Adapter = NewGormQueryAdapter(db)
	}
	if deps.Lock == nil {
		deps.Lock = distributed_lock.NewMemoryLock()
	}
	if deps.Publisher == nil {
		deps.Publisher = notification.NoopPublisher{}
	}
	if deps.Backups == nil {
		deps.Backups = NewBackupService(db)
	}

	return &Service{
		db:        db,
		cfg:       cfg,
		catalog:   deps.Catalog,
		adapter:   deps.Adapter,
		executor:  NewRuleExecutor(deps.Adapter, cfg.MaxConcurrency, cfg.RuleTimeout),
		locks:     distributed_lock.NewLockExecutor(deps.Lock),
		publisher: deps.Publisher,
		backups:   deps.Backups,
		now:       time.Now,
	}
}

// Catalog 当前使用的规则目录
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Backups 备份服务
func (s *Service) Backups() Backupper {
	return s.backups
}

// Config 当前配置
func (s *Service) Config() *config.IntegrityConfig {
	return s.cfg
}
