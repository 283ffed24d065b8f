/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新完整性引擎的表结构
 * @architecture 数据访问层 - 迁移管理
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 完整性引擎自身的表总是迁移；售票业务表由业务系统维护，仅在开发环境或显式开启时迁移
 * @dependencies integrity-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"log"

	"integrity-service/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB, includeBusinessTables bool) error {
	log.Println("开始数据库迁移...")

	// 售票业务表
	if includeBusinessTables {
		if err := db.AutoMigrate(models.BusinessModels()...); err != nil {
			return err
		}
	}

	// 检查记录、修正记录、备份和审计日志
	if err := db.AutoMigrate(models.IntegrityModels()...); err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}
