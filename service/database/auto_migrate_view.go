package database

import (
	"fmt"
	"log"

	"integrity-service/service/database/views"

	"gorm.io/gorm"
)

func AutoMigrateView(db *gorm.DB) error {
	for _, view := range views.IntegrityViews {
		if err := db.Exec(view.DropSQL).Error; err != nil {
			return fmt.Errorf("删除视图 %s 失败: %v", view.Name, err)
		}
		if err := db.Exec(view.CreateSQL).Error; err != nil {
			return fmt.Errorf("创建视图 %s 失败: %v", view.Name, err)
		}
		log.Printf("成功创建视图: %s", view.Name)
	}

	return nil
}
