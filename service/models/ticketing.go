/*
 * @module service/models/ticketing
 * @description 售票业务表模型，由外部导入流程写入，完整性规则对其只读，仅自动修正会更新汇总字段
 * @architecture 分层架构 - 数据模型层
 * @rules 不声明外键约束，允许孤立记录存在以便被检测
 * @dependencies gorm.io/gorm
 * @refs service/integrity/catalog.go
 */

package models

import (
	"time"
)

// Event 活动，保存售票汇总值
type Event struct {
	ID               string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name             string    `gorm:"size:255" json:"name"`
	TotalTicketsSold int64     `gorm:"default:0" json:"total_tickets_sold"`
	TotalGrossSales  float64   `gorm:"type:numeric(12,2);default:0" json:"total_gross_sales"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TicketSale 售票明细
type TicketSale struct {
	ID              string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	EventID         string    `gorm:"type:varchar(64);index" json:"event_id"`
	Platform        string    `gorm:"size:32;index" json:"platform"` // humanitix/eventbrite/manual
	PlatformOrderID string    `gorm:"size:128" json:"platform_order_id"`
	CustomerName    string    `gorm:"size:255" json:"customer_name"`
	CustomerEmail   string    `gorm:"size:255" json:"customer_email"`
	TicketQuantity  int64     `json:"ticket_quantity"`
	TotalAmount     float64   `gorm:"type:numeric(12,2)" json:"total_amount"`
	PurchaseDate    time.Time `json:"purchase_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// TicketPlatform 活动在某个售票平台上的汇总
type TicketPlatform struct {
	ID          string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	EventID     string    `gorm:"type:varchar(64);index" json:"event_id"`
	Platform    string    `gorm:"size:32" json:"platform"`
	TicketsSold int64     `gorm:"default:0" json:"tickets_sold"`
	GrossSales  float64   `gorm:"type:numeric(12,2);default:0" json:"gross_sales"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile 演员档案
type Profile struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Application 演员的活动报名
type Application struct {
	ID         string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	EventID    string    `gorm:"type:varchar(64);index" json:"event_id"`
	ComedianID string    `gorm:"type:varchar(64);index" json:"comedian_id"`
	Status     string    `gorm:"size:32" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventSpot 活动演出档位
type EventSpot struct {
	ID         string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	EventID    string    `gorm:"type:varchar(64);index" json:"event_id"`
	SpotName   string    `gorm:"size:128" json:"spot_name"`
	ComedianID string    `gorm:"type:varchar(64)" json:"comedian_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// BusinessModels 完整性规则查询的业务表模型
func BusinessModels() []interface{} {
	return []interface{}{
		&Event{},
		&TicketSale{},
		&TicketPlatform{},
		&Profile{},
		&Application{},
		&EventSpot{},
	}
}

// IntegrityModels 完整性引擎自身的存储表模型
func IntegrityModels() []interface{} {
	return []interface{}{
		&CheckRun{},
		&CorrectionRecord{},
		&DataBackup{},
		&DataOperationLog{},
	}
}
