/*
 * @module service/models/integrity
 * @description 数据完整性检查相关模型，包括检查记录、问题、自动修正记录、数据备份和操作日志
 * @architecture 分层架构 - 数据模型层
 * @stateFlow 检查运行 -> 问题汇总 -> 自动修正(先备份) -> 审计日志
 * @rules 检查记录写入后不可修改；修正记录必须有对应的备份；备份写入后不可修改
 * @dependencies gorm.io/gorm, github.com/google/uuid, github.com/lib/pq
 * @refs service/integrity
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Severity 问题严重级别
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// 检查运行状态
const (
	CheckStatusPassed  = "passed"
	CheckStatusWarning = "warning"
	CheckStatusFailed  = "failed"
)

// ScopeAll 全量检查的范围标识
const ScopeAll = "all"

// 备份类型
const (
	BackupTypeEvent = "event"
	BackupTypeFull  = "full"
)

// 数据操作类型
const (
	OperationAutoCorrection = "auto_correction"
	OperationRestoreBackup  = "restore_backup"
	OperationCreateBackup   = "create_backup"
)

// Issue 完整性检查发现的问题，创建后不再修改
type Issue struct {
	Type            string   `json:"type"`
	Description     string   `json:"description"`
	Severity        Severity `json:"severity"`
	AffectedRecords []string `json:"affected_records"`
	SuggestedAction string   `json:"suggested_action"`
	ExecutionError  bool     `json:"execution_error,omitempty"` // 执行错误而非数据问题
}

// CheckRun 一次完整性检查运行的记录
type CheckRun struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Scope         string    `gorm:"size:64;not null;index" json:"scope"`      // 实体ID 或 all
	CheckType     string    `gorm:"size:32;not null" json:"check_type"`       // validation/consistency/orphaned/duplicate
	Status        string    `gorm:"size:16;not null;index" json:"status"`     // passed/warning/failed
	Issues        IssueList `gorm:"type:jsonb" json:"issues"`
	RulesExecuted int       `gorm:"not null;default:0" json:"rules_executed"`
	DurationMs    int64     `gorm:"not null;default:0" json:"duration_ms"`
	RunAt         time.Time `gorm:"not null;index" json:"run_at"`
}

// TableName 指定表名
func (CheckRun) TableName() string {
	return "data_integrity_checks"
}

// CorrectionRecord 自动修正记录，只追加
type CorrectionRecord struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CheckRunID     string         `gorm:"type:varchar(36);not null;index" json:"check_run_id"`
	Scope          string         `gorm:"size:64;not null" json:"scope"`
	BackupID       string         `gorm:"type:varchar(36);not null" json:"backup_id"`
	IssueTypes     pq.StringArray `gorm:"type:text" json:"issue_types"`
	CorrectedCount int            `gorm:"not null;default:0" json:"corrected_count"`
	Timestamp      time.Time      `gorm:"not null;index" json:"timestamp"`
}

// TableName 指定表名
func (CorrectionRecord) TableName() string {
	return "integrity_corrections"
}

// BeforeCreate 创建前钩子
func (c *CorrectionRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	return nil
}

// DataBackup 数据备份，写入后不可修改
type DataBackup struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ScopeID     *string   `gorm:"size:64;index" json:"scope_id,omitempty"`
	BackupType  string    `gorm:"size:16;not null" json:"backup_type"` // event/full
	Payload     []byte    `gorm:"type:bytea;not null" json:"-"`        // zstd 压缩的 JSON 快照
	PayloadSize int64     `gorm:"not null;default:0" json:"payload_size"`
	RowCount    int64     `gorm:"not null;default:0" json:"row_count"`
	Checksum    string    `gorm:"size:64;not null" json:"checksum"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (DataBackup) TableName() string {
	return "data_backups"
}

// DataOperationLog 数据操作审计日志
type DataOperationLog struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Operation string    `gorm:"size:32;not null;index" json:"operation"`
	Metadata  JSONB     `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (DataOperationLog) TableName() string {
	return "data_operations_log"
}

// BeforeCreate 创建前钩子
func (d *DataOperationLog) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	return nil
}
