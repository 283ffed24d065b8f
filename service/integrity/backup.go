/*
 * @module service/integrity/backup
 * @description 数据备份与恢复：按范围生成快照、zstd 压缩、BLAKE3 校验，恢复只做校验并记录审计
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 读取范围内数据 -> JSON 快照 -> 压缩 -> 写入备份表 -> 审计日志
 * @rules 备份写入成功后才返回ID；备份不可修改；恢复第一阶段不覆盖任何业务数据
 * @dependencies gorm.io/gorm, github.com/klauspost/compress/zstd, github.com/zeebo/blake3
 * @refs service/integrity/corrector.go
 */

package integrity

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"integrity-service/service/models"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"gorm.io/gorm"
)

var (
	snapshotEncoder, _ = zstd.NewWriter(nil)
	snapshotDecoder, _ = zstd.NewReader(nil)
)

// ErrChecksumMismatch 备份内容与校验和不一致
var ErrChecksumMismatch = errors.New("备份校验和不一致")

// Backupper 备份接口
type Backupper interface {
	CreateBackup(ctx context.Context, scope string) (string, error)
	LoadBackup(ctx context.Context, id string) (*BackupSnapshot, error)
	RestoreFromBackup(ctx context.Context, id string) (*RestoreIntent, error)
	ListBackups(ctx context.Context, scope string, limit int) ([]models.DataBackup, error)
}

// BackupSnapshot 备份快照内容
type BackupSnapshot struct {
	Scope           string                  `json:"scope"`
	BackupType      string                  `json:"backup_type"`
	TakenAt         time.Time               `json:"taken_at"`
	Events          []models.Event          `json:"events"`
	TicketSales     []models.TicketSale     `json:"ticket_sales"`
	TicketPlatforms []models.TicketPlatform `json:"ticket_platforms"`
	EventSpots      []models.EventSpot      `json:"event_spots"`
	Applications    []models.Application    `json:"applications"`
	Profiles        []models.Profile        `json:"profiles,omitempty"`
}

// RowCount 快照中的总行数
func (s *BackupSnapshot) RowCount() int64 {
	return int64(len(s.Events) + len(s.TicketSales) + len(s.TicketPlatforms) +
		len(s.EventSpots) + len(s.Applications) + len(s.Profiles))
}

// RestoreIntent 恢复意图，Applied 为 false 表示只完成了校验和审计
type RestoreIntent struct {
	BackupID   string    `json:"backup_id"`
	Scope      string    `json:"scope"`
	BackupType string    `json:"backup_type"`
	RowCount   int64     `json:"row_count"`
	BackupAt   time.Time `json:"backup_at"`
	Applied    bool      `json:"applied"`
}

// BackupService 备份服务
type BackupService struct {
	db *gorm.DB
}

// NewBackupService 创建备份服务
func NewBackupService(db *gorm.DB) *BackupService {
	return &BackupService{db: db}
}

// CreateBackup 创建范围内数据的快照，返回备份ID
func (b *BackupService) CreateBackup(ctx context.Context, scope string) (string, error) {
	scope = NormalizeScope(scope)

	snapshot, err := b.snapshot(ctx, scope)
	if err != nil {
		backupsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("读取备份数据失败: %w", err)
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		backupsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("序列化备份数据失败: %w", err)
	}
	sum := blake3.Sum256(raw)
	payload := snapshotEncoder.EncodeAll(raw, nil)

	backup := &models.DataBackup{
		ID:          uuid.New().String(),
		BackupType:  snapshot.BackupType,
		Payload:     payload,
		PayloadSize: int64(len(payload)),
		RowCount:    snapshot.RowCount(),
		Checksum:    hex.EncodeToString(sum[:]),
		CreatedAt:   snapshot.TakenAt,
	}
	if IsScoped(scope) {
		backup.ScopeID = &scope
	}

	if err := b.db.WithContext(ctx).Create(backup).Error; err != nil {
		backupsTotal.WithLabelValues("error").Inc()
		return "", &PersistenceError{Op: "save_backup", Cause: err}
	}
	backupsTotal.WithLabelValues("success").Inc()

	logOperation(ctx, b.db, models.OperationCreateBackup, models.JSONB{
		"backup_id":    backup.ID,
		"scope":        scope,
		"backup_type":  backup.BackupType,
		"row_count":    backup.RowCount,
		"payload_size": backup.PayloadSize,
	})

	slog.Info("备份创建成功", "backup_id", backup.ID, "scope", scope, "rows", backup.RowCount)
	return backup.ID, nil
}

// snapshot 在同一事务内读取范围内的业务数据
func (b *BackupService) snapshot(ctx context.Context, scope string) (*BackupSnapshot, error) {
	snapshot := &BackupSnapshot{
		Scope:      scope,
		BackupType: models.BackupTypeFull,
		TakenAt:    time.Now(),
	}
	scoped := IsScoped(scope)
	if scoped {
		snapshot.BackupType = models.BackupTypeEvent
	}

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		byEvent := func(q *gorm.DB) *gorm.DB {
			if scoped {
				return q.Where("event_id = ?", scope)
			}
			return q
		}

		eventQuery := tx.Order("id")
		if scoped {
			eventQuery = eventQuery.Where("id = ?", scope)
		}
		if err := eventQuery.Find(&snapshot.Events).Error; err != nil {
			return err
		}
		if err := byEvent(tx.Order("id")).Find(&snapshot.TicketSales).Error; err != nil {
			return err
		}
		if err := byEvent(tx.Order("id")).Find(&snapshot.TicketPlatforms).Error; err != nil {
			return err
		}
		if err := byEvent(tx.Order("id")).Find(&snapshot.EventSpots).Error; err != nil {
			return err
		}
		if err := byEvent(tx.Order("id")).Find(&snapshot.Applications).Error; err != nil {
			return err
		}
		if !scoped {
			if err := tx.Order("id").Find(&snapshot.Profiles).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// LoadBackup 读取并解压备份，校验和不一致时返回 ErrChecksumMismatch
func (b *BackupService) LoadBackup(ctx context.Context, id string) (*BackupSnapshot, error) {
	var backup models.DataBackup
	if err := b.db.WithContext(ctx).Where("id = ?", id).First(&backup).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
		}
		return nil, fmt.Errorf("查询备份失败: %w", err)
	}

	raw, err := snapshotDecoder.DecodeAll(backup.Payload, nil)
	if err != nil {
		return nil, fmt.Errorf("解压备份失败: %w", err)
	}
	sum := blake3.Sum256(raw)
	if hex.EncodeToString(sum[:]) != backup.Checksum {
		return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, id)
	}

	var snapshot BackupSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("解析备份内容失败: %w", err)
	}
	return &snapshot, nil
}

// RestoreFromBackup 恢复第一阶段：校验备份并记录恢复意图，不写入业务数据
func (b *BackupService) RestoreFromBackup(ctx context.Context, id string) (*RestoreIntent, error) {
	snapshot, err := b.LoadBackup(ctx, id)
	if err != nil {
		return nil, err
	}

	intent := &RestoreIntent{
		BackupID:   id,
		Scope:      snapshot.Scope,
		BackupType: snapshot.BackupType,
		RowCount:   snapshot.RowCount(),
		BackupAt:   snapshot.TakenAt,
		Applied:    false,
	}

	err = b.db.WithContext(ctx).Create(&models.DataOperationLog{
		Operation: models.OperationRestoreBackup,
		Metadata: models.JSONB{
			"backup_id":   id,
			"scope":       snapshot.Scope,
			"backup_type": snapshot.BackupType,
			"row_count":   intent.RowCount,
			"applied":     false,
		},
	}).Error
	if err != nil {
		return nil, &PersistenceError{Op: "log_restore", Cause: err}
	}

	slog.Info("已记录恢复意图", "backup_id", id, "scope", snapshot.Scope, "rows", intent.RowCount)
	return intent, nil
}

// ListBackups 按创建时间倒序列出备份，scope 为空时返回全部
func (b *BackupService) ListBackups(ctx context.Context, scope string, limit int) ([]models.DataBackup, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := b.db.WithContext(ctx).Omit("payload").Order("created_at DESC").Limit(limit)
	if scope != "" {
		if IsScoped(scope) {
			query = query.Where("scope_id = ?", scope)
		} else {
			query = query.Where("scope_id IS NULL")
		}
	}

	var backups []models.DataBackup
	if err := query.Find(&backups).Error; err != nil {
		return nil, fmt.Errorf("查询备份列表失败: %w", err)
	}
	return backups, nil
}

// logOperation 写入操作审计日志，失败只记录日志
func logOperation(ctx context.Context, db *gorm.DB, operation string, metadata models.JSONB) {
	entry := &models.DataOperationLog{Operation: operation, Metadata: metadata}
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		slog.Warn("写入操作日志失败", "operation", operation, "error", err)
	}
}
