/*
 * @module service/integrity/corrector
 * @description 自动修正引擎，对白名单中的问题类型按源数据重算聚合值
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 加载检查记录 -> 获取范围锁 -> 备份 -> 逐类型修正 -> 修正记录 -> 审计日志
 * @rules 备份成功前不修改任何数据；同一范围的修正串行执行；修正可重复执行且结果收敛
 * @dependencies gorm.io/gorm, github.com/lib/pq, github.com/spf13/cast, integrity-service/service/distributed_lock
 * @refs service/integrity/backup.go
 */

package integrity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"integrity-service/service/distributed_lock"
	"integrity-service/service/models"

	"github.com/lib/pq"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

const correctionLockPrefix = "integrity:correction:"

// 可自动修正的问题类型及对应的重算语句
var correctionStatements = map[string]string{
	RuleEventTotalsMismatch: `UPDATE events SET
			total_tickets_sold = (SELECT COALESCE(SUM(ts.ticket_quantity), 0) FROM ticket_sales ts WHERE ts.event_id = events.id),
			total_gross_sales = (SELECT COALESCE(SUM(ts.total_amount), 0) FROM ticket_sales ts WHERE ts.event_id = events.id),
			updated_at = ?
		WHERE id IN ?`,
	RulePlatformTotalsMismatch: `UPDATE ticket_platforms SET
			tickets_sold = (SELECT COALESCE(SUM(ts.ticket_quantity), 0) FROM ticket_sales ts
				WHERE ts.event_id = ticket_platforms.event_id AND ts.platform = ticket_platforms.platform),
			gross_sales = (SELECT COALESCE(SUM(ts.total_amount), 0) FROM ticket_sales ts
				WHERE ts.event_id = ticket_platforms.event_id AND ts.platform = ticket_platforms.platform),
			updated_at = ?
		WHERE id IN ?`,
}

// IsCorrectable 问题类型是否支持自动修正
func IsCorrectable(issueType string) bool {
	_, ok := correctionStatements[issueType]
	return ok
}

// AutoCorrect 对检查记录所在范围执行自动修正，返回修正的记录数
func (s *Service) AutoCorrect(ctx context.Context, checkRunID string, issueTypes []string) (int, error) {
	run, err := s.GetCheckRun(ctx, checkRunID)
	if err != nil {
		return 0, err
	}
	scope := NormalizeScope(run.Scope)

	var (
		corrected int
		runErr    error
	)
	ttl := s.cfg.CorrectionLockTTL
	err = s.locks.ExecuteWithLockAndRefresh(ctx, correctionLockPrefix+scope, ttl, ttl/3, func() error {
		corrected, runErr = s.correct(ctx, run, scope, issueTypes)
		return nil
	})
	if errors.Is(err, distributed_lock.ErrLockNotAcquired) {
		return 0, fmt.Errorf("%w: %s", ErrCorrectionInProgress, scope)
	}
	if err != nil {
		return 0, fmt.Errorf("获取修正锁失败: %w", err)
	}
	return corrected, runErr
}

func (s *Service) correct(ctx context.Context, run *models.CheckRun, scope string, issueTypes []string) (int, error) {
	backupID, err := s.backups.CreateBackup(ctx, scope)
	if err != nil {
		slog.Error("修正前备份失败，取消修正", "check_run_id", run.ID, "scope", scope, "error", err)
		return 0, &BackupPrerequisiteError{Scope: scope, Cause: err}
	}

	types := dedupe(issueTypes)
	total := 0
	for _, issueType := range types {
		if !IsCorrectable(issueType) {
			slog.Warn("不支持自动修正的问题类型", "issue_type", issueType, "check_run_id", run.ID)
			continue
		}

		n, err := s.correctIssueType(ctx, issueType, scope)
		if err != nil {
			cerr := &CorrectionError{IssueType: issueType, Cause: err}
			slog.Error("自动修正失败", "check_run_id", run.ID, "scope", scope, "error", cerr)
			continue
		}
		total += n
		correctedRecordsTotal.WithLabelValues(issueType).Add(float64(n))
		slog.Info("自动修正完成", "issue_type", issueType, "scope", scope, "corrected", n)
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	record := &models.CorrectionRecord{
		CheckRunID:     run.ID,
		Scope:          scope,
		BackupID:       backupID,
		IssueTypes:     pq.StringArray(types),
		CorrectedCount: total,
		Timestamp:      s.now(),
	}
	if err := s.db.WithContext(persistCtx).Create(record).Error; err != nil {
		slog.Error("保存修正记录失败", "check_run_id", run.ID, "error", err)
		return total, &PersistenceError{Op: "save_correction", Cause: err}
	}

	logOperation(persistCtx, s.db, models.OperationAutoCorrection, models.JSONB{
		"correction_id":   record.ID,
		"check_run_id":    run.ID,
		"scope":           scope,
		"backup_id":       backupID,
		"issue_types":     types,
		"corrected_count": total,
	})
	return total, nil
}

// correctIssueType 重新查询不一致的记录并按源数据重算
func (s *Service) correctIssueType(ctx context.Context, issueType, scope string) (int, error) {
	rule, ok := s.catalog.Get(issueType)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRuleNotFound, issueType)
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.cfg.RuleTimeout)
	rows, err := s.adapter.Query(queryCtx, rule, scope)
	cancel()
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id := cast.ToString(row["id"]); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var affected int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(correctionStatements[issueType], s.now(), ids)
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
