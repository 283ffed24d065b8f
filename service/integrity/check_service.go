/*
 * @module service/integrity/check_service
 * @description 检查运行编排：选择规则、并发执行、按严重级别汇总状态并持久化检查记录
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 选择规则 -> 执行 -> 追加问题并重算状态 -> 持久化 -> 通知
 * @rules 状态只由问题推导；检查记录只插入一次；持久化失败时追加 critical 问题并仍然返回检查记录
 * @dependencies gorm.io/gorm, github.com/google/uuid
 */

package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"integrity-service/service/models"

	"github.com/google/uuid"
)

const persistTimeout = 10 * time.Second

// CheckRunCompleted 检查完成通知
type CheckRunCompleted struct {
	CheckRunID    string          `json:"check_run_id"`
	Scope         string          `json:"scope"`
	CheckType     string          `json:"check_type"`
	Status        string          `json:"status"`
	IssueCount    int             `json:"issue_count"`
	MaxSeverity   models.Severity `json:"max_severity,omitempty"`
	RulesExecuted int             `json:"rules_executed"`
	RunAt         time.Time       `json:"run_at"`
}

// DeriveStatus 根据问题推导检查状态
func DeriveStatus(issues []models.Issue) string {
	worst, ok := MaxSeverity(issues)
	if !ok {
		return models.CheckStatusPassed
	}
	switch worst {
	case SeverityHigh, SeverityCritical:
		return models.CheckStatusFailed
	case SeverityMedium:
		return models.CheckStatusWarning
	default:
		return models.CheckStatusPassed
	}
}

// RunCheck 执行检查，ruleID 为空时执行全部规则
func (s *Service) RunCheck(ctx context.Context, ruleID, scope string) (*models.CheckRun, error) {
	scope = NormalizeScope(scope)

	rules := s.catalog.Rules()
	checkType := string(CheckTypeValidation)
	if ruleID != "" {
		rule, ok := s.catalog.Get(ruleID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
		}
		rules = []Rule{rule}
		checkType = string(rule.CheckType)
	}

	start := time.Now()
	run := &models.CheckRun{
		ID:        uuid.New().String(),
		Scope:     scope,
		CheckType: checkType,
		Status:    models.CheckStatusPassed,
		Issues:    models.IssueList{},
		RunAt:     s.now(),
	}

	slog.Info("开始完整性检查", "check_run_id", run.ID, "scope", scope, "rules", len(rules))

	for _, result := range s.executor.ExecuteAll(ctx, rules, scope) {
		if result.Skipped {
			continue
		}
		run.RulesExecuted++
		if result.Issue != nil {
			s.appendIssue(run, *result.Issue)
		}
	}
	run.DurationMs = time.Since(start).Milliseconds()

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := s.db.WithContext(persistCtx).Create(run).Error; err != nil {
		perr := &PersistenceError{Op: "save_check_run", Cause: err}
		slog.Error("保存检查记录失败", "check_run_id", run.ID, "error", err)
		s.appendIssue(run, models.Issue{
			Type:            IssueTypeCheckExecutionError,
			Description:     fmt.Sprintf("Failed to persist check run: %v", err),
			Severity:        SeverityCritical,
			AffectedRecords: []string{run.ID},
			SuggestedAction: SuggestedAction(IssueTypeCheckExecutionError),
			ExecutionError:  true,
		})
		s.recordRunMetrics(run)
		return run, perr
	}

	s.recordRunMetrics(run)
	s.notify(persistCtx, run)

	slog.Info("完整性检查完成",
		"check_run_id", run.ID,
		"scope", scope,
		"status", run.Status,
		"issues", len(run.Issues),
		"duration_ms", run.DurationMs)
	return run, nil
}

// appendIssue 追加问题并重算状态
func (s *Service) appendIssue(run *models.CheckRun, issue models.Issue) {
	run.Issues = append(run.Issues, issue)
	run.Status = DeriveStatus(run.Issues)
}

func (s *Service) recordRunMetrics(run *models.CheckRun) {
	checkRunsTotal.WithLabelValues(run.Status).Inc()
	for _, issue := range run.Issues {
		issuesTotal.WithLabelValues(string(issue.Severity)).Inc()
	}
}

// notify 发布检查完成通知，失败只记录日志
func (s *Service) notify(ctx context.Context, run *models.CheckRun) {
	event := CheckRunCompleted{
		CheckRunID:    run.ID,
		Scope:         run.Scope,
		CheckType:     run.CheckType,
		Status:        run.Status,
		IssueCount:    len(run.Issues),
		RulesExecuted: run.RulesExecuted,
		RunAt:         run.RunAt,
	}
	if worst, ok := MaxSeverity(run.Issues); ok {
		event.MaxSeverity = worst
	}

	if err := s.publisher.Publish(ctx, s.cfg.Notifier.Topic, event); err != nil {
		slog.Warn("发布检查完成通知失败", "check_run_id", run.ID, "error", err)
	}
}
