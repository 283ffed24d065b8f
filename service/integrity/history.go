/*
 * @module service/integrity/history
 * @description 检查历史、问题摘要与修正记录查询
 * @architecture 分层架构 - 查询服务层
 * @rules 历史按运行时间倒序；摘要基于最近一次运行，趋势取最近 N 次
 * @dependencies gorm.io/gorm
 */

package integrity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"integrity-service/service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultHistoryLimit = 10

// TrendPoint 趋势数据点
type TrendPoint struct {
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	IssueCount int       `json:"issue_count"`
}

// IssuesSummary 问题摘要
type IssuesSummary struct {
	TotalIssues    int          `json:"total_issues"`
	CriticalIssues int          `json:"critical_issues"`
	LastCheckAt    *time.Time   `json:"last_check_at"`
	Status         string       `json:"status"`
	Trend          []TrendPoint `json:"trend"`
}

// GetCheckHistory 查询检查历史，scope 为空时返回所有范围
func (s *Service) GetCheckHistory(ctx context.Context, scope string, limit int) ([]models.CheckRun, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := s.db.WithContext(ctx).Order("run_at DESC").Order("id DESC").Limit(limit)
	if scope != "" {
		query = query.Where("scope = ?", scope)
	}

	var runs []models.CheckRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("查询检查历史失败: %w", err)
	}
	return runs, nil
}

// GetCheckRun 按ID查询检查记录
func (s *Service) GetCheckRun(ctx context.Context, id string) (*models.CheckRun, error) {
	var run models.CheckRun
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCheckRunNotFound, id)
		}
		return nil, fmt.Errorf("查询检查记录失败: %w", err)
	}
	return &run, nil
}

// GetAvailableRules 返回目录中的全部规则
func (s *Service) GetAvailableRules() []Rule {
	return s.catalog.Rules()
}

// GetIssuesSummary 基于最近的检查运行生成问题摘要
func (s *Service) GetIssuesSummary(ctx context.Context, scope string) (*IssuesSummary, error) {
	runs, err := s.GetCheckHistory(ctx, scope, s.cfg.HistoryTrendSize)
	if err != nil {
		return nil, err
	}

	summary := &IssuesSummary{
		Status: models.CheckStatusPassed,
		Trend:  make([]TrendPoint, 0, len(runs)),
	}
	if len(runs) == 0 {
		return summary, nil
	}

	latest := runs[0]
	summary.TotalIssues = len(latest.Issues)
	for _, issue := range latest.Issues {
		if issue.Severity == SeverityHigh || issue.Severity == SeverityCritical {
			summary.CriticalIssues++
		}
	}
	lastCheckAt := latest.RunAt
	summary.LastCheckAt = &lastCheckAt
	summary.Status = latest.Status

	for _, run := range runs {
		summary.Trend = append(summary.Trend, TrendPoint{
			Date:       run.RunAt,
			Status:     run.Status,
			IssueCount: len(run.Issues),
		})
	}
	return summary, nil
}

// GetCorrectionHistory 查询检查记录对应的修正记录
func (s *Service) GetCorrectionHistory(ctx context.Context, checkRunID string) ([]models.CorrectionRecord, error) {
	var records []models.CorrectionRecord
	err := s.db.WithContext(ctx).
		Where("check_run_id = ?", checkRunID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询修正记录失败: %w", err)
	}
	return records, nil
}
