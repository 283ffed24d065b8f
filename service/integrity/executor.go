/*
 * @module service/integrity/executor
 * @description 规则执行器，负责单条规则的执行、超时控制以及多规则有界并发执行
 * @architecture 工作池模式 - errgroup 限流
 * @stateFlow 规则 -> 查询适配器 -> 声明式判定/自定义校验 -> 问题
 * @rules 单条规则失败不影响其他规则；执行错误转换为 rule_execution_error 问题，不向上传播；结果按规则ID排序
 * @dependencies golang.org/x/sync/errgroup, github.com/spf13/cast
 * @refs service/integrity/query_adapter.go, service/integrity/check_service.go
 */

package integrity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"integrity-service/service/models"

	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"
)

// RuleResult 单条规则的执行结果
type RuleResult struct {
	RuleID   string
	Issue    *models.Issue
	Err      error
	Duration time.Duration
	// Skipped 调用方取消导致规则未完成
	Skipped bool
}

// RuleExecutor 规则执行器
type RuleExecutor struct {
	adapter        QueryAdapter
	maxConcurrency int
	ruleTimeout    time.Duration
}

// NewRuleExecutor 创建规则执行器
func NewRuleExecutor(adapter QueryAdapter, maxConcurrency int, ruleTimeout time.Duration) *RuleExecutor {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &RuleExecutor{
		adapter:        adapter,
		maxConcurrency: maxConcurrency,
		ruleTimeout:    ruleTimeout,
	}
}

// Execute 执行单条规则
func (e *RuleExecutor) Execute(ctx context.Context, rule Rule, scope string) (result RuleResult) {
	start := time.Now()
	result.RuleID = rule.ID

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("规则 %s 执行异常: %v", rule.ID, r)
			result.Err = err
			result.Issue = executionErrorIssue(rule, err)
		}
		result.Duration = time.Since(start)
		ruleDuration.WithLabelValues(rule.ID).Observe(result.Duration.Seconds())
		if result.Err != nil {
			ruleErrors.WithLabelValues(rule.ID).Inc()
		}
	}()

	queryCtx := ctx
	if e.ruleTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, e.ruleTimeout)
		defer cancel()
	}

	rows, err := e.adapter.Query(queryCtx, rule, scope)
	if err != nil {
		var qerr *QueryExecutionError
		if !errors.As(err, &qerr) {
			qerr = &QueryExecutionError{RuleID: rule.ID, Cause: err}
		}
		if errors.Is(queryCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			qerr.Timeout = true
		}
		slog.Warn("规则执行失败", "rule_id", rule.ID, "scope", scope, "timeout", qerr.Timeout, "error", qerr.Cause)
		result.Err = qerr
		result.Issue = executionErrorIssue(rule, qerr)
		return result
	}

	switch kind := rule.Kind.(type) {
	case Declarative:
		if kind.ExpectedResult.Violated(len(rows)) {
			result.Issue = findingIssue(rule, rows)
		}
	case Custom:
		if invalid := kind.Validator(rows); len(invalid) > 0 {
			result.Issue = findingIssue(rule, invalid)
		}
	default:
		err := fmt.Errorf("规则 %s 形态未知: %T", rule.ID, rule.Kind)
		result.Err = err
		result.Issue = executionErrorIssue(rule, err)
	}
	return result
}

// ExecuteAll 有界并发执行多条规则，返回结果按规则ID排序
// 调用方取消后尚未开始的规则不出现在结果中
func (e *RuleExecutor) ExecuteAll(ctx context.Context, rules []Rule, scope string) []RuleResult {
	var (
		mu      sync.Mutex
		results = make([]RuleResult, 0, len(rules))
	)

	g := new(errgroup.Group)
	g.SetLimit(e.maxConcurrency)

	for _, rule := range rules {
		if ctx.Err() != nil {
			break
		}
		rule := rule
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := e.Execute(ctx, rule, scope)
			if res.Err != nil && ctx.Err() != nil {
				res.Skipped = true
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].RuleID < results[j].RuleID })
	return results
}

func findingIssue(rule Rule, rows []Row) *models.Issue {
	return &models.Issue{
		Type:            rule.ID,
		Description:     fmt.Sprintf("%s: %d records affected", rule.Description, len(rows)),
		Severity:        rule.Severity,
		AffectedRecords: affectedRecords(rows),
		SuggestedAction: SuggestedAction(rule.ID),
	}
}

func executionErrorIssue(rule Rule, err error) *models.Issue {
	return &models.Issue{
		Type:            IssueTypeRuleExecutionError,
		Description:     fmt.Sprintf("Failed to execute rule %s: %v", rule.ID, err),
		Severity:        SeverityHigh,
		AffectedRecords: []string{rule.ID},
		SuggestedAction: SuggestedAction(IssueTypeRuleExecutionError),
		ExecutionError:  true,
	}
}

// affectedRecords 有 id 列时取 id，否则取整行的规范化 JSON
func affectedRecords(rows []Row) []string {
	records := make([]string, 0, len(rows))
	for _, row := range rows {
		if id, ok := row["id"]; ok && id != nil {
			records = append(records, cast.ToString(id))
			continue
		}
		data, err := json.Marshal(row)
		if err != nil {
			records = append(records, fmt.Sprintf("%v", row))
			continue
		}
		records = append(records, string(data))
	}
	return records
}
