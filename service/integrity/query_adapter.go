/*
 * @module service/integrity/query_adapter
 * @description 规则查询执行适配器，将规则查询与范围参数绑定后交给数据库执行
 * @architecture 适配器模式 - 隔离执行器与具体存储
 * @rules 范围值只通过命名参数绑定，不拼接进SQL；不做重试；超时与失败统一转换为 QueryExecutionError
 * @dependencies gorm.io/gorm
 */

package integrity

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"integrity-service/service/models"

	"gorm.io/gorm"
)

const (
	scopeMarker = "{{scope}}"
	scopeParam  = "scope_id"
)

// QueryAdapter 规则查询执行接口
type QueryAdapter interface {
	Query(ctx context.Context, rule Rule, scope string) ([]Row, error)
}

// NormalizeScope 空范围统一为 all
func NormalizeScope(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return models.ScopeAll
	}
	return scope
}

// IsScoped 是否限定到单个实体
func IsScoped(scope string) bool {
	return NormalizeScope(scope) != models.ScopeAll
}

// RenderQuery 渲染规则查询，返回SQL和绑定参数
func RenderQuery(query QuerySpec, scope string) (string, []interface{}) {
	if !IsScoped(scope) || query.ScopeFilter == "" || !strings.Contains(query.SQL, scopeMarker) {
		return strings.ReplaceAll(query.SQL, scopeMarker, ""), nil
	}

	rendered := strings.ReplaceAll(query.SQL, scopeMarker, "AND ("+query.ScopeFilter+")")
	return rendered, []interface{}{sql.Named(scopeParam, strings.TrimSpace(scope))}
}

// GormQueryAdapter 基于 gorm 的查询适配器
type GormQueryAdapter struct {
	db *gorm.DB
}

// NewGormQueryAdapter 创建查询适配器
func NewGormQueryAdapter(db *gorm.DB) *GormQueryAdapter {
	return &GormQueryAdapter{db: db}
}

// Query 执行规则查询
func (a *GormQueryAdapter) Query(ctx context.Context, rule Rule, scope string) ([]Row, error) {
	query, args := RenderQuery(rule.Query, scope)

	var rows []map[string]interface{}
	if err := a.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, &QueryExecutionError{
			RuleID:  rule.ID,
			Timeout: errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
			Cause:   err,
		}
	}

	result := make([]Row, len(rows))
	for i, row := range rows {
		result[i] = normalizeRow(row)
	}
	return result, nil
}

// normalizeRow 驱动返回的 []byte 统一转为字符串
func normalizeRow(row map[string]interface{}) Row {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}
