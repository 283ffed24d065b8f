/*
 * @module service/integrity/rule
 * @description 完整性规则定义：检查类型、严重级别、期望结果以及声明式/自定义两种规则形态
 * @architecture 分层架构 - 领域模型层
 * @rules 规则在进程启动时构造，之后不可变；规则形态为封闭的标签变体，执行器按类型穷举分派
 * @dependencies integrity-service/service/models
 * @refs service/integrity/catalog.go, service/integrity/executor.go
 */

package integrity

import (
	"integrity-service/service/models"
)

// 使用models包中定义的类型
type Severity = models.Severity

const (
	SeverityLow      = models.SeverityLow
	SeverityMedium   = models.SeverityMedium
	SeverityHigh     = models.SeverityHigh
	SeverityCritical = models.SeverityCritical
)

// SeverityRank 严重级别排序，未知级别返回 0
func SeverityRank(s Severity) int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ValidSeverity 是否为已知严重级别
func ValidSeverity(s Severity) bool {
	return SeverityRank(s) > 0
}

// MaxSeverity 返回问题列表中的最高严重级别，列表为空时 ok 为 false
func MaxSeverity(issues []models.Issue) (worst Severity, ok bool) {
	for _, issue := range issues {
		if !ok || SeverityRank(issue.Severity) > SeverityRank(worst) {
			worst = issue.Severity
			ok = true
		}
	}
	return worst, ok
}

// CheckType 规则检查类型
type CheckType string

const (
	CheckTypeValidation  CheckType = "validation"
	CheckTypeConsistency CheckType = "consistency"
	CheckTypeOrphaned    CheckType = "orphaned"
	CheckTypeDuplicate   CheckType = "duplicate"
)

// Valid 是否为已知检查类型
func (c CheckType) Valid() bool {
	switch c {
	case CheckTypeValidation, CheckTypeConsistency, CheckTypeOrphaned, CheckTypeDuplicate:
		return true
	}
	return false
}

// ExpectedResult 声明式规则对查询结果的期望
type ExpectedResult string

const (
	ExpectEmpty         ExpectedResult = "empty"
	ExpectNotEmpty      ExpectedResult = "not_empty"
	ExpectCountZero     ExpectedResult = "count_zero"
	ExpectCountPositive ExpectedResult = "count_positive"
)

// Valid 是否为已知期望结果
func (e ExpectedResult) Valid() bool {
	switch e {
	case ExpectEmpty, ExpectNotEmpty, ExpectCountZero, ExpectCountPositive:
		return true
	}
	return false
}

// Violated 根据返回行数判断期望是否被违反
func (e ExpectedResult) Violated(rowCount int) bool {
	switch e {
	case ExpectEmpty, ExpectCountZero:
		return rowCount > 0
	case ExpectNotEmpty, ExpectCountPositive:
		return rowCount == 0
	default:
		return false
	}
}

// Row 查询返回的原始行
type Row = map[string]interface{}

// Validator 自定义校验函数，从原始行中筛选出不合规的行
type Validator func(rows []Row) []Row

// RuleKind 规则形态，只有 Declarative 和 Custom 两种实现
type RuleKind interface {
	kindName() string
}

// Declarative 声明式规则：按期望结果判断查询返回
type Declarative struct {
	ExpectedResult ExpectedResult
}

func (Declarative) kindName() string { return "declarative" }

// Custom 自定义规则：查询结果交给校验函数再次筛选
type Custom struct {
	Validator Validator
}

func (Custom) kindName() string { return "custom" }

// QuerySpec 规则查询定义
// SQL 中的 {{scope}} 标记在指定范围时替换为 AND (ScopeFilter)，ScopeFilter 通过 @scope_id 绑定参数
type QuerySpec struct {
	SQL         string
	ScopeFilter string
}

// Rule 完整性规则
type Rule struct {
	ID          string
	Name        string
	Description string
	CheckType   CheckType
	Severity    Severity
	Query       QuerySpec
	Kind        RuleKind
}

// NewDeclarativeRule 创建声明式规则
func NewDeclarativeRule(id, name, description string, checkType CheckType, severity Severity, query QuerySpec, expected ExpectedResult) Rule {
	return Rule{
		ID:          id,
		Name:        name,
		Description: description,
		CheckType:   checkType,
		Severity:    severity,
		Query:       query,
		Kind:        Declarative{ExpectedResult: expected},
	}
}

// NewCustomRule 创建带自定义校验函数的规则
func NewCustomRule(id, name, description string, checkType CheckType, severity Severity, query QuerySpec, validator Validator) Rule {
	return Rule{
		ID:          id,
		Name:        name,
		Description: description,
		CheckType:   checkType,
		Severity:    severity,
		Query:       query,
		Kind:        Custom{Validator: validator},
	}
}

// RuleInfo 规则对外展示信息
type RuleInfo struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CheckType      CheckType `json:"check_type"`
	Severity       Severity  `json:"severity"`
	Kind           string    `json:"kind"`
	ExpectedResult string    `json:"expected_result,omitempty"`
	Correctable    bool      `json:"correctable"`
}

// Info 转换为展示信息
func (r Rule) Info() RuleInfo {
	info := RuleInfo{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CheckType:   r.CheckType,
		Severity:    r.Severity,
		Correctable: IsCorrectable(r.ID),
	}
	if r.Kind != nil {
		info.Kind = r.Kind.kindName()
	}
	if d, ok := r.Kind.(Declarative); ok {
		info.ExpectedResult = string(d.ExpectedResult)
	}
	return info
}
