/*
 * @module service/integrity/catalog
 * @description 完整性规则目录，内置孤立记录、字段校验、跨表一致性、重复检测四类规则
 * @architecture 分层架构 - 领域模型层
 * @stateFlow 启动时构造 -> 注入执行器/服务 -> 只读使用
 * @rules 规则ID全局唯一；目录构造后不可变；查询SQL需同时兼容 PostgreSQL 和 SQLite
 * @dependencies 无
 * @refs service/integrity/validators.go
 */

package integrity

import (
	"fmt"
	"strings"
)

// 内置规则ID
const (
	RuleOrphanedTicketSales        = "orphaned_ticket_sales"
	RuleOrphanedApplications       = "orphaned_applications"
	RuleOrphanedSpots              = "orphaned_spots"
	RuleNegativeAmounts            = "negative_amounts"
	RuleZeroTicketQuantity         = "zero_ticket_quantity"
	RuleMissingCustomerInfo        = "missing_customer_info"
	RuleInvalidEmailFormat         = "invalid_email_format"
	RuleEventTotalsMismatch        = "event_totals_mismatch"
	RulePlatformTotalsMismatch     = "platform_totals_mismatch"
	RuleDuplicateTicketSales       = "duplicate_ticket_sales"
	RuleDuplicateCustomerPurchases = "duplicate_customer_purchases"
)

// 合成问题类型
const (
	IssueTypeRuleExecutionError  = "rule_execution_error"
	IssueTypeCheckExecutionError = "check_execution_error"
)

// Catalog 不可变的规则目录
type Catalog struct {
	rules []Rule
	index map[string]int
}

// NewCatalog 构造规则目录，校验ID唯一性和规则定义完整性
func NewCatalog(rules ...Rule) (*Catalog, error) {
	c := &Catalog{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}

	for _, rule := range rules {
		if err := validateRule(rule); err != nil {
			return nil, err
		}
		if _, exists := c.index[rule.ID]; exists {
			return nil, fmt.Errorf("规则ID重复: %s", rule.ID)
		}
		c.index[rule.ID] = len(c.rules)
		c.rules = append(c.rules, rule)
	}
	return c, nil
}

// MustCatalog 构造规则目录，失败时 panic，只用于编译期确定的规则集
func MustCatalog(rules ...Rule) *Catalog {
	c, err := NewCatalog(rules...)
	if err != nil {
		panic(err)
	}
	return c
}

func validateRule(rule Rule) error {
	if strings.TrimSpace(rule.ID) == "" {
		return fmt.Errorf("规则ID不能为空")
	}
	if !rule.CheckType.Valid() {
		return fmt.Errorf("规则 %s 检查类型无效: %s", rule.ID, rule.CheckType)
	}
	if !ValidSeverity(rule.Severity) {
		return fmt.Errorf("规则 %s 严重级别无效: %s", rule.ID, rule.Severity)
	}
	if strings.TrimSpace(rule.Query.SQL) == "" {
		return fmt.Errorf("规则 %s 缺少查询语句", rule.ID)
	}
	if strings.Contains(rule.Query.SQL, scopeMarker) && rule.Query.ScopeFilter == "" {
		return fmt.Errorf("规则 %s 包含范围标记但未定义范围过滤条件", rule.ID)
	}

	switch kind := rule.Kind.(type) {
	case Declarative:
		if !kind.ExpectedResult.Valid() {
			return fmt.Errorf("规则 %s 期望结果无效: %s", rule.ID, kind.ExpectedResult)
		}
	case Custom:
		if kind.Validator == nil {
			return fmt.Errorf("规则 %s 缺少自定义校验函数", rule.ID)
		}
	default:
		return fmt.Errorf("规则 %s 未指定规则形态", rule.ID)
	}
	return nil
}

// Get 按ID查找规则
func (c *Catalog) Get(id string) (Rule, bool) {
	i, ok := c.index[id]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

// Rules 按定义顺序返回规则副本
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// IDs 按定义顺序返回规则ID
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.rules))
	for i, rule := range c.rules {
		ids[i] = rule.ID
	}
	return ids
}

// Len 规则数量
func (c *Catalog) Len() int {
	return len(c.rules)
}

// SuggestedAction 每条规则的处理建议
func SuggestedAction(ruleID string) string {
	suggestions := map[string]string{
		RuleOrphanedTicketSales:        "Review and reassign to correct event or remove orphaned records",
		RuleOrphanedApplications:       "Review and reassign to correct event/comedian or remove",
		RuleOrphanedSpots:              "Reassign spots to an existing event or remove them",
		RuleNegativeAmounts:            "Review and correct negative amounts - may indicate refunds or data entry errors",
		RuleZeroTicketQuantity:         "Review zero quantity sales - may indicate administrative entries",
		RuleMissingCustomerInfo:        "Update missing customer information from order platform",
		RuleInvalidEmailFormat:         "Correct email format or verify customer information",
		RuleEventTotalsMismatch:        "Recalculate event totals from ticket sales",
		RulePlatformTotalsMismatch:     "Recalculate platform totals from ticket sales",
		RuleDuplicateTicketSales:       "Review and remove duplicate entries",
		RuleDuplicateCustomerPurchases: "Review for potential duplicate orders within time window",
		IssueTypeRuleExecutionError:    "Check rule configuration and database connectivity",
		IssueTypeCheckExecutionError:   "Review system logs and database connectivity",
	}

	if suggestion, exists := suggestions[ruleID]; exists {
		return suggestion
	}
	return "Review and correct data inconsistency"
}

// DefaultCatalog 内置规则目录
func DefaultCatalog() *Catalog {
	return MustCatalog(defaultRules()...)
}

func defaultRules() []Rule {
	return []Rule{
		// 孤立记录
		NewDeclarativeRule(
			RuleOrphanedTicketSales,
			"Orphaned Ticket Sales",
			"Ticket sales referencing non-existent events",
			CheckTypeOrphaned, SeverityHigh,
			QuerySpec{
				SQL: `SELECT ts.* FROM ticket_sales ts
					LEFT JOIN events e ON ts.event_id = e.id
					WHERE e.id IS NULL {{scope}}
					ORDER BY ts.id`,
				ScopeFilter: "ts.event_id = @scope_id",
			},
			ExpectEmpty,
		),
		NewDeclarativeRule(
			RuleOrphanedApplications,
			"Orphaned Applications",
			"Applications referencing non-existent events or profiles",
			CheckTypeOrphaned, SeverityMedium,
			QuerySpec{
				SQL: `SELECT a.* FROM applications a
					LEFT JOIN events e ON a.event_id = e.id
					LEFT JOIN profiles p ON a.comedian_id = p.id
					WHERE (e.id IS NULL OR p.id IS NULL) {{scope}}
					ORDER BY a.id`,
				ScopeFilter: "a.event_id = @scope_id",
			},
			ExpectEmpty,
		),
		NewDeclarativeRule(
			RuleOrphanedSpots,
			"Orphaned Event Spots",
			"Event spots referencing non-existent events",
			CheckTypeOrphaned, SeverityMedium,
			QuerySpec{
				SQL: `SELECT es.* FROM event_spots es
					LEFT JOIN events e ON es.event_id = e.id
					WHERE e.id IS NULL {{scope}}
					ORDER BY es.id`,
				ScopeFilter: "es.event_id = @scope_id",
			},
			ExpectEmpty,
		),

		// 字段校验
		NewDeclarativeRule(
			RuleNegativeAmounts,
			"Negative Ticket Amounts",
			"Ticket sales with negative amounts",
			CheckTypeValidation, SeverityCritical,
			QuerySpec{
				SQL:         `SELECT * FROM ticket_sales WHERE total_amount < 0 {{scope}} ORDER BY id`,
				ScopeFilter: "event_id = @scope_id",
			},
			ExpectEmpty,
		),
		NewDeclarativeRule(
			RuleZeroTicketQuantity,
			"Zero Ticket Quantities",
			"Ticket sales with zero or negative quantities",
			CheckTypeValidation, SeverityHigh,
			QuerySpec{
				SQL:         `SELECT * FROM ticket_sales WHERE ticket_quantity <= 0 {{scope}} ORDER BY id`,
				ScopeFilter: "event_id = @scope_id",
			},
			ExpectEmpty,
		),
		NewDeclarativeRule(
			RuleMissingCustomerInfo,
			"Missing Customer Information",
			"Ticket sales missing customer name or email",
			CheckTypeValidation, SeverityMedium,
			QuerySpec{
				SQL: `SELECT * FROM ticket_sales
					WHERE (customer_name IS NULL OR customer_name = ''
						OR customer_email IS NULL OR customer_email = '') {{scope}}
					ORDER BY id`,
				ScopeFilter: "event_id = @scope_id",
			},
			ExpectEmpty,
		),
		NewCustomRule(
			RuleInvalidEmailFormat,
			"Invalid Email Formats",
			"Customer emails that do not follow valid email format",
			CheckTypeValidation, SeverityMedium,
			QuerySpec{
				SQL: `SELECT * FROM ticket_sales
					WHERE customer_email IS NOT NULL AND customer_email <> '' {{scope}}
					ORDER BY id`,
				ScopeFilter: "event_id = @scope_id",
			},
			InvalidEmailValidator,
		),

		// 跨表一致性
		NewDeclarativeRule(
			RuleEventTotalsMismatch,
			"Event Totals Mismatch",
			"Events where calculated totals do not match stored totals",
			CheckTypeConsistency, SeverityHigh,
			QuerySpec{
				SQL: `SELECT e.id, e.name,
						e.total_tickets_sold AS stored_tickets,
						e.total_gross_sales AS stored_revenue,
						COALESCE(SUM(ts.ticket_quantity), 0) AS calculated_tickets,
						COALESCE(SUM(ts.total_amount), 0) AS calculated_revenue
					FROM events e
					LEFT JOIN ticket_sales ts ON e.id = ts.event_id
					WHERE 1 = 1 {{scope}}
					GROUP BY e.id, e.name, e.total_tickets_sold, e.total_gross_sales
					HAVING COALESCE(e.total_tickets_sold, 0) <> COALESCE(SUM(ts.ticket_quantity), 0)
						OR ABS(COALESCE(e.total_gross_sales, 0) - COALESCE(SUM(ts.total_amount), 0)) > 0.01
					ORDER BY e.id`,
				ScopeFilter: "e.id = @scope_id",
			},
			ExpectEmpty,
		),
		NewDeclarativeRule(
			RulePlatformTotalsMismatch,
			"Platform Totals Mismatch",
			"Ticket platforms where calculated totals do not match stored totals",
			CheckTypeConsistency, SeverityHigh,
			QuerySpec{
				SQL: `SELECT tp.id, tp.platform, tp.event_id,
						tp.tickets_sold AS stored_tickets,
						tp.gross_sales AS stored_revenue,
						COALESCE(SUM(ts.ticket_quantity), 0) AS calculated_tickets,
						COALESCE(SUM(ts.total_amount), 0) AS calculated_revenue
					FROM ticket_platforms tp
					LEFT JOIN ticket_sales ts ON tp.event_id = ts.event_id AND tp.platform = ts.platform
					WHERE 1 = 1 {{scope}}
					GROUP BY tp.id, tp.platform, tp.event_id, tp.tickets_sold, tp.gross_sales
					HAVING COALESCE(tp.tickets_sold, 0) <> COALESCE(SUM(ts.ticket_quantity), 0)
						OR ABS(COALESCE(tp.gross_sales, 0) - COALESCE(SUM(ts.total_amount), 0)) > 0.01
					ORDER BY tp.id`,
				ScopeFilter: "tp.event_id = @scope_id",
			},
			ExpectEmpty,
		),

		// 重复检测
		NewDeclarativeRule(
			RuleDuplicateTicketSales,
			"Duplicate Ticket Sales",
			"Potential duplicate ticket sales based on order ID and platform",
			CheckTypeDuplicate, SeverityMedium,
			QuerySpec{
				SQL: `SELECT platform_order_id, platform, COUNT(*) AS duplicate_count
					FROM ticket_sales
					WHERE platform_order_id IS NOT NULL AND platform_order_id <> '' {{scope}}
					GROUP BY platform_order_id, platform
					HAVING COUNT(*) > 1
					ORDER BY platform_order_id, platform`,
				ScopeFilter: "event_id = @scope_id",
			},
			ExpectEmpty,
		),
		NewCustomRule(
			RuleDuplicateCustomerPurchases,
			"Duplicate Customer Purchases",
			"Customers with multiple purchases within short time window",
			CheckTypeDuplicate, SeverityLow,
			QuerySpec{
				SQL: `SELECT ts.id, ts.customer_email, ts.event_id, ts.purchase_date
					FROM ticket_sales ts
					WHERE ts.customer_email IS NOT NULL AND ts.customer_email <> '' {{scope}}
						AND EXISTS (
							SELECT 1 FROM ticket_sales o
							WHERE LOWER(o.customer_email) = LOWER(ts.customer_email)
								AND o.event_id = ts.event_id
								AND o.id <> ts.id
						)
					ORDER BY ts.customer_email, ts.event_id, ts.purchase_date, ts.id`,
				ScopeFilter: "ts.event_id = @scope_id",
			},
			PurchaseWindowValidator(DuplicatePurchaseWindow),
		),
	}
}
