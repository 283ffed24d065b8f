package integrity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ruleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "integrity_rule_duration_seconds",
		Help:    "单条完整性规则执行耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"rule_id"})

	ruleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integrity_rule_errors_total",
		Help: "完整性规则执行失败次数",
	}, []string{"rule_id"})

	checkRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integrity_check_runs_total",
		Help: "按状态统计的检查运行次数",
	}, []string{"status"})

	issuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integrity_issues_total",
		Help: "按严重级别统计的问题数",
	}, []string{"severity"})

	correctedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integrity_corrected_records_total",
		Help: "自动修正的记录数",
	}, []string{"issue_type"})

	backupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integrity_backups_total",
		Help: "备份创建结果统计",
	}, []string{"result"})
)
